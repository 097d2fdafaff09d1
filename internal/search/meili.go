package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxParticipants = "inscricoes_participants"

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *slog.Logger
	healthy atomic.Bool
	done    chan struct{}
	closing sync.Once
}

// NewMeili creates a Meilisearch client and configures the index. An
// unreachable server is not an error: the health loop keeps probing and
// configures the index once it answers.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	if logger == nil {
		logger = slog.Default()
	}
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxParticipants,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", idxParticipants, "error", err)
	}

	index := m.client.Index(idxParticipants)
	filterable := []interface{}{"profile", "reviewed"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", idxParticipants, "error", err)
	}
	searchable := []string{"name", "badgeName", "code", "identifier", "role"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", idxParticipants, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	m.closing.Do(func() { close(m.done) })
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(q Query) ([]Participant, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit <= 0 {
		limit = defaultLimit
	}
	sr := &meili.SearchRequest{
		IndexUID: idxParticipants,
		Query:    q.Text,
		Limit:    limit,
		Offset:   int64(q.Offset),
	}
	if q.Profile != "" {
		sr.Filter = []string{fmt.Sprintf("profile = %q", q.Profile)}
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{sr},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	var results []Participant
	total := 0
	for _, r := range resp.Results {
		total += int(r.EstimatedTotalHits)
		for _, hit := range r.Hits {
			results = append(results, hitToParticipant(hit))
		}
	}
	return results, total, nil
}

func hitToParticipant(hit meili.Hit) Participant {
	return Participant{
		ID:         decodeString(hit, "id"),
		Profile:    decodeString(hit, "profile"),
		Code:       decodeString(hit, "code"),
		Name:       decodeString(hit, "name"),
		BadgeName:  decodeString(hit, "badgeName"),
		Role:       decodeString(hit, "role"),
		Identifier: decodeString(hit, "identifier"),
		Reviewed:   decodeBool(hit, "reviewed"),
		RowIndex:   decodeInt(hit, "rowIndex"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeBool(hit meili.Hit, key string) bool {
	raw, ok := hit[key]
	if !ok {
		return false
	}
	var b bool
	_ = json.Unmarshal(raw, &b)
	return b
}

func decodeInt(hit meili.Hit, key string) int {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int
	_ = json.Unmarshal(raw, &n)
	return n
}

// IndexParticipants adds or replaces participants in the index.
func (m *Meili) IndexParticipants(participants []Participant) error {
	if len(participants) == 0 {
		return nil
	}
	_, err := m.client.Index(idxParticipants).AddDocuments(participants, nil)
	return err
}

// DeleteParticipant removes one participant from the index.
func (m *Meili) DeleteParticipant(id string) error {
	_, err := m.client.Index(idxParticipants).DeleteDocument(id, nil)
	return err
}
