package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/app"
)

// Service is the facade that tries Meilisearch first and falls back to a
// table scan. It also implements app.Indexer.
type Service struct {
	meili  *Meili
	scan   *Scan
	logger *slog.Logger

	pending sync.WaitGroup
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(m *Meili, scan *Scan, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{meili: m, scan: scan, logger: logger}
}

func (s *Service) indexReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Search tries Meilisearch if healthy, otherwise scans the tables.
func (s *Service) Search(ctx context.Context, q Query) (Response, error) {
	if s.indexReady() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: "index"}, nil
		}
		s.logger.Warn("meilisearch error, falling back to scan", "error", err)
	}

	results, total, err := s.scan.Search(ctx, q)
	if err != nil {
		return Response{Results: []Participant{}, Query: q.Text, Source: "scan"}, err
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: "scan"}, nil
}

// IndexParticipant pushes one registration to the index (fire-and-forget).
func (s *Service) IndexParticipant(profile string, rec app.Record) {
	if !s.indexReady() {
		return
	}
	p := FromRecord(profile, rec)
	if p.Identifier == "" {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.meili.IndexParticipants([]Participant{p}); err != nil {
			s.logger.Warn("index participant", "id", p.ID, "error", err)
		}
	}()
}

// RemoveParticipant drops one registration from the index (fire-and-forget).
func (s *Service) RemoveParticipant(profile, identifier string) {
	if !s.indexReady() || identifier == "" {
		return
	}
	id := DocumentID(profile, identifier)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.meili.DeleteParticipant(id); err != nil {
			s.logger.Warn("remove participant", "id", id, "error", err)
		}
	}()
}

// Wait blocks until every index update started so far has been sent.
func (s *Service) Wait() {
	s.pending.Wait()
}

// ReindexAll reads every profile from the store and pushes it to
// Meilisearch, refreshing the row indices stored with each document.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	if s.meili == nil {
		return 0, errors.New("meilisearch is not configured")
	}
	if !s.meili.Healthy() {
		return 0, errors.New("meilisearch is unhealthy")
	}
	participants, err := s.scan.Load(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.meili.IndexParticipants(participants); err != nil {
		return 0, err
	}
	s.logger.Info("search index rebuilt", "participants", len(participants))
	return len(participants), nil
}

func nonNil(r []Participant) []Participant {
	if r == nil {
		return []Participant{}
	}
	return r
}

var _ app.Indexer = (*Service)(nil)
