package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/app"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/headers"
)

// Lister reads every registration of a profile. *app.Records satisfies it.
type Lister interface {
	List(ctx context.Context, profile string, status app.Status, query string, page app.Page) (app.ListResult, error)
}

// Scan searches by reading the registration tables directly. It is the
// fallback when Meilisearch is not configured or unhealthy.
type Scan struct {
	lister   Lister
	profiles []string
}

func NewScan(lister Lister, profiles []string) *Scan {
	return &Scan{lister: lister, profiles: profiles}
}

// Load returns every participant of the given profiles, or of all known
// profiles when none are given.
func (s *Scan) Load(ctx context.Context, profiles ...string) ([]Participant, error) {
	if len(profiles) == 0 {
		profiles = s.profiles
	}
	var out []Participant
	for _, profile := range profiles {
		res, err := s.lister.List(ctx, profile, app.StatusAll, "", app.AllRows)
		if app.IsKind(err, app.KindNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", profile, err)
		}
		for _, rec := range res.Records {
			if rec.Identifier() == "" {
				continue
			}
			out = append(out, FromRecord(profile, rec))
		}
	}
	return out, nil
}

func (s *Scan) Search(ctx context.Context, q Query) ([]Participant, int, error) {
	var profiles []string
	if q.Profile != "" {
		profiles = []string{q.Profile}
	}
	all, err := s.Load(ctx, profiles...)
	if err != nil {
		return nil, 0, err
	}

	text := headers.NormalizeKey(q.Text)
	digits := onlyDigits(q.Text)
	var matched []Participant
	for _, p := range all {
		if matches(p, text, digits) {
			matched = append(matched, p)
		}
	}

	limit, offset := q.Limit, q.Offset
	if limit <= 0 {
		limit = defaultLimit
	}
	offset = min(max(offset, 0), len(matched))
	end := min(offset+limit, len(matched))
	return matched[offset:end], len(matched), nil
}

// matches compares accent- and case-insensitively against the text fields
// and by substring against the identifier digits.
func matches(p Participant, text, digits string) bool {
	if text == "" {
		return true
	}
	if digits != "" && digits == text && strings.Contains(p.Identifier, digits) {
		return true
	}
	for _, field := range []string{p.Name, p.BadgeName, p.Code, p.Role} {
		if strings.Contains(headers.NormalizeKey(field), text) {
			return true
		}
	}
	return false
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
