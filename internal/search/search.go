// Package search keeps a full-text index of participants in Meilisearch and
// falls back to scanning the registration tables when the index is not
// available.
package search

import (
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/app"
)

// Participant is the document indexed for one registration.
type Participant struct {
	ID         string `json:"id"`
	Profile    string `json:"profile"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	BadgeName  string `json:"badgeName"`
	Role       string `json:"role"`
	Identifier string `json:"identifier"`
	Reviewed   bool   `json:"reviewed"`
	RowIndex   int    `json:"rowIndex,omitempty"`
}

// DocumentID is the index key of a participant. It does not depend on the
// row, so deleting rows above it does not invalidate the document.
func DocumentID(profile, identifier string) string {
	return profile + "-" + identifier
}

func FromRecord(profile string, rec app.Record) Participant {
	return Participant{
		ID:         DocumentID(profile, rec.Identifier()),
		Profile:    profile,
		Code:       rec.Code(),
		Name:       rec.Name(),
		BadgeName:  rec.BadgeName(),
		Role:       rec.Role(),
		Identifier: rec.Identifier(),
		Reviewed:   rec.Reviewed(),
		RowIndex:   rec.RowIndex,
	}
}

// Query describes a search request. An empty Profile searches every profile.
type Query struct {
	Text    string
	Profile string
	Limit   int
	Offset  int
}

// Response is the envelope returned to callers. Source is "index" or "scan".
type Response struct {
	Results []Participant `json:"results"`
	Total   int           `json:"total"`
	Query   string        `json:"query"`
	Source  string        `json:"source"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Participant, int, error)
	Healthy() bool
}

const defaultLimit = 20
