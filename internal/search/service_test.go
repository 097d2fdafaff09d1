package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/app"
)

type fakeLister struct {
	rows   map[string][]app.Record
	listFn func(ctx context.Context, profile string) (app.ListResult, error)
	calls  []string
}

func (f *fakeLister) List(ctx context.Context, profile string, status app.Status, query string, page app.Page) (app.ListResult, error) {
	f.calls = append(f.calls, profile)
	if f.listFn != nil {
		return f.listFn(ctx, profile)
	}
	recs := f.rows[profile]
	return app.ListResult{Records: recs, Total: len(recs)}, nil
}

func rec(code, name, cpf, reviewed string, row int) app.Record {
	return app.Record{
		Fields: map[string]string{
			"codigo": code, "nome": name, "cpf": cpf, "conferido": reviewed, "cargo": "Diretor",
		},
		RowIndex: row,
	}
}

func newScanService() (*Service, *fakeLister) {
	lister := &fakeLister{rows: map[string][]app.Record{
		"conselheiro": {
			rec("CNL001", "José Antônio", "'11122233344", "Sim", 2),
			rec("CNL002", "Maria Souza", "'55566677788", "", 3),
			rec("", "Sem CPF", "", "", 4),
		},
		"staff": {
			rec("STF001", "Joselia Prado", "'99988877766", "", 2),
		},
	}}
	return NewService(nil, NewScan(lister, []string{"conselheiro", "staff"}), nil), lister
}

func TestSearchFallsBackToScan(t *testing.T) {
	svc, _ := newScanService()

	resp, err := svc.Search(context.Background(), Query{Text: "jose"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Source != "scan" || resp.Total != 2 {
		t.Fatalf("Search() = %#v, want 2 scan results", resp)
	}
	if resp.Results[0].ID != "conselheiro-11122233344" || !resp.Results[0].Reviewed || resp.Results[0].RowIndex != 2 {
		t.Fatalf("first result = %#v", resp.Results[0])
	}
	if resp.Results[1].Profile != "staff" {
		t.Fatalf("second result = %#v", resp.Results[1])
	}
}

func TestScanMatchesCodeDigitsAndProfile(t *testing.T) {
	svc, lister := newScanService()
	ctx := context.Background()

	resp, _ := svc.Search(ctx, Query{Text: "cnl002"})
	if resp.Total != 1 || resp.Results[0].Name != "Maria Souza" {
		t.Fatalf("code search = %#v", resp)
	}

	resp, _ = svc.Search(ctx, Query{Text: "555.666"})
	if resp.Total != 1 || resp.Results[0].Code != "CNL002" {
		t.Fatalf("digit search = %#v", resp)
	}

	lister.calls = nil
	resp, _ = svc.Search(ctx, Query{Text: "jose", Profile: "staff"})
	if resp.Total != 1 || resp.Results[0].Code != "STF001" {
		t.Fatalf("profile search = %#v", resp)
	}
	if len(lister.calls) != 1 || lister.calls[0] != "staff" {
		t.Fatalf("scan listed %v, want only staff", lister.calls)
	}
}

func TestScanPagingAndEmptyText(t *testing.T) {
	svc, _ := newScanService()

	resp, err := svc.Search(context.Background(), Query{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 3 || len(resp.Results) != 1 || resp.Results[0].Code != "CNL002" {
		t.Fatalf("paged search = %#v", resp)
	}

	resp, _ = svc.Search(context.Background(), Query{Text: "nobody", Offset: 10})
	if resp.Total != 0 || resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("empty search = %#v", resp)
	}
}

func TestScanSkipsMissingTablesAndSurfacesOtherErrors(t *testing.T) {
	missing := &app.DomainError{Kind: app.KindNotFound, Code: "TABLE_NOT_FOUND"}
	lister := &fakeLister{listFn: func(ctx context.Context, profile string) (app.ListResult, error) {
		if profile == "staff" {
			return app.ListResult{}, missing
		}
		return app.ListResult{Records: []app.Record{rec("CNL001", "Ana", "'1", "", 2)}}, nil
	}}
	svc := NewService(nil, NewScan(lister, []string{"conselheiro", "staff"}), nil)

	resp, err := svc.Search(context.Background(), Query{Text: "ana"})
	if err != nil || resp.Total != 1 {
		t.Fatalf("Search() = %#v, %v", resp, err)
	}

	boom := errors.New("connection reset")
	lister.listFn = func(ctx context.Context, profile string) (app.ListResult, error) {
		return app.ListResult{}, boom
	}
	if _, err := svc.Search(context.Background(), Query{Text: "ana"}); !errors.Is(err, boom) {
		t.Fatalf("Search() error = %v, want %v", err, boom)
	}
}

func TestIndexerIsNoOpWithoutMeilisearch(t *testing.T) {
	svc, _ := newScanService()
	svc.IndexParticipant("conselheiro", rec("CNL001", "Ana", "'1", "", 2))
	svc.RemoveParticipant("conselheiro", "1")
	svc.Wait()

	if _, err := svc.ReindexAll(context.Background()); err == nil {
		t.Fatal("ReindexAll() without meilisearch should fail")
	}
}

func TestHitToParticipant(t *testing.T) {
	hit := meili.Hit{
		"id":         json.RawMessage(`"staff-99988877766"`),
		"profile":    json.RawMessage(`"staff"`),
		"code":       json.RawMessage(`"STF001"`),
		"name":       json.RawMessage(`"Joselia Prado"`),
		"identifier": json.RawMessage(`"99988877766"`),
		"reviewed":   json.RawMessage(`true`),
		"rowIndex":   json.RawMessage(`7`),
		"role":       json.RawMessage(`42`),
	}
	p := hitToParticipant(hit)
	want := Participant{
		ID: "staff-99988877766", Profile: "staff", Code: "STF001", Name: "Joselia Prado",
		Identifier: "99988877766", Reviewed: true, RowIndex: 7,
	}
	if p != want {
		t.Fatalf("hitToParticipant() = %#v, want %#v", p, want)
	}
}

func TestMeiliCloseTwice(t *testing.T) {
	m := &Meili{done: make(chan struct{})}
	m.Close()
	m.Close()
	select {
	case <-m.done:
	default:
		t.Fatal("Close() did not stop the health loop")
	}
}
