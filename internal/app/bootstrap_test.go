package app

import (
	"context"
	"testing"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
)

func TestBootstrapCreatesMissingTables(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := TableCreatorFunc(func(ctx context.Context, title string, headerRow []string) error {
		env.sheets.AddTable(title, headerRow)
		return nil
	})

	created, err := Bootstrap(ctx, env.catalog, env.sheets, creator)
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	// Conselheiros already exists in the test environment.
	if len(created) != len(env.catalog.Profiles)+1 {
		t.Fatalf("created %v", created)
	}
	for _, title := range created {
		if title == "Conselheiros" || title == "Presenca Dia 1" {
			t.Fatalf("Bootstrap() must not create %s", title)
		}
	}

	again, err := Bootstrap(ctx, env.catalog, env.sheets, creator)
	if err != nil || len(again) != 0 {
		t.Fatalf("second Bootstrap() = %v, %v", again, err)
	}

	code, err := env.records.Create(ctx, "staff", map[string]string{"nome": "rita alves", "cpf": "52998224725"})
	if err != nil {
		t.Fatalf("Create() on a bootstrapped table error = %v", err)
	}
	if code != "STF001" {
		t.Fatalf("Create() = %q, want STF001", code)
	}
	rows := env.sheets.Rows("Staff")
	if len(rows) != 2 || rows[1][1] != "Rita Alves" || rows[1][2] != "'52998224725" {
		t.Fatalf("Staff rows = %q", rows)
	}

	d, err := env.votes.CreateDefinition(ctx, "cnrpps", pollQuestions())
	if err != nil {
		t.Fatalf("CreateDefinition() error = %v", err)
	}
	header, _ := env.sheets.ReadRange(ctx, sheets.HeaderRange("Votacoes").String())
	if len(header) != 1 || header[0][0] != "ID" || d.ID == "" {
		t.Fatalf("definitions header = %q", header)
	}
}
