package app

import (
	"context"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/catalog"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
)

// RegistrationHeaders is the header row given to new registration tables.
var RegistrationHeaders = []string{
	"Código", "Nome", "CPF", "Nome para crachá", "Cargo", "Data de inscrição",
	"Conferido", "Conferido por", "Conferido em",
}

// TableCreator is implemented by backends that can add tables.
type TableCreator interface {
	EnsureTable(ctx context.Context, title string, headerRow []string) error
}

type TableCreatorFunc func(ctx context.Context, title string, headerRow []string) error

func (f TableCreatorFunc) EnsureTable(ctx context.Context, title string, headerRow []string) error {
	return f(ctx, title, headerRow)
}

// Bootstrap creates the registration, definitions and responses tables
// the catalog names but the store lacks. Attendance rosters are maintained
// outside this module and are never created. It returns the created titles.
func Bootstrap(ctx context.Context, cat *catalog.Catalog, acc sheets.Accessor, creator TableCreator) ([]string, error) {
	type wanted struct {
		title   string
		headers []string
	}
	var tables []wanted
	for _, p := range cat.Profiles {
		tables = append(tables, wanted{p.Table, RegistrationHeaders})
	}
	tables = append(tables,
		wanted{cat.Voting.DefinitionsTable, definitionHeaders},
		wanted{cat.Voting.ResponsesTable, responseHeaders},
	)

	var created []string
	for _, t := range tables {
		_, found, err := sheets.FindTable(ctx, acc, t.title)
		if err != nil {
			return created, transportError("list tables", err)
		}
		if found {
			continue
		}
		if err := creator.EnsureTable(ctx, t.title, t.headers); err != nil {
			return created, storeError("create "+t.title, err)
		}
		created = append(created, t.title)
	}
	return created, nil
}
