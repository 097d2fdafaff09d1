package xlsxsheet

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
)

func TestWriteThenReadTables(t *testing.T) {
	var buf bytes.Buffer
	in := []Table{
		{Title: "Conselheiros", Rows: [][]string{
			{"Código", "Nome", "CPF"},
			{"CNL001", "Ana Souza", "'01234567890"},
			{"", "Bruno", ""},
		}},
		{Title: "Votacoes"},
	}
	require.NoError(t, WriteTables(&buf, in...))

	out, err := ReadTables(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Conselheiros", out[0].Title)
	assert.Equal(t, in[0].Rows, out[0].Rows)
	assert.Equal(t, "Votacoes", out[1].Title)
	assert.Empty(t, out[1].Rows)
}

func TestWorkbookPersistsWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inscricoes.xlsx")

	wb, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, wb.EnsureTable(ctx, "Staff", []string{"Código", "Nome"}))

	table := sheets.TableRange("Staff").String()
	require.NoError(t, wb.AppendRow(ctx, table, []string{"STF001", "Rita"}))
	require.NoError(t, wb.AppendRow(ctx, table, []string{"STF002", "Caio"}))
	require.NoError(t, wb.UpdateRange(ctx, sheets.CellRange("Staff", 2, 2).String(), [][]string{{"Rita Alves"}}))

	tables, err := wb.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.NoError(t, wb.DeleteRow(ctx, tables[0].ID, 3))

	reopened, err := Open(path)
	require.NoError(t, err)
	rows, err := reopened.ReadRange(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Código", "Nome"}, {"STF001", "Rita Alves"}}, rows)
}

func TestEnsureTableKeepsExistingSheet(t *testing.T) {
	ctx := context.Background()
	wb, err := Open(filepath.Join(t.TempDir(), "book.xlsx"))
	require.NoError(t, err)

	require.NoError(t, wb.EnsureTable(ctx, "Respostas", []string{"Código"}))
	require.NoError(t, wb.AppendRow(ctx, sheets.TableRange("Respostas").String(), []string{"CNL001"}))
	require.NoError(t, wb.EnsureTable(ctx, "respostas", []string{"Outro"}))

	rows, err := wb.ReadRange(ctx, sheets.TableRange("Respostas").String())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Código"}, {"CNL001"}}, rows)
}

func TestMissingSheetIsTableNotFound(t *testing.T) {
	wb, err := Open(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.NoError(t, err)

	_, err = wb.ReadRange(context.Background(), sheets.TableRange("Presenca Dia 1").String())
	assert.ErrorIs(t, err, sheets.ErrTableNotFound)
}
