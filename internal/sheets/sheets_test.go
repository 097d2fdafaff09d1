package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{1: "A", 2: "B", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 702: "ZZ", 703: "AAA"}
	for n, want := range cases {
		assert.Equal(t, want, ColumnLetter(n), "ColumnLetter(%d)", n)
		assert.Equal(t, n, ColumnNumber(want), "ColumnNumber(%q)", want)
	}
	assert.Equal(t, "", ColumnLetter(0))
	assert.Equal(t, 0, ColumnNumber("A1"))
}

func TestRangeString(t *testing.T) {
	assert.Equal(t, "Conselheiros!A1:ZZ", TableRange("Conselheiros").String())
	assert.Equal(t, "Conselheiros!A1:ZZ1", HeaderRange("Conselheiros").String())
	assert.Equal(t, "'Presenca Dia 1'!A5:F5", RowRange("Presenca Dia 1", 5, 6).String())
	assert.Equal(t, "Staff!C2:C", ColumnRange("Staff", 3, 2).String())
	assert.Equal(t, "'O''Neil'!B7:B7", CellRange("O'Neil", 2, 7).String())
}

func TestParseRangeInvertsString(t *testing.T) {
	ranges := []Range{
		TableRange("Votacoes"),
		HeaderRange("Presenca Dia 2"),
		RowRange("Respostas", 12, 6),
		ColumnRange("CNRPPS", 28, 2),
		CellRange("O'Neil", 2, 7),
	}
	for _, want := range ranges {
		got, err := ParseRange(want.String())
		require.NoError(t, err, want.String())
		assert.Equal(t, want, got)
	}

	single, err := ParseRange("Tab!C5")
	require.NoError(t, err)
	assert.Equal(t, Range{Table: "Tab", StartCol: 3, StartRow: 5, EndCol: 3, EndRow: 5}, single)
}

func TestParseRangeRejectsMalformed(t *testing.T) {
	for _, in := range []string{"A1:B2", "!A1", "Tab!1:2", "Tab!B1:A1", "Tab!A0:A3", "'Tab!A1:B1", "Tab!A5:B2"} {
		_, err := ParseRange(in)
		assert.ErrorIs(t, err, ErrInvalidRange, in)
	}
}

func TestMemoryReadWindow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddTable("T", []string{"a", "b", "c"}, []string{"1", "2"}, []string{"x", "y", "z"})

	rows, err := m.ReadRange(ctx, "T!B2:C")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2"}, {"y", "z"}}, rows)

	rows, err = m.ReadRange(ctx, "T!A9:C")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = m.ReadRange(ctx, "Missing!A1:B")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestMemoryUpdateGrowsRowsAndCells(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddTable("T", []string{"a", "b"})

	require.NoError(t, m.UpdateRange(ctx, CellRange("T", 3, 3).String(), [][]string{{"z"}}))
	require.NoError(t, m.AppendRow(ctx, TableRange("T").String(), []string{"n"}))

	assert.Equal(t, [][]string{{"a", "b"}, {}, {"", "", "z"}, {"n"}}, m.Rows("T"))
}

func TestMemoryDeleteRowShiftsLaterRows(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := m.AddTable("T", []string{"h"}, []string{"r2"}, []string{"r3"}, []string{"r4"})

	require.NoError(t, m.DeleteRow(ctx, id, 2))
	rows, err := m.ReadRange(ctx, "T!A2:A")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"r3"}, {"r4"}}, rows)

	assert.ErrorIs(t, m.DeleteRow(ctx, id, 9), ErrRowOutOfRange)
	assert.ErrorIs(t, m.DeleteRow(ctx, 99, 2), ErrTableNotFound)
}

type failingAccessor struct {
	*Memory
	listErr error
}

func (f failingAccessor) ListTables(ctx context.Context) ([]TableInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Memory.ListTables(ctx)
}

func TestReadOptional(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddTable("Presenca Dia 1", []string{"Código"}, []string{"CNL001"})

	rows, found, err := ReadOptional(ctx, m, TableRange("Presenca Dia 1"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, rows, 2)

	rows, found, err = ReadOptional(ctx, m, TableRange("presenca dia 1"))
	require.NoError(t, err)
	assert.True(t, found, "case-insensitive title match")
	assert.Len(t, rows, 2)

	rows, found, err = ReadOptional(ctx, m, TableRange("Presenca Dia 2"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, rows)

	boom := errors.New("transport down")
	_, _, err = ReadOptional(ctx, failingAccessor{Memory: m, listErr: boom}, TableRange("Presenca Dia 1"))
	assert.ErrorIs(t, err, boom)
}
