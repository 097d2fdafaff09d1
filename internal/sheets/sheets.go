// Package sheets defines the range-addressed accessor every tabular
// backend implements, plus the A1 range codec shared by all of them.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTableNotFound is returned when a range names a table that does not exist.
	ErrTableNotFound = errors.New("table not found")
	// ErrInvalidRange is returned for malformed A1 ranges.
	ErrInvalidRange = errors.New("invalid range")
	// ErrRowOutOfRange is returned by DeleteRow for a row the table does not have.
	ErrRowOutOfRange = errors.New("row out of range")
)

// TableInfo identifies a table by title and backend-assigned numeric id.
type TableInfo struct {
	Title string `json:"title"`
	ID    int64  `json:"id"`
}

// Accessor is the single integration point to the tabular store. Row
// numbers are 1-based and include the header row.
type Accessor interface {
	ReadRange(ctx context.Context, rng string) ([][]string, error)
	AppendRow(ctx context.Context, rng string, row []string) error
	UpdateRange(ctx context.Context, rng string, rows [][]string) error
	DeleteRow(ctx context.Context, tableID int64, rowIndex int) error
	ListTables(ctx context.Context) ([]TableInfo, error)
}

// FindTable looks a table up by title. Exact matches win over
// case-insensitive ones.
func FindTable(ctx context.Context, acc Accessor, title string) (TableInfo, bool, error) {
	tables, err := acc.ListTables(ctx)
	if err != nil {
		return TableInfo{}, false, fmt.Errorf("list tables: %w", err)
	}
	for _, t := range tables {
		if t.Title == title {
			return t, true, nil
		}
	}
	for _, t := range tables {
		if strings.EqualFold(t.Title, title) {
			return t, true, nil
		}
	}
	return TableInfo{}, false, nil
}

// ReadOptional reads rng from a table that may legitimately be absent.
// A missing table yields (nil, false, nil); any other failure is returned.
func ReadOptional(ctx context.Context, acc Accessor, rng Range) ([][]string, bool, error) {
	info, ok, err := FindTable(ctx, acc, rng.Table)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	rng.Table = info.Title
	rows, err := acc.ReadRange(ctx, rng.String())
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}
