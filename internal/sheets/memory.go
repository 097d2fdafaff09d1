package sheets

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Accessor. It backs tests and the "memory"
// backend used for local runs.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	tables []*memoryTable
}

type memoryTable struct {
	info TableInfo
	grid [][]string
}

func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

// AddTable creates (or replaces the contents of) a table and returns its id.
func (m *Memory) AddTable(title string, rows ...[]string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t := m.lookup(title); t != nil {
		t.grid = CloneGrid(rows)
		return t.info.ID
	}
	t := &memoryTable{info: TableInfo{Title: title, ID: m.nextID}, grid: CloneGrid(rows)}
	m.nextID++
	m.tables = append(m.tables, t)
	return t.info.ID
}

// Rows returns a copy of every stored row of a table, header included.
func (m *Memory) Rows(title string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t := m.lookup(title); t != nil {
		return CloneGrid(t.grid)
	}
	return nil
}

func (m *Memory) lookup(title string) *memoryTable {
	for _, t := range m.tables {
		if t.info.Title == title {
			return t
		}
	}
	return nil
}

func (m *Memory) table(rng string) (*memoryTable, Range, error) {
	r, err := ParseRange(rng)
	if err != nil {
		return nil, Range{}, err
	}
	t := m.lookup(r.Table)
	if t == nil {
		return nil, Range{}, fmt.Errorf("%w: %s", ErrTableNotFound, r.Table)
	}
	return t, r, nil
}

func (m *Memory) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, r, err := m.table(rng)
	if err != nil {
		return nil, err
	}
	return Window(t.grid, r), nil
}

func (m *Memory) AppendRow(ctx context.Context, rng string, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, _, err := m.table(rng)
	if err != nil {
		return err
	}
	t.grid = append(t.grid, append([]string(nil), row...))
	return nil
}

func (m *Memory) UpdateRange(ctx context.Context, rng string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, r, err := m.table(rng)
	if err != nil {
		return err
	}
	t.grid = Overwrite(t.grid, r, rows)
	return nil
}

func (m *Memory) DeleteRow(ctx context.Context, tableID int64, rowIndex int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables {
		if t.info.ID != tableID {
			continue
		}
		if rowIndex < 1 || rowIndex > len(t.grid) {
			return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, t.info.Title, rowIndex)
		}
		t.grid = append(t.grid[:rowIndex-1], t.grid[rowIndex:]...)
		return nil
	}
	return fmt.Errorf("%w: id %d", ErrTableNotFound, tableID)
}

func (m *Memory) ListTables(ctx context.Context) ([]TableInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TableInfo, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t.info)
	}
	return out, nil
}
