package sqlsheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements sheets.Accessor over the sheet_tables and sheet_rows
// tables. Row positions are the 1-based external row numbers.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

// EnsureTable returns the id of the table titled title, creating it with
// headerRow as row 1 when it does not exist yet.
func (s *Store) EnsureTable(ctx context.Context, title string, headerRow []string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, errors.New("table title is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ensure table: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.tableID(ctx, tx, title)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sheets.ErrTableNotFound) {
		return 0, err
	}

	if err := tx.QueryRowContext(ctx, s.q(`INSERT INTO sheet_tables (title) VALUES (?) RETURNING id`), title).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert table %s: %w", title, err)
	}
	if len(headerRow) > 0 {
		if err := s.insertRow(ctx, tx, id, 1, headerRow); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ensure table: %w", err)
	}
	return id, nil
}

func (s *Store) tableID(ctx context.Context, q queryer, title string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, s.q(`SELECT id FROM sheet_tables WHERE title = ?`), title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", sheets.ErrTableNotFound, title)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup table %s: %w", title, err)
	}
	return id, nil
}

// loadGrid returns the rows of a table up to position last (all rows when
// last is 0) as a grid indexed from row 1. Missing positions are empty.
func (s *Store) loadGrid(ctx context.Context, q queryer, tableID int64, first, last int) ([][]string, error) {
	query := `SELECT position, cells FROM sheet_rows WHERE table_id = ? AND position >= ?`
	args := []any{tableID, first}
	if last > 0 {
		query += ` AND position <= ?`
		args = append(args, last)
	}
	query += ` ORDER BY position`

	rows, err := q.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	defer rows.Close()

	var grid [][]string
	for rows.Next() {
		var (
			position int
			raw      string
		)
		if err := rows.Scan(&position, &raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", position, err)
		}
		for len(grid) < position {
			grid = append(grid, []string{})
		}
		if cells == nil {
			cells = []string{}
		}
		grid[position-1] = cells
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return grid, nil
}

func (s *Store) insertRow(ctx context.Context, q queryer, tableID int64, position int, cells []string) error {
	raw, err := encodeCells(cells)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, s.q(`INSERT INTO sheet_rows (table_id, position, cells) VALUES (?, ?, ?)`), tableID, position, raw); err != nil {
		return fmt.Errorf("insert row %d: %w", position, err)
	}
	return nil
}

func (s *Store) writeRow(ctx context.Context, q queryer, tableID int64, position int, cells []string) error {
	raw, err := encodeCells(cells)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, s.q(`UPDATE sheet_rows SET cells = ? WHERE table_id = ? AND position = ?`), raw, tableID, position)
	if err != nil {
		return fmt.Errorf("update row %d: %w", position, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	return s.insertRow(ctx, q, tableID, position, cells)
}

func encodeCells(cells []string) (string, error) {
	if cells == nil {
		cells = []string{}
	}
	raw, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("encode cells: %w", err)
	}
	return string(raw), nil
}

func (s *Store) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	r, err := sheets.ParseRange(rng)
	if err != nil {
		return nil, err
	}
	id, err := s.tableID(ctx, s.db, r.Table)
	if err != nil {
		return nil, err
	}
	grid, err := s.loadGrid(ctx, s.db, id, r.StartRow, r.EndRow)
	if err != nil {
		return nil, err
	}
	return sheets.Window(grid, r), nil
}

// AppendRow writes row below the last stored row of the table.
func (s *Store) AppendRow(ctx context.Context, rng string, row []string) error {
	r, err := sheets.ParseRange(rng)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.tableID(ctx, tx, r.Table)
	if err != nil {
		return err
	}
	var last int
	if err := tx.QueryRowContext(ctx, s.q(`SELECT COALESCE(MAX(position), 0) FROM sheet_rows WHERE table_id = ?`), id).Scan(&last); err != nil {
		return fmt.Errorf("find last row of %s: %w", r.Table, err)
	}
	if err := s.insertRow(ctx, tx, id, last+1, row); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// UpdateRange overwrites the cells under rng, growing rows as needed.
func (s *Store) UpdateRange(ctx context.Context, rng string, values [][]string) error {
	r, err := sheets.ParseRange(rng)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.tableID(ctx, tx, r.Table)
	if err != nil {
		return err
	}
	last := r.StartRow + len(values) - 1
	grid, err := s.loadGrid(ctx, tx, id, r.StartRow, last)
	if err != nil {
		return err
	}
	grid = sheets.Overwrite(grid, r, values)
	for position := r.StartRow; position <= last; position++ {
		if err := s.writeRow(ctx, tx, id, position, grid[position-1]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// DeleteRow removes a row and moves every row below it up by one.
func (s *Store) DeleteRow(ctx context.Context, tableID int64, rowIndex int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var title string
	err = tx.QueryRowContext(ctx, s.q(`SELECT title FROM sheet_tables WHERE id = ?`), tableID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", sheets.ErrTableNotFound, tableID)
	}
	if err != nil {
		return fmt.Errorf("lookup table %d: %w", tableID, err)
	}

	var last int
	if err := tx.QueryRowContext(ctx, s.q(`SELECT COALESCE(MAX(position), 0) FROM sheet_rows WHERE table_id = ?`), tableID).Scan(&last); err != nil {
		return fmt.Errorf("find last row of %s: %w", title, err)
	}
	if rowIndex < 1 || rowIndex > last {
		return fmt.Errorf("%w: %s row %d", sheets.ErrRowOutOfRange, title, rowIndex)
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM sheet_rows WHERE table_id = ? AND position = ?`), tableID, rowIndex); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", rowIndex, title, err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`UPDATE sheet_rows SET position = position - 1 WHERE table_id = ? AND position > ?`), tableID, rowIndex); err != nil {
		return fmt.Errorf("shift rows of %s: %w", title, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *Store) ListTables(ctx context.Context) ([]sheets.TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM sheet_tables ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []sheets.TableInfo
	for rows.Next() {
		var t sheets.TableInfo
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return out, nil
}

var _ sheets.Accessor = (*Store)(nil)
