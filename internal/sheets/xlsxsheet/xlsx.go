// Package xlsxsheet keeps tables in a single .xlsx workbook on disk, one
// worksheet per table. The workbook is held in memory and rewritten after
// every change.
package xlsxsheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
)

// Table is the full contents of one worksheet; Rows[0] is row 1.
type Table struct {
	Title string
	Rows  [][]string
}

// ReadTables parses every worksheet of an xlsx document. Cells are read as
// their formatted text; gaps inside a row become empty strings.
func ReadTables(r io.ReaderAt, size int64) ([]Table, error) {
	wb, err := spreadsheet.Read(r, size)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}

	var out []Table
	for _, sheet := range wb.Sheets() {
		t := Table{Title: sheet.Name()}
		for _, row := range sheet.Rows() {
			rowIdx := int(row.RowNumber()) - 1
			if rowIdx < 0 {
				continue
			}
			for len(t.Rows) <= rowIdx {
				t.Rows = append(t.Rows, []string{})
			}
			var cells []string
			for _, cell := range row.Cells() {
				colName, err := cell.Column()
				if err != nil {
					continue
				}
				colIdx := int(reference.ColumnToIndex(colName))
				for len(cells) <= colIdx {
					cells = append(cells, "")
				}
				cells[colIdx] = cell.GetFormattedValue()
			}
			if cells != nil {
				t.Rows[rowIdx] = cells
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// WriteTables renders tables as worksheets of a new workbook.
func WriteTables(w io.Writer, tables ...Table) error {
	wb := spreadsheet.New()
	for _, t := range tables {
		sheet := wb.AddSheet()
		sheet.SetName(t.Title)
		for _, values := range t.Rows {
			row := sheet.AddRow()
			for _, v := range values {
				row.AddCell().SetString(v)
			}
		}
	}
	if err := wb.Save(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Workbook implements sheets.Accessor on top of an xlsx file.
type Workbook struct {
	path string

	mu  sync.Mutex
	mem *sheets.Memory
}

// Open loads the workbook at path. A missing file is an empty workbook that
// is created on the first write.
func Open(path string) (*Workbook, error) {
	w := &Workbook{path: path, mem: sheets.NewMemory()}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat workbook: %w", err)
	}
	tables, err := ReadTables(f, info.Size())
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		w.mem.AddTable(t.Title, t.Rows...)
	}
	return w, nil
}

func (w *Workbook) Path() string { return w.path }

// EnsureTable adds an empty worksheet titled title, with headerRow as row 1,
// unless one already exists.
func (w *Workbook) EnsureTable(ctx context.Context, title string, headerRow []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, found, err := sheets.FindTable(ctx, w.mem, title); err != nil || found {
		return err
	}
	if len(headerRow) > 0 {
		w.mem.AddTable(title, headerRow)
	} else {
		w.mem.AddTable(title)
	}
	return w.save()
}

func (w *Workbook) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	return w.mem.ReadRange(ctx, rng)
}

func (w *Workbook) AppendRow(ctx context.Context, rng string, row []string) error {
	return w.write(func() error { return w.mem.AppendRow(ctx, rng, row) })
}

func (w *Workbook) UpdateRange(ctx context.Context, rng string, rows [][]string) error {
	return w.write(func() error { return w.mem.UpdateRange(ctx, rng, rows) })
}

func (w *Workbook) DeleteRow(ctx context.Context, tableID int64, rowIndex int) error {
	return w.write(func() error { return w.mem.DeleteRow(ctx, tableID, rowIndex) })
}

func (w *Workbook) ListTables(ctx context.Context) ([]sheets.TableInfo, error) {
	return w.mem.ListTables(ctx)
}

func (w *Workbook) write(change func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := change(); err != nil {
		return err
	}
	return w.save()
}

// save rewrites the file through a temporary sibling so readers never see
// a half-written workbook.
func (w *Workbook) save() error {
	infos, err := w.mem.ListTables(context.Background())
	if err != nil {
		return err
	}
	tables := make([]Table, 0, len(infos))
	for _, info := range infos {
		tables = append(tables, Table{Title: info.Title, Rows: w.mem.Rows(info.Title)})
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".inscricoes-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteTables(tmp, tables...); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

var _ sheets.Accessor = (*Workbook)(nil)
