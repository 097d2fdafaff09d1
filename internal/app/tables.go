package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/cache"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/headers"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
)

// Cache namespaces. Keys are "<namespace>:<table>:all" and writers drop
// "<namespace>:<table>:".
const (
	nsRecords    = "records"
	nsVotes      = "votes"
	nsAttendance = "attendance"
)

// firstDataRow is the external row number of the first row under the header.
const firstDataRow = 2

// table is one read of a logical table: its schema and data rows, where
// rows[i] lives at external row i+firstDataRow.
type table struct {
	name   string
	schema headers.Schema
	rows   [][]string
}

func tableFromSnapshot(name string, snap cache.Snapshot) table {
	return table{name: name, schema: headers.NewSchema(snap.Headers), rows: snap.Rows}
}

func (t table) record(i int) Record {
	fields := t.schema.RecordFromRow(t.rows[i])
	if v, ok := fields[keyIdentifier]; ok {
		fields[keyIdentifier] = unquoteIdentifier(v)
	}
	return Record{Fields: fields, RowIndex: i + firstDataRow}
}

func (t table) cell(i int, key string) string {
	return t.schema.Cell(t.rows[i], key)
}

// tableLoader is the read-through path from services to the accessor.
// Cache failures are logged and bypassed; store failures are returned.
type tableLoader struct {
	sheets sheets.Accessor
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func cacheKey(ns, name string) string {
	return ns + ":" + name + ":all"
}

func cachePrefix(ns, name string) string {
	return ns + ":" + name + ":"
}

func (l *tableLoader) load(ctx context.Context, ns, name string) (table, error) {
	if t, ok := l.cached(ctx, ns, name); ok {
		return t, nil
	}
	return l.loadFresh(ctx, ns, name)
}

// loadFresh reads the store directly and refreshes the cache entry.
func (l *tableLoader) loadFresh(ctx context.Context, ns, name string) (table, error) {
	rows, err := l.sheets.ReadRange(ctx, sheets.TableRange(name).String())
	if err != nil {
		return table{}, storeError("read "+name, err)
	}
	return l.store(ctx, ns, name, rows), nil
}

// loadOptional is load for tables that may not exist. Absence is not
// cached, so a table created later is picked up on the next call.
func (l *tableLoader) loadOptional(ctx context.Context, ns, name string) (table, bool, error) {
	if t, ok := l.cached(ctx, ns, name); ok {
		return t, true, nil
	}
	rows, found, err := sheets.ReadOptional(ctx, l.sheets, sheets.TableRange(name))
	if err != nil {
		return table{}, false, transportError("read "+name, err)
	}
	if !found {
		return table{}, false, nil
	}
	return l.store(ctx, ns, name, rows), true, nil
}

func (l *tableLoader) cached(ctx context.Context, ns, name string) (table, bool) {
	key := cacheKey(ns, name)
	snap, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.Warn("cache read failed", "key", key, "error", err)
		return table{}, false
	}
	if !ok {
		return table{}, false
	}
	return tableFromSnapshot(name, snap), true
}

func (l *tableLoader) store(ctx context.Context, ns, name string, rows [][]string) table {
	var snap cache.Snapshot
	if len(rows) > 0 {
		snap.Headers = rows[0]
		snap.Rows = rows[1:]
	}
	key := cacheKey(ns, name)
	if err := l.cache.Set(ctx, key, snap, l.ttl); err != nil {
		l.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return tableFromSnapshot(name, snap)
}

// invalidate drops every cached view of a table after a write. A failure
// only means readers may see the previous snapshot until it expires.
func (l *tableLoader) invalidate(ctx context.Context, ns, name string) {
	prefix := cachePrefix(ns, name)
	if err := l.cache.InvalidatePrefix(ctx, prefix); err != nil {
		l.logger.Warn("cache invalidation failed", "prefix", prefix, "error", err)
	}
}

// readSchema reads the header row straight from the store.
func readSchema(ctx context.Context, acc sheets.Accessor, name string) (headers.Schema, error) {
	rows, err := acc.ReadRange(ctx, sheets.HeaderRange(name).String())
	if err != nil {
		return headers.Schema{}, storeError("read headers of "+name, err)
	}
	if len(rows) == 0 {
		return headers.NewSchema(nil), nil
	}
	return headers.NewSchema(rows[0]), nil
}

// readRow reads one full row straight from the store. ok is false when
// the row holds no data.
func readRow(ctx context.Context, acc sheets.Accessor, name string, rowIndex, width int) ([]string, bool, error) {
	rows, err := acc.ReadRange(ctx, sheets.RowRange(name, rowIndex, width).String())
	if err != nil {
		return nil, false, storeError("read row of "+name, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	row := rows[0]
	for _, cell := range row {
		if cell != "" {
			return row, true, nil
		}
	}
	return row, false, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, sheets.ErrTableNotFound) {
		e := notFoundError("TABLE_NOT_FOUND", op+": table not found")
		e.Err = err
		return e
	}
	if errors.Is(err, sheets.ErrRowOutOfRange) {
		return rowOutOfRangeError(op, err)
	}
	return transportError(op, err)
}
