// Package cache holds short-lived snapshots of tables so repeated reads
// within a request burst do not each hit the tabular store.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a snapshot stays fresh.
const DefaultTTL = 1500 * time.Millisecond

// Snapshot is a table read: the header row and the data rows below it.
type Snapshot struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Clone deep-copies the snapshot so callers cannot mutate cached data.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Headers: append([]string(nil), s.Headers...)}
	if s.Rows != nil {
		out.Rows = make([][]string, len(s.Rows))
		for i, row := range s.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	return out
}

// Cache is a read-through store keyed by "<namespace>:<table>:...".
// Writers never go through it; they invalidate by prefix after writing.
type Cache interface {
	Get(ctx context.Context, key string) (Snapshot, bool, error)
	Set(ctx context.Context, key string, snap Snapshot, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}
