package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMemory(max int) (*Memory, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)}
	return NewMemoryWithClock(max, clock.Now), clock
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		Headers: []string{"Código", "Nome"},
		Rows:    [][]string{{"CNL001", "Ana"}, {"CNL002", "Bruno"}},
	}
}

func TestMemoryGetReturnsSnapshotUntilExpiry(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestMemory(0)

	if err := c.Set(ctx, "records:Conselheiros:all", sampleSnapshot(), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	clock.Advance(1499 * time.Millisecond)
	snap, ok, err := c.Get(ctx, "records:Conselheiros:all")
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v err %v, want hit", ok, err)
	}
	if len(snap.Rows) != 2 || snap.Rows[1][1] != "Bruno" {
		t.Fatalf("unexpected snapshot %#v", snap)
	}

	clock.Advance(time.Millisecond)
	if _, ok, _ := c.Get(ctx, "records:Conselheiros:all"); ok {
		t.Fatal("expected entry to expire after the default TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be dropped on read, Len() = %d", c.Len())
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemory(0)
	original := sampleSnapshot()
	if err := c.Set(ctx, "k", original, time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	original.Rows[0][1] = "mutated"

	snap, _, _ := c.Get(ctx, "k")
	snap.Rows[1][1] = "mutated too"

	again, _, _ := c.Get(ctx, "k")
	if again.Rows[0][1] != "Ana" || again.Rows[1][1] != "Bruno" {
		t.Fatalf("cached snapshot was mutated: %#v", again.Rows)
	}
}

func TestMemoryInvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemory(0)
	for _, key := range []string{"records:Staff:all", "records:Staff:headers", "records:Convidados:all", "votes:Votacoes:all"} {
		if err := c.Set(ctx, key, sampleSnapshot(), time.Minute); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	if err := c.InvalidatePrefix(ctx, "records:Staff:"); err != nil {
		t.Fatalf("InvalidatePrefix() error = %v", err)
	}

	for key, want := range map[string]bool{
		"records:Staff:all":      false,
		"records:Staff:headers":  false,
		"records:Convidados:all": true,
		"votes:Votacoes:all":     true,
	} {
		if _, ok, _ := c.Get(ctx, key); ok != want {
			t.Errorf("Get(%s) hit = %v, want %v", key, ok, want)
		}
	}
}

func TestMemoryEvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestMemory(3)

	for i := 0; i < 3; i++ {
		if err := c.Set(ctx, fmt.Sprintf("k%d", i), sampleSnapshot(), time.Duration(i+1)*time.Second); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if err := c.Set(ctx, "k3", sampleSnapshot(), 10*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "k0"); ok {
		t.Fatal("entry closest to expiry should have been evicted")
	}

	clock.Advance(2500 * time.Millisecond)
	if err := c.Set(ctx, "k4", sampleSnapshot(), time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expired entries should be evicted first, Len() = %d", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "k2"); !ok {
		t.Fatal("live entry k2 should survive eviction of expired ones")
	}
}
