package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries bounds Memory when no explicit limit is given.
const DefaultMaxEntries = 512

// Memory is a process-local Cache with a bounded number of entries.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

func NewMemory(maxEntries int) *Memory {
	return NewMemoryWithClock(maxEntries, time.Now)
}

// NewMemoryWithClock is NewMemory with an injectable clock for tests.
func NewMemoryWithClock(maxEntries int, now func() time.Time) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return Snapshot{}, false, nil
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return Snapshot{}, false, nil
	}
	return entry.snap.Clone(), true, nil
}

func (m *Memory) Set(_ context.Context, key string, snap Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evict(now)
	}
	m.entries[key] = memoryEntry{snap: snap.Clone(), expiresAt: now.Add(ttl)}
	return nil
}

func (m *Memory) InvalidatePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// evict drops expired entries, or failing that the one closest to expiry.
// Caller holds m.mu.
func (m *Memory) evict(now time.Time) {
	var (
		soonestKey string
		soonest    time.Time
	)
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			continue
		}
		if soonestKey == "" || entry.expiresAt.Before(soonest) {
			soonestKey, soonest = key, entry.expiresAt
		}
	}
	if len(m.entries) >= m.maxEntries && soonestKey != "" {
		delete(m.entries, soonestKey)
	}
}
