package sampling

import (
	"context"
	"sync"
)

// DeltaStore persists the prior tick's counter values, keyed by
// process name. One store instance serves exactly one counter kind;
// kinds never share a store, so one kind's rewrite cannot corrupt
// another's.
//
// The read-then-replace sequence within a tick is single-writer by
// construction (one timer per kind), so implementations only need to
// be safe against concurrent readers.
type DeltaStore interface {
	// Load returns the full prior snapshot. A process absent from the
	// result has an implicit prior value of 0.
	Load(ctx context.Context) (map[string]int64, error)

	// Replace discards all prior entries and installs the snapshot
	// wholesale. Stale entries for processes no longer present are
	// purged as part of the rewrite, not incrementally.
	Replace(ctx context.Context, snapshot map[string]int64) error
}

// MemoryDeltaStore is an in-memory DeltaStore. This is the default;
// deltas restart from zero when the host process restarts.
type MemoryDeltaStore struct {
	mu    sync.RWMutex
	prior map[string]int64
}

// NewMemoryDeltaStore creates an empty in-memory store
func NewMemoryDeltaStore() *MemoryDeltaStore {
	return &MemoryDeltaStore{
		prior: make(map[string]int64),
	}
}

// Load returns a copy of the prior snapshot
func (m *MemoryDeltaStore) Load(ctx context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(m.prior))
	for name, value := range m.prior {
		out[name] = value
	}
	return out, nil
}

// Replace installs the snapshot wholesale
func (m *MemoryDeltaStore) Replace(ctx context.Context, snapshot map[string]int64) error {
	next := make(map[string]int64, len(snapshot))
	for name, value := range snapshot {
		next[name] = value
	}

	m.mu.Lock()
	m.prior = next
	m.mu.Unlock()
	return nil
}
