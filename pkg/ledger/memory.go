package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and one-shot runs.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []*Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Record implements Store.
func (s *MemoryStore) Record(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.nextID++
	s.entries = append(s.entries, &stored)

	entry.ID = stored.ID
	entry.CreatedAt = stored.CreatedAt
	return nil
}

// ListRun implements Store.
func (s *MemoryStore) ListRun(ctx context.Context, runID string) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Entry
	for _, e := range s.entries {
		if e.RunID == runID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Prune implements Store.
func (s *MemoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var removed int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
