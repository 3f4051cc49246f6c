package memory

import (
	"context"
	"sync"

	"launchpad/internal/storage"
)

// SequenceStore is an in-memory implementation of storage.SequenceStore.
type SequenceStore struct {
	mu       sync.Mutex
	counters map[string]uint32
}

// NewSequenceStore creates a new in-memory sequence store.
func NewSequenceStore() *SequenceStore {
	return &SequenceStore{counters: make(map[string]uint32)}
}

// Next returns the next value of the counter, starting at 1.
func (s *SequenceStore) Next(_ context.Context, name string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[name]++
	return s.counters[name], nil
}

// Verify interface compliance at compile time.
var _ storage.SequenceStore = (*SequenceStore)(nil)
