package memory

import (
	"context"
	"sync"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

// ScheduleStore is an in-memory implementation of storage.ScheduleStore.
type ScheduleStore struct {
	mu   sync.Mutex
	data map[domain.BlockNumber][]domain.ProjectID
}

// NewScheduleStore creates a new in-memory schedule store.
func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{
		data: make(map[domain.BlockNumber][]domain.ProjectID),
	}
}

// Append schedules a project at the block, spilling forward when the block
// is full. Returns the block the entry landed on.
func (s *ScheduleStore) Append(_ context.Context, block domain.BlockNumber, project domain.ProjectID) (domain.BlockNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.data[block]) >= domain.MaxTransitionsPerBlock {
		block++
	}
	s.data[block] = append(s.data[block], project)
	return block, nil
}

// Take removes and returns the projects due at the block, scheduled order.
func (s *ScheduleStore) Take(_ context.Context, block domain.BlockNumber) ([]domain.ProjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := s.data[block]
	delete(s.data, block)
	return due, nil
}

// RemoveProject drops every pending entry for a project.
func (s *ScheduleStore) RemoveProject(_ context.Context, project domain.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for block, entries := range s.data {
		kept := entries[:0]
		for _, p := range entries {
			if p != project {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(s.data, block)
		} else {
			s.data[block] = kept
		}
	}
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ScheduleStore = (*ScheduleStore)(nil)
