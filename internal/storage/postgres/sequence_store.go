package postgres

import (
	"context"
	"fmt"

	"launchpad/internal/storage"
)

// SequenceStore implements storage.SequenceStore using PostgreSQL.
type SequenceStore struct {
	pool *Pool
}

// NewSequenceStore creates a new SequenceStore.
func NewSequenceStore(pool *Pool) *SequenceStore {
	return &SequenceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SequenceStore = (*SequenceStore)(nil)

// Next returns the next value of the counter, starting at 1.
func (s *SequenceStore) Next(ctx context.Context, name string) (uint32, error) {
	var value int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value
	`, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("next sequence value: %w", err)
	}
	return uint32(value), nil
}
