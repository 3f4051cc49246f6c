package postgres

import (
	"context"
	"fmt"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

// ScheduleStore implements storage.ScheduleStore using PostgreSQL.
type ScheduleStore struct {
	pool *Pool
}

// NewScheduleStore creates a new ScheduleStore.
func NewScheduleStore(pool *Pool) *ScheduleStore {
	return &ScheduleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScheduleStore = (*ScheduleStore)(nil)

// Append schedules a project at the block, spilling forward while the
// per-block capacity is full. Returns the block the entry landed on.
func (s *ScheduleStore) Append(ctx context.Context, block domain.BlockNumber, project domain.ProjectID) (domain.BlockNumber, error) {
	landing := block
	for {
		var count int
		err := s.pool.QueryRow(ctx,
			`SELECT count(*) FROM transition_schedule WHERE block = $1`,
			int64(landing)).Scan(&count)
		if err != nil {
			return 0, fmt.Errorf("count scheduled transitions: %w", err)
		}
		if count < domain.MaxTransitionsPerBlock {
			break
		}
		landing++
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO transition_schedule (block, project) VALUES ($1, $2)
	`, int64(landing), int64(project))
	if err != nil {
		return 0, fmt.Errorf("append transition: %w", err)
	}
	return landing, nil
}

// Take removes and returns the projects due at the block, scheduled order.
func (s *ScheduleStore) Take(ctx context.Context, block domain.BlockNumber) ([]domain.ProjectID, error) {
	rows, err := s.pool.Query(ctx, `
		DELETE FROM transition_schedule
		WHERE block = $1
		RETURNING project, seq
	`, int64(block))
	if err != nil {
		return nil, fmt.Errorf("take due transitions: %w", err)
	}
	defer rows.Close()

	type entry struct {
		project int64
		seq     int64
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.project, &e.seq); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DELETE ... RETURNING has no defined order.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].seq < entries[j-1].seq; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	projects := make([]domain.ProjectID, 0, len(entries))
	for _, e := range entries {
		projects = append(projects, domain.ProjectID(e.project))
	}
	return projects, nil
}

// RemoveProject drops every pending entry for a project.
func (s *ScheduleStore) RemoveProject(ctx context.Context, project domain.ProjectID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM transition_schedule WHERE project = $1`, int64(project))
	if err != nil {
		return fmt.Errorf("remove scheduled transitions: %w", err)
	}
	return nil
}
