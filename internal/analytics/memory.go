package analytics

import (
	"context"
	"sync"

	"launchpad/internal/domain"
)

// MemoryRecorder collects snapshots in memory, for tests and the simulator.
type MemoryRecorder struct {
	mu    sync.RWMutex
	snaps []FundingSnapshot
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends one snapshot.
func (r *MemoryRecorder) Record(_ context.Context, snap FundingSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return nil
}

// ByProject returns the recorded snapshots for a project in arrival order.
func (r *MemoryRecorder) ByProject(project domain.ProjectID) []FundingSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []FundingSnapshot
	for _, snap := range r.snaps {
		if snap.Project == project {
			out = append(out, snap)
		}
	}
	return out
}

// Len reports the total number of snapshots recorded.
func (r *MemoryRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snaps)
}
