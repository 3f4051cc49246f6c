package memory

import (
	"context"
	"sync"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

// ProjectStore is an in-memory implementation of storage.ProjectStore.
type ProjectStore struct {
	mu     sync.RWMutex
	data   map[domain.ProjectID]*storage.ProjectRecord
	nextID domain.ProjectID
}

// NewProjectStore creates a new in-memory project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		data:   make(map[domain.ProjectID]*storage.ProjectRecord),
		nextID: 1,
	}
}

// Create inserts a new project under the next incrementing id.
func (s *ProjectStore) Create(_ context.Context, rec *storage.ProjectRecord) (domain.ProjectID, error) {
	if rec == nil {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	recCopy := copyRecord(rec)
	recCopy.ID = id
	recCopy.Details.ProjectID = id
	s.data[id] = recCopy
	return id, nil
}

// Get retrieves a project by id. Returns ErrNotFound if not exists.
func (s *ProjectStore) Get(_ context.Context, id domain.ProjectID) (*storage.ProjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRecord(rec), nil
}

// Update replaces the stored record. Returns ErrNotFound if not exists.
func (s *ProjectStore) Update(_ context.Context, rec *storage.ProjectRecord) error {
	if rec == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.ID]; !exists {
		return storage.ErrNotFound
	}
	s.data[rec.ID] = copyRecord(rec)
	return nil
}

// Delete removes a project. Returns ErrNotFound if not exists.
func (s *ProjectStore) Delete(_ context.Context, id domain.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// ActiveByIssuerIdentity returns the identity's not-yet-settled project.
func (s *ProjectStore) ActiveByIssuerIdentity(_ context.Context, identity domain.Identity) (*storage.ProjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.data {
		if rec.Details.IssuerIdentity == identity && !rec.Details.Status.IsTerminal() {
			return copyRecord(rec), nil
		}
	}
	return nil, storage.ErrNotFound
}

// copyRecord deep-copies a project record, including the bucket ladder.
func copyRecord(rec *storage.ProjectRecord) *storage.ProjectRecord {
	recCopy := *rec
	if rec.Ladder != nil {
		recCopy.Ladder = make(domain.BucketLadder, len(rec.Ladder))
		copy(recCopy.Ladder, rec.Ladder)
	}
	if rec.Metadata.ParticipationCurrencies != nil {
		recCopy.Metadata.ParticipationCurrencies = append([]domain.AssetID(nil),
			rec.Metadata.ParticipationCurrencies...)
	}
	if rec.Details.RoundEnd != nil {
		v := *rec.Details.RoundEnd
		recCopy.Details.RoundEnd = &v
	}
	if rec.Details.WeightedAveragePrice != nil {
		v := *rec.Details.WeightedAveragePrice
		recCopy.Details.WeightedAveragePrice = &v
	}
	if rec.Details.EvaluationRoundInfo.Rewards != nil {
		v := *rec.Details.EvaluationRoundInfo.Rewards
		recCopy.Details.EvaluationRoundInfo.Rewards = &v
	}
	return &recCopy
}

// Verify interface compliance at compile time.
var _ storage.ProjectStore = (*ProjectStore)(nil)
