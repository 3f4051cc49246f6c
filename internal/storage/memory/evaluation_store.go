package memory

import (
	"context"
	"sync"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

type participationKey struct {
	project domain.ProjectID
	account domain.AccountID
	id      uint32
}

// EvaluationStore is an in-memory implementation of storage.EvaluationStore.
type EvaluationStore struct {
	mu   sync.RWMutex
	data map[participationKey]*domain.Evaluation
	// order preserves insertion order per project
	order map[domain.ProjectID][]participationKey
}

// NewEvaluationStore creates a new in-memory evaluation store.
func NewEvaluationStore() *EvaluationStore {
	return &EvaluationStore{
		data:  make(map[participationKey]*domain.Evaluation),
		order: make(map[domain.ProjectID][]participationKey),
	}
}

// Insert adds a new evaluation. Returns ErrDuplicateKey if the key exists.
func (s *EvaluationStore) Insert(_ context.Context, e *domain.Evaluation) error {
	if e == nil || e.Account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := participationKey{e.Project, e.Account, e.ID}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	evalCopy := *e
	s.data[k] = &evalCopy
	s.order[e.Project] = append(s.order[e.Project], k)
	return nil
}

// Get retrieves one evaluation. Returns ErrNotFound if not exists.
func (s *EvaluationStore) Get(_ context.Context, project domain.ProjectID, account domain.AccountID, id uint32) (*domain.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[participationKey{project, account, id}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	evalCopy := *e
	return &evalCopy, nil
}

// Update replaces a stored evaluation. Returns ErrNotFound if not exists.
func (s *EvaluationStore) Update(_ context.Context, e *domain.Evaluation) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := participationKey{e.Project, e.Account, e.ID}
	if _, exists := s.data[k]; !exists {
		return storage.ErrNotFound
	}
	evalCopy := *e
	s.data[k] = &evalCopy
	return nil
}

// Remove deletes one evaluation. Returns ErrNotFound if not exists.
func (s *EvaluationStore) Remove(_ context.Context, project domain.ProjectID, account domain.AccountID, id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := participationKey{project, account, id}
	if _, exists := s.data[k]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, k)

	keys := s.order[project]
	for i, ok := range keys {
		if ok == k {
			s.order[project] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	return nil
}

// ListByProject retrieves all evaluations for a project, insertion order.
func (s *EvaluationStore) ListByProject(_ context.Context, project domain.ProjectID) ([]*domain.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.order[project]
	result := make([]*domain.Evaluation, 0, len(keys))
	for _, k := range keys {
		evalCopy := *s.data[k]
		result = append(result, &evalCopy)
	}
	return result, nil
}

// ListByAccount retrieves an account's evaluations for a project.
func (s *EvaluationStore) ListByAccount(_ context.Context, project domain.ProjectID, account domain.AccountID) ([]*domain.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Evaluation
	for _, k := range s.order[project] {
		if k.account == account {
			evalCopy := *s.data[k]
			result = append(result, &evalCopy)
		}
	}
	return result, nil
}

// Count returns the number of evaluations left for a project.
func (s *EvaluationStore) Count(_ context.Context, project domain.ProjectID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order[project]), nil
}

// Verify interface compliance at compile time.
var _ storage.EvaluationStore = (*EvaluationStore)(nil)
