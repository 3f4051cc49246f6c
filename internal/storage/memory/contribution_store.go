package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

// ContributionStore is an in-memory implementation of storage.ContributionStore.
type ContributionStore struct {
	mu    sync.RWMutex
	data  map[participationKey]*domain.Contribution
	order map[domain.ProjectID][]participationKey
}

// NewContributionStore creates a new in-memory contribution store.
func NewContributionStore() *ContributionStore {
	return &ContributionStore{
		data:  make(map[participationKey]*domain.Contribution),
		order: make(map[domain.ProjectID][]participationKey),
	}
}

// Insert adds a new contribution. Returns ErrDuplicateKey if the key exists.
func (s *ContributionStore) Insert(_ context.Context, c *domain.Contribution) error {
	if c == nil || c.Account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := participationKey{c.Project, c.Account, c.ID}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	contCopy := *c
	s.data[k] = &contCopy
	s.order[c.Project] = append(s.order[c.Project], k)
	return nil
}

// Get retrieves one contribution. Returns ErrNotFound if not exists.
func (s *ContributionStore) Get(_ context.Context, project domain.ProjectID, account domain.AccountID, id uint32) (*domain.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[participationKey{project, account, id}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	contCopy := *c
	return &contCopy, nil
}

// Remove deletes one contribution. Returns ErrNotFound if not exists.
func (s *ContributionStore) Remove(_ context.Context, project domain.ProjectID, account domain.AccountID, id uint32) error {
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

// ListByProject retrieves all contributions for a project, insertion order.
func (s *ContributionStore) ListByProject(_ context.Context, project domain.ProjectID) ([]*domain.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.order[project]
	result := make([]*domain.Contribution, 0, len(keys))
	for _, k := range keys {
		contCopy := *s.data[k]
		result = append(result, &contCopy)
	}
	return result, nil
}

// SumUSDByIdentity sums the USD tickets of an identity's contributions.
func (s *ContributionStore) SumUSDByIdentity(_ context.Context, project domain.ProjectID, identity domain.Identity) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, k := range s.order[project] {
		c := s.data[k]
		if c.Identity == identity {
			total = total.Add(c.USDTicket)
		}
	}
	return total, nil
}

// Count returns the number of contributions left for a project.
func (s *ContributionStore) Count(_ context.Context, project domain.ProjectID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order[project]), nil
}

// CountByAccount returns the number of an account's contributions on a
// project.
func (s *ContributionStore) CountByAccount(_ context.Context, project domain.ProjectID, account domain.AccountID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, k := range s.order[project] {
		if k.account == account {
			n++
		}
	}
	return n, nil
}

// Verify interface compliance at compile time.
var _ storage.ContributionStore = (*ContributionStore)(nil)
