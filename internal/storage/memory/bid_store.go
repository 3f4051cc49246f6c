package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

// BidStore is an in-memory implementation of storage.BidStore.
type BidStore struct {
	mu    sync.RWMutex
	data  map[participationKey]*domain.Bid
	order map[domain.ProjectID][]participationKey
}

// NewBidStore creates a new in-memory bid store.
func NewBidStore() *BidStore {
	return &BidStore{
		data:  make(map[participationKey]*domain.Bid),
		order: make(map[domain.ProjectID][]participationKey),
	}
}

// Insert adds a new bid. Returns ErrDuplicateKey if the key exists.
func (s *BidStore) Insert(_ context.Context, b *domain.Bid) error {
	if b == nil || b.Account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := participationKey{b.Project, b.Account, b.ID}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	bidCopy := *b
	s.data[k] = &bidCopy
	s.order[b.Project] = append(s.order[b.Project], k)
	return nil
}

// Get retrieves one bid. Returns ErrNotFound if not exists.
func (s *BidStore) Get(_ context.Context, project domain.ProjectID, account domain.AccountID, id uint32) (*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[participationKey{project, account, id}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	bidCopy := *b
	return &bidCopy, nil
}

// Update replaces a stored bid. Returns ErrNotFound if not exists.
func (s *BidStore) Update(_ context.Context, b *domain.Bid) error {
	if b == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := participationKey{b.Project, b.Account, b.ID}
	if _, exists := s.data[k]; !exists {
		return storage.ErrNotFound
	}
	bidCopy := *b
	s.data[k] = &bidCopy
	return nil
}

// Remove deletes one bid. Returns ErrNotFound if not exists.
func (s *BidStore) Remove(_ context.Context, project domain.ProjectID, account domain.AccountID, id uint32) error {
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

// ListByProject retrieves all bids for a project, insertion order.
func (s *BidStore) ListByProject(_ context.Context, project domain.ProjectID) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.order[project]
	result := make([]*domain.Bid, 0, len(keys))
	for _, k := range keys {
		bidCopy := *s.data[k]
		result = append(result, &bidCopy)
	}
	return result, nil
}

// SumUSDByIdentity sums the original USD tickets of an identity's bids.
func (s *BidStore) SumUSDByIdentity(_ context.Context, project domain.ProjectID, identity domain.Identity) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, k := range s.order[project] {
		b := s.data[k]
		if b.Identity == identity {
			total = total.Add(b.OriginalCTUSDPrice.Mul(b.OriginalCTAmount).Floor())
		}
	}
	return total, nil
}

// HasWinningBid reports whether the identity holds a winning bid.
func (s *BidStore) HasWinningBid(_ context.Context, project domain.ProjectID, identity domain.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range s.order[project] {
		b := s.data[k]
		if b.Identity == identity && b.IsWinning() {
			return true, nil
		}
	}
	return false, nil
}

// Count returns the number of bids left for a project.
func (s *BidStore) Count(_ context.Context, project domain.ProjectID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order[project]), nil
}

// CountByAccount returns the number of an account's bids on a project.
func (s *BidStore) CountByAccount(_ context.Context, project domain.ProjectID, account domain.AccountID) (int, error) {
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
var _ storage.BidStore = (*BidStore)(nil)
