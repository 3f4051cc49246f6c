package vesting

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

type bookKey struct {
	account domain.AccountID
	reason  domain.HoldReason
}

// Book is the in-memory vesting collaborator: schedules keyed by
// (account, lock reason), mergeable in place.
type Book struct {
	mu        sync.RWMutex
	schedules map[bookKey][]Schedule
}

// NewBook creates an empty vesting book.
func NewBook() *Book {
	return &Book{schedules: make(map[bookKey][]Schedule)}
}

// Add installs a new schedule under (account, reason).
func (b *Book) Add(account domain.AccountID, reason domain.HoldReason, s Schedule) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := bookKey{account, reason}
	b.schedules[k] = append(b.schedules[k], s)
}

// Merge replaces schedules i and j under (account, reason) with their merged
// equivalent as of the given block. When nothing remains locked in either,
// both are simply removed.
func (b *Book) Merge(account domain.AccountID, reason domain.HoldReason, i, j int, now domain.BlockNumber) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := bookKey{account, reason}
	list := b.schedules[k]
	if i == j || i < 0 || j < 0 || i >= len(list) || j >= len(list) {
		return fmt.Errorf("merge schedules %d, %d of %d: %w", i, j, len(list), domain.ErrImpossibleState)
	}

	merged, ok := Merge(list[i], list[j], now)

	if i < j {
		i, j = j, i
	}
	list = append(list[:i], list[i+1:]...)
	list = append(list[:j], list[j+1:]...)
	if ok {
		list = append(list, merged)
	}
	b.schedules[k] = list
	return nil
}

// Schedules returns a copy of the schedules under (account, reason).
func (b *Book) Schedules(account domain.AccountID, reason domain.HoldReason) []Schedule {
	b.mu.RLock()
	defer b.mu.RUnlock()
	list := b.schedules[bookKey{account, reason}]
	out := make([]Schedule, len(list))
	copy(out, list)
	return out
}

// TotalLockedAt sums the still-locked amount across all schedules under
// (account, reason) at the given block.
func (b *Book) TotalLockedAt(account domain.AccountID, reason domain.HoldReason, block domain.BlockNumber) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := decimal.Zero
	for _, s := range b.schedules[bookKey{account, reason}] {
		total = total.Add(s.LockedAt(block))
	}
	return total
}
