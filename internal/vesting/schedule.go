// Package vesting models linear-release schedules: a locked amount draining
// at a fixed per-block rate from a starting block.
package vesting

import (
	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

// Schedule is one linear vesting lock.
type Schedule struct {
	Locked        decimal.Decimal
	PerBlock      decimal.Decimal
	StartingBlock domain.BlockNumber
}

// LockedAt returns the amount still locked at the given block.
func (s Schedule) LockedAt(block domain.BlockNumber) decimal.Decimal {
	if block < s.StartingBlock {
		return s.Locked
	}
	if s.PerBlock.IsZero() {
		return s.Locked
	}
	elapsed := decimal.New(int64(block-s.StartingBlock), 0)
	released := s.PerBlock.Mul(elapsed)
	if released.GreaterThanOrEqual(s.Locked) {
		return decimal.Zero
	}
	return s.Locked.Sub(released)
}

// EndingBlock returns the first block at which nothing remains locked.
func (s Schedule) EndingBlock() domain.BlockNumber {
	if s.Locked.IsZero() {
		return s.StartingBlock
	}
	if s.PerBlock.IsZero() {
		return s.StartingBlock
	}
	blocks := s.Locked.DivRound(s.PerBlock, 8).Ceil()
	return s.StartingBlock + domain.BlockNumber(blocks.IntPart())
}

// Merge combines two schedules under one lock reason into a single schedule
// preserving the total still-locked amount at merge time. Returns false when
// nothing remains locked in either schedule.
func Merge(a, b Schedule, now domain.BlockNumber) (Schedule, bool) {
	locked := a.LockedAt(now).Add(b.LockedAt(now))
	if locked.IsZero() {
		return Schedule{}, false
	}

	ending := a.EndingBlock()
	if e := b.EndingBlock(); e > ending {
		ending = e
	}
	starting := now
	if a.StartingBlock > starting {
		starting = a.StartingBlock
	}
	if b.StartingBlock > starting {
		starting = b.StartingBlock
	}
	if ending < starting {
		ending = starting
	}

	var perBlock decimal.Decimal
	if duration := ending - starting; duration == 0 {
		perBlock = locked
	} else {
		perBlock = locked.Div(decimal.New(int64(duration), 0)).Floor()
		if perBlock.IsZero() {
			perBlock = decimal.New(1, 0)
		}
	}

	return Schedule{Locked: locked, PerBlock: perBlock, StartingBlock: starting}, true
}
