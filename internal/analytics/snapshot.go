// Package analytics captures per-block funding telemetry for offline
// analysis. Snapshots are append-only and idempotent per (project, block).
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

// FundingSnapshot is one project's funding state at a block transition.
type FundingSnapshot struct {
	Project domain.ProjectID
	Block   domain.BlockNumber
	Status  domain.ProjectStatus

	RaisedUSD            decimal.Decimal
	RemainingTokens      decimal.Decimal
	EvaluationBondedUSD  decimal.Decimal
	WeightedAveragePrice decimal.Decimal // zero until the auction closes

	ObservedAt time.Time
}

// snapshotFrom flattens a project record at a block.
func snapshotFrom(rec domain.ProjectDetails, block domain.BlockNumber, now time.Time) FundingSnapshot {
	s := FundingSnapshot{
		Project:             rec.ProjectID,
		Block:               block,
		Status:              rec.Status,
		RaisedUSD:           rec.FundingAmountReachedUSD,
		RemainingTokens:     rec.RemainingContributionTokens,
		EvaluationBondedUSD: rec.EvaluationRoundInfo.TotalBondedUSD,
		ObservedAt:          now,
	}
	if rec.WeightedAveragePrice != nil {
		s.WeightedAveragePrice = *rec.WeightedAveragePrice
	}
	return s
}

// Snapshot builds a FundingSnapshot from live project details.
func Snapshot(details domain.ProjectDetails, block domain.BlockNumber) FundingSnapshot {
	return snapshotFrom(details, block, time.Now().UTC())
}
