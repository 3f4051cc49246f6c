package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

// ProjectRecord aggregates everything persisted per project: the frozen
// metadata, the mutable details and the auction bucket ladder.
type ProjectRecord struct {
	ID       domain.ProjectID
	Metadata domain.ProjectMetadata
	Details  domain.ProjectDetails
	Ladder   domain.BucketLadder
}

// ProjectStore provides access to project storage.
type ProjectStore interface {
	// Create inserts a new project under the next incrementing id and
	// returns it.
	Create(ctx context.Context, rec *ProjectRecord) (domain.ProjectID, error)

	// Get retrieves a project by id. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id domain.ProjectID) (*ProjectRecord, error)

	// Update replaces the stored record. Returns ErrNotFound if not exists.
	Update(ctx context.Context, rec *ProjectRecord) error

	// Delete removes a project. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id domain.ProjectID) error

	// ActiveByIssuerIdentity returns the issuer identity's project that has
	// not reached SettlementFinished. Returns ErrNotFound if none.
	ActiveByIssuerIdentity(ctx context.Context, identity domain.Identity) (*ProjectRecord, error)
}

// EvaluationStore provides access to evaluation storage.
type EvaluationStore interface {
	// Insert adds a new evaluation. Returns ErrDuplicateKey if
	// (project, account, id) exists.
	Insert(ctx context.Context, e *domain.Evaluation) error

	// Get retrieves one evaluation. Returns ErrNotFound if not exists.
	Get(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) (*domain.Evaluation, error)

	// Update replaces a stored evaluation. Returns ErrNotFound if not exists.
	Update(ctx context.Context, e *domain.Evaluation) error

	// Remove deletes one evaluation. Returns ErrNotFound if not exists.
	Remove(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) error

	// ListByProject retrieves all evaluations for a project, insertion order.
	ListByProject(ctx context.Context, project domain.ProjectID) ([]*domain.Evaluation, error)

	// ListByAccount retrieves an account's evaluations for a project.
	ListByAccount(ctx context.Context, project domain.ProjectID, account domain.AccountID) ([]*domain.Evaluation, error)

	// Count returns the number of evaluations left for a project.
	Count(ctx context.Context, project domain.ProjectID) (int, error)
}

// BidStore provides access to bid storage.
type BidStore interface {
	// Insert adds a new bid. Returns ErrDuplicateKey if (project, account, id) exists.
	Insert(ctx context.Context, b *domain.Bid) error

	// Get retrieves one bid. Returns ErrNotFound if not exists.
	Get(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) (*domain.Bid, error)

	// Update replaces a stored bid. Returns ErrNotFound if not exists.
	Update(ctx context.Context, b *domain.Bid) error

	// Remove deletes one bid. Returns ErrNotFound if not exists.
	Remove(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) error

	// ListByProject retrieves all bids for a project, insertion order.
	ListByProject(ctx context.Context, project domain.ProjectID) ([]*domain.Bid, error)

	// SumUSDByIdentity sums the original USD ticket of an identity's bids on
	// a project, for aggregate ticket caps.
	SumUSDByIdentity(ctx context.Context, project domain.ProjectID, identity domain.Identity) (decimal.Decimal, error)

	// HasWinningBid reports whether the identity holds an accepted or
	// partially accepted bid on the project.
	HasWinningBid(ctx context.Context, project domain.ProjectID, identity domain.Identity) (bool, error)

	// Count returns the number of bids left for a project.
	Count(ctx context.Context, project domain.ProjectID) (int, error)

	// CountByAccount returns the number of an account's bids on a project.
	CountByAccount(ctx context.Context, project domain.ProjectID, account domain.AccountID) (int, error)
}

// ContributionStore provides access to contribution storage.
type ContributionStore interface {
	// Insert adds a new contribution. Returns ErrDuplicateKey if
	// (project, account, id) exists.
	Insert(ctx context.Context, c *domain.Contribution) error

	// Get retrieves one contribution. Returns ErrNotFound if not exists.
	Get(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) (*domain.Contribution, error)

	// Remove deletes one contribution. Returns ErrNotFound if not exists.
	Remove(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) error

	// ListByProject retrieves all contributions for a project, insertion order.
	ListByProject(ctx context.Context, project domain.ProjectID) ([]*domain.Contribution, error)

	// SumUSDByIdentity sums the USD tickets of an identity's contributions
	// on a project.
	SumUSDByIdentity(ctx context.Context, project domain.ProjectID, identity domain.Identity) (decimal.Decimal, error)

	// Count returns the number of contributions left for a project.
	Count(ctx context.Context, project domain.ProjectID) (int, error)

	// CountByAccount returns the number of an account's contributions on a
	// project.
	CountByAccount(ctx context.Context, project domain.ProjectID, account domain.AccountID) (int, error)
}

// ScheduleStore maps future blocks to the projects due to transition there.
type ScheduleStore interface {
	// Append schedules a project at the block, spilling to the following
	// block when the per-block capacity is reached. Returns the block the
	// entry landed on.
	Append(ctx context.Context, block domain.BlockNumber, project domain.ProjectID) (domain.BlockNumber, error)

	// Take removes and returns the projects due at the block, scheduled order.
	Take(ctx context.Context, block domain.BlockNumber) ([]domain.ProjectID, error)

	// RemoveProject drops every pending entry for a project.
	RemoveProject(ctx context.Context, project domain.ProjectID) error
}

// SequenceStore hands out incrementing ids per named counter.
type SequenceStore interface {
	// Next returns the next value of the counter, starting at 1.
	Next(ctx context.Context, name string) (uint32, error)
}

// Participation counter names.
const (
	SeqEvaluations   = "evaluations"
	SeqBids          = "bids"
	SeqContributions = "contributions"
)
