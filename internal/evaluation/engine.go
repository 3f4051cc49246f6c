// Package evaluation implements the evaluation round: bonded vouches for a
// project and the round-end verdict against the funding target.
package evaluation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"launchpad/internal/bonding"
	"launchpad/internal/domain"
	"launchpad/internal/ledger"
	"launchpad/internal/oracle"
	"launchpad/internal/storage"
)

// Engine records evaluator bonds and decides the round outcome.
type Engine struct {
	evaluations storage.EvaluationStore
	seqs        storage.SequenceStore
	assets      ledger.AssetLedger
	prices      oracle.PriceProvider
}

// Options configures the evaluation engine.
type Options struct {
	Evaluations storage.EvaluationStore
	Seqs        storage.SequenceStore
	Assets      ledger.AssetLedger
	Prices      oracle.PriceProvider
}

// New creates an evaluation engine.
func New(opts Options) *Engine {
	return &Engine{
		evaluations: opts.Evaluations,
		seqs:        opts.Seqs,
		assets:      opts.Assets,
		prices:      opts.Prices,
	}
}

// EvaluateParams describe one incoming evaluation.
type EvaluateParams struct {
	Account   domain.AccountID
	Identity  domain.Identity
	USDAmount decimal.Decimal
	Policy    string // participation policy the evaluator accepted
}

// SuccessThresholdUSD is the bonded USD needed for the round to pass, and
// the cumulative bar below which bonded USD counts as early.
func SuccessThresholdUSD(target decimal.Decimal) decimal.Decimal {
	return target.Mul(domain.EvaluationSuccessRate).Floor()
}

// Evaluate bonds collateral worth the USD amount (multiplier pinned to 1)
// and records the early/late split against the cumulative threshold.
func (e *Engine) Evaluate(ctx context.Context, rec *storage.ProjectRecord, p EvaluateParams, now domain.BlockNumber) (*domain.Evaluation, error) {
	if rec.Details.Status != domain.StatusEvaluationRound {
		return nil, fmt.Errorf("evaluate project %d in %s: %w",
			rec.ID, rec.Details.Status, domain.ErrIncorrectRound)
	}
	if p.Identity == rec.Details.IssuerIdentity {
		return nil, domain.ErrParticipationToOwnProject
	}
	if p.Policy != rec.Metadata.PolicyHash {
		return nil, fmt.Errorf("accepted policy %q: %w", p.Policy, domain.ErrPolicyMismatch)
	}
	if p.USDAmount.LessThan(domain.MinUSDPerEvaluation) {
		return nil, fmt.Errorf("evaluation %s below minimum %s: %w",
			p.USDAmount, domain.MinUSDPerEvaluation, domain.ErrTicketTooLow)
	}
	existing, err := e.evaluations.ListByAccount(ctx, rec.ID, p.Account)
	if err != nil {
		return nil, fmt.Errorf("list account evaluations: %w", err)
	}
	if len(existing) >= domain.MaxParticipationsPerUser {
		return nil, fmt.Errorf("account %s holds %d evaluations: %w",
			p.Account, len(existing), domain.ErrTooManyParticipations)
	}

	plmcPrice, err := e.prices.Price(domain.AssetPLMC)
	if err != nil {
		return nil, err
	}
	bond, err := bonding.CollateralBond(p.USDAmount, plmcPrice)
	if err != nil {
		return nil, err
	}

	// Bonded USD below the threshold counts toward the early pot.
	threshold := SuccessThresholdUSD(rec.Details.FundraisingTargetUSD)
	headroom := threshold.Sub(rec.Details.EvaluationRoundInfo.TotalBondedUSD)
	early := decimal.Max(decimal.Zero, decimal.Min(p.USDAmount, headroom))
	late := p.USDAmount.Sub(early)

	id, err := e.seqs.Next(ctx, storage.SeqEvaluations)
	if err != nil {
		return nil, fmt.Errorf("next evaluation id: %w", err)
	}

	eval := &domain.Evaluation{
		ID:           id,
		Project:      rec.ID,
		Account:      p.Account,
		Identity:     p.Identity,
		OriginalBond: bond,
		CurrentBond:  bond,
		EarlyUSD:     early,
		LateUSD:      late,
		CreatedAt:    now,
	}
	if err := e.evaluations.Insert(ctx, eval); err != nil {
		return nil, fmt.Errorf("insert evaluation: %w", err)
	}

	// The bond is taken after the record exists, so a ledger failure only
	// needs the record removed to leave no trace.
	if err := e.assets.Hold(p.Account, domain.HoldEvaluation, bond); err != nil {
		err = fmt.Errorf("lock evaluation bond: %w", err)
		if rerr := e.evaluations.Remove(ctx, rec.ID, p.Account, id); rerr != nil {
			err = fmt.Errorf("%w (evaluation record removal failed: %v)", err, rerr)
		}
		return nil, err
	}

	rec.Details.EvaluationRoundInfo.TotalBondedUSD = rec.Details.EvaluationRoundInfo.TotalBondedUSD.Add(p.USDAmount)
	rec.Details.EvaluationRoundInfo.EarlyBondedUSD = rec.Details.EvaluationRoundInfo.EarlyBondedUSD.Add(early)
	return eval, nil
}

// RoundPassed reports whether the bonded total reached the success threshold.
func RoundPassed(details domain.ProjectDetails) bool {
	threshold := SuccessThresholdUSD(details.FundraisingTargetUSD)
	return details.EvaluationRoundInfo.TotalBondedUSD.GreaterThanOrEqual(threshold)
}
