// Package contribution implements the community and remainder rounds:
// purchases at the fixed weighted average price under the ticket policy.
package contribution

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

// Engine validates and records contributions.
type Engine struct {
	contributions storage.ContributionStore
	bids          storage.BidStore
	evaluations   storage.EvaluationStore
	seqs          storage.SequenceStore
	assets        ledger.AssetLedger
	prices        oracle.PriceProvider
}

// Options configures the contribution engine.
type Options struct {
	Contributions storage.ContributionStore
	Bids          storage.BidStore
	Evaluations   storage.EvaluationStore
	Seqs          storage.SequenceStore
	Assets        ledger.AssetLedger
	Prices        oracle.PriceProvider
}

// New creates a contribution engine.
func New(opts Options) *Engine {
	return &Engine{
		contributions: opts.Contributions,
		bids:          opts.Bids,
		evaluations:   opts.Evaluations,
		seqs:          opts.Seqs,
		assets:        opts.Assets,
		prices:        opts.Prices,
	}
}

// ContributeParams describe one incoming purchase.
type ContributeParams struct {
	Account    domain.AccountID
	Identity   domain.Identity
	Class      domain.InvestorClass
	CTAmount   decimal.Decimal
	Multiplier uint8
	Asset      domain.AssetID
	Policy     string // participation policy the contributor accepted
}

// Contribute records a purchase at the WAP. Returns the contribution and
// whether it emptied the remaining contribution tokens.
func (e *Engine) Contribute(ctx context.Context, rec *storage.ProjectRecord, p ContributeParams, now domain.BlockNumber) (*domain.Contribution, bool, error) {
	status := rec.Details.Status
	if status != domain.StatusCommunityRound && status != domain.StatusRemainderRound {
		return nil, false, fmt.Errorf("contribute to project %d in %s: %w",
			rec.ID, status, domain.ErrIncorrectRound)
	}
	if p.Identity == rec.Details.IssuerIdentity {
		return nil, false, domain.ErrParticipationToOwnProject
	}
	if p.Policy != rec.Metadata.PolicyHash {
		return nil, false, fmt.Errorf("accepted policy %q: %w", p.Policy, domain.ErrPolicyMismatch)
	}
	if rec.Details.WeightedAveragePrice == nil {
		return nil, false, fmt.Errorf("no clearing price on project %d: %w", rec.ID, domain.ErrImpossibleState)
	}
	if !rec.Metadata.AcceptsAsset(p.Asset) {
		return nil, false, fmt.Errorf("asset %d: %w", p.Asset, domain.ErrFundingAssetNotAccepted)
	}
	if err := bonding.ValidateMultiplier(p.Class, p.Multiplier); err != nil {
		return nil, false, err
	}
	if p.CTAmount.IsZero() || p.CTAmount.IsNegative() {
		return nil, false, fmt.Errorf("non-positive contribution amount: %w", storage.ErrInvalidInput)
	}
	held, err := e.contributions.CountByAccount(ctx, rec.ID, p.Account)
	if err != nil {
		return nil, false, fmt.Errorf("count account contributions: %w", err)
	}
	if held >= domain.MaxParticipationsPerUser {
		return nil, false, fmt.Errorf("account %s holds %d contributions: %w",
			p.Account, held, domain.ErrTooManyParticipations)
	}

	// Auction winners sit out the community round; the remainder round
	// lifts the bar.
	if status == domain.StatusCommunityRound {
		winning, err := e.bids.HasWinningBid(ctx, rec.ID, p.Identity)
		if err != nil {
			return nil, false, fmt.Errorf("winning bid lookup: %w", err)
		}
		if winning {
			return nil, false, domain.ErrUserHasWinningBid
		}
	}

	remaining := rec.Details.RemainingContributionTokens
	if remaining.IsZero() || remaining.IsNegative() {
		return nil, false, domain.ErrProjectSoldOut
	}
	buyable := decimal.Min(p.CTAmount, remaining)

	wap := *rec.Details.WeightedAveragePrice
	usdTicket := wap.Mul(buyable).Floor()

	bounds := rec.Metadata.ContributingTicketSizes.For(p.Class)
	// The minimum is waived when the pool capped the purchase.
	if bounds.MinUSD != nil && buyable.Equal(p.CTAmount) && usdTicket.LessThan(*bounds.MinUSD) {
		return nil, false, fmt.Errorf("ticket %s below class minimum %s: %w",
			usdTicket, *bounds.MinUSD, domain.ErrTicketTooLow)
	}
	if bounds.MaxUSD != nil {
		prior, err := e.contributions.SumUSDByIdentity(ctx, rec.ID, p.Identity)
		if err != nil {
			return nil, false, fmt.Errorf("aggregate ticket lookup: %w", err)
		}
		if prior.Add(usdTicket).GreaterThan(*bounds.MaxUSD) {
			return nil, false, fmt.Errorf("aggregate ticket %s above class maximum %s: %w",
				prior.Add(usdTicket), *bounds.MaxUSD, domain.ErrTicketTooHigh)
		}
	}

	usdBond, err := bonding.BondingRequirement(usdTicket, p.Multiplier)
	if err != nil {
		return nil, false, err
	}
	plmcPrice, err := e.prices.Price(domain.AssetPLMC)
	if err != nil {
		return nil, false, err
	}
	plmcBond, err := bonding.CollateralBond(usdBond, plmcPrice)
	if err != nil {
		return nil, false, err
	}
	assetPrice, err := e.prices.Price(p.Asset)
	if err != nil {
		return nil, false, err
	}
	fundingAmount, err := bonding.FundingAssetAmount(usdTicket, assetPrice)
	if err != nil {
		return nil, false, err
	}

	// An earlier evaluation bond covers part of the collateral: everything
	// above the guaranteed-forfeit slash fraction is reusable.
	evals, err := e.evaluations.ListByAccount(ctx, rec.ID, p.Account)
	if err != nil {
		return nil, false, fmt.Errorf("evaluation lookup: %w", err)
	}
	usable := decimal.Zero
	for _, ev := range evals {
		deposit := ev.OriginalBond.Mul(domain.EvaluatorSlashRate).Floor()
		if headroom := ev.CurrentBond.Sub(deposit); headroom.IsPositive() {
			usable = usable.Add(headroom)
		}
	}
	reused := decimal.Min(usable, plmcBond)
	fresh := plmcBond.Sub(reused)

	id, err := e.seqs.Next(ctx, storage.SeqContributions)
	if err != nil {
		return nil, false, fmt.Errorf("next contribution id: %w", err)
	}

	// Storage writes come before any asset movement, so a backend failure
	// leaves no stranded hold or half-drained bond behind.
	var drained []bondDrain
	if reused.IsPositive() {
		drained, err = e.drainEvaluationBonds(ctx, evals, reused)
		if err != nil {
			return nil, false, err
		}
	}

	cont := &domain.Contribution{
		ID:                 id,
		Project:            rec.ID,
		Account:            p.Account,
		Identity:           p.Identity,
		Class:              p.Class,
		CTAmount:           buyable,
		USDTicket:          usdTicket,
		FundingAsset:       p.Asset,
		FundingAssetAmount: fundingAmount,
		PLMCBond:           plmcBond,
		Multiplier:         p.Multiplier,
		CreatedAt:          now,
	}
	if err := e.contributions.Insert(ctx, cont); err != nil {
		err = fmt.Errorf("insert contribution: %w", err)
		return nil, false, e.withRestoredBonds(ctx, drained, err)
	}

	// Funds move last. On failure every completed asset step is unwound
	// and the record removed, so the call is all or nothing.
	if err := e.lockFunds(cont, fresh, reused); err != nil {
		if rerr := e.contributions.Remove(ctx, rec.ID, p.Account, id); rerr != nil {
			err = fmt.Errorf("%w (contribution record removal failed: %v)", err, rerr)
		}
		return nil, false, e.withRestoredBonds(ctx, drained, err)
	}

	rec.Details.RemainingContributionTokens = remaining.Sub(buyable)
	rec.Details.FundingAmountReachedUSD = rec.Details.FundingAmountReachedUSD.Add(usdTicket)
	return cont, rec.Details.RemainingContributionTokens.IsZero(), nil
}

// bondDrain records one persisted CurrentBond reduction so it can be
// restored if a later step fails.
type bondDrain struct {
	eval *domain.Evaluation
	take decimal.Decimal
}

// drainEvaluationBonds reduces evaluation bonds oldest first until amount
// is covered, persisting each step. Everything above the guaranteed-forfeit
// slash fraction is fair game.
func (e *Engine) drainEvaluationBonds(ctx context.Context, evals []*domain.Evaluation, amount decimal.Decimal) ([]bondDrain, error) {
	left := amount
	var drained []bondDrain
	for _, ev := range evals {
		if left.IsZero() {
			break
		}
		deposit := ev.OriginalBond.Mul(domain.EvaluatorSlashRate).Floor()
		headroom := ev.CurrentBond.Sub(deposit)
		if !headroom.IsPositive() {
			continue
		}
		take := decimal.Min(headroom, left)
		ev.CurrentBond = ev.CurrentBond.Sub(take)
		if err := e.evaluations.Update(ctx, ev); err != nil {
			ev.CurrentBond = ev.CurrentBond.Add(take)
			err = fmt.Errorf("update evaluation bond: %w", err)
			return nil, e.withRestoredBonds(ctx, drained, err)
		}
		drained = append(drained, bondDrain{eval: ev, take: take})
		left = left.Sub(take)
	}
	if left.IsPositive() {
		err := fmt.Errorf("evaluation bond headroom vanished: %w", domain.ErrImpossibleState)
		return nil, e.withRestoredBonds(ctx, drained, err)
	}
	return drained, nil
}

// withRestoredBonds puts persisted bond drains back, attaching any restore
// failure to the original error.
func (e *Engine) withRestoredBonds(ctx context.Context, drained []bondDrain, err error) error {
	for _, d := range drained {
		d.eval.CurrentBond = d.eval.CurrentBond.Add(d.take)
		if rerr := e.evaluations.Update(ctx, d.eval); rerr != nil {
			err = fmt.Errorf("%w (evaluation bond restore failed: %v)", err, rerr)
		}
	}
	return err
}

// lockFunds takes the fresh collateral hold, re-keys the reused evaluation
// hold and escrows the funding asset, unwinding completed steps on failure.
func (e *Engine) lockFunds(c *domain.Contribution, fresh, reused decimal.Decimal) error {
	if fresh.IsPositive() {
		if err := e.assets.Hold(c.Account, domain.HoldParticipation, fresh); err != nil {
			return fmt.Errorf("lock collateral: %w", err)
		}
	}
	if reused.IsPositive() {
		if err := e.assets.ConvertHold(c.Account, domain.HoldEvaluation, domain.HoldParticipation, reused); err != nil {
			err = fmt.Errorf("convert evaluation hold: %w", err)
			if fresh.IsPositive() {
				if rerr := e.assets.Release(c.Account, domain.HoldParticipation, fresh); rerr != nil {
					err = fmt.Errorf("%w (collateral release failed: %v)", err, rerr)
				}
			}
			return err
		}
	}
	if err := e.assets.Transfer(c.FundingAsset, c.Account, domain.EscrowAccount(c.Project), c.FundingAssetAmount); err != nil {
		err = fmt.Errorf("lock funding asset: %w", err)
		if reused.IsPositive() {
			if rerr := e.assets.ConvertHold(c.Account, domain.HoldParticipation, domain.HoldEvaluation, reused); rerr != nil {
				err = fmt.Errorf("%w (hold conversion rollback failed: %v)", err, rerr)
			}
		}
		if fresh.IsPositive() {
			if rerr := e.assets.Release(c.Account, domain.HoldParticipation, fresh); rerr != nil {
				err = fmt.Errorf("%w (collateral release failed: %v)", err, rerr)
			}
		}
		return err
	}
	return nil
}
