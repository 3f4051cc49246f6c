package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"launchpad/internal/bonding"
	"launchpad/internal/domain"
	"launchpad/internal/ledger"
	"launchpad/internal/oracle"
	"launchpad/internal/storage"
	"launchpad/internal/vesting"
)

// CTAssetBase offsets contribution token asset ids away from the funding
// asset id space; a project's CT asset is CTAssetBase + project id.
const CTAssetBase domain.AssetID = 1_000_000

// VestingScheduler installs vesting schedules for settled participations.
// Satisfied by *vesting.Book.
type VestingScheduler interface {
	Add(account domain.AccountID, reason domain.HoldReason, s vesting.Schedule)
}

// Engine performs per-project settlement.
type Engine struct {
	evaluations   storage.EvaluationStore
	bids          storage.BidStore
	contributions storage.ContributionStore
	assets        ledger.AssetLedger
	prices        oracle.PriceProvider
	schedules     VestingScheduler
}

// Options configures the settlement engine.
type Options struct {
	Evaluations   storage.EvaluationStore
	Bids          storage.BidStore
	Contributions storage.ContributionStore
	Assets        ledger.AssetLedger
	Prices        oracle.PriceProvider
	Schedules     VestingScheduler
}

// New creates a settlement engine.
func New(opts Options) *Engine {
	return &Engine{
		evaluations:   opts.Evaluations,
		bids:          opts.Bids,
		contributions: opts.Contributions,
		assets:        opts.Assets,
		prices:        opts.Prices,
		schedules:     opts.Schedules,
	}
}

// Start opens settlement once the cooldown after the funding outcome has
// elapsed. On success it assigns the CT asset and mints the treasury fee
// pots; the evaluator pool is minted per evaluator as they settle.
func (e *Engine) Start(ctx context.Context, rec *storage.ProjectRecord, now domain.BlockNumber) error {
	switch rec.Details.Status {
	case domain.StatusFundingSuccessful, domain.StatusFundingFailed, domain.StatusEvaluationFailed:
	default:
		return fmt.Errorf("start settlement on project %d in %s: %w",
			rec.ID, rec.Details.Status, domain.ErrIncorrectRound)
	}
	if now < rec.Details.FundingEndBlock+domain.SettlementCooldown {
		return fmt.Errorf("settlement cooldown until block %d: %w",
			rec.Details.FundingEndBlock+domain.SettlementCooldown, domain.ErrTooEarlyForRound)
	}

	if rec.Details.Outcome == domain.OutcomeSuccess {
		rec.Details.ContributionTokenAsset = CTAssetBase + domain.AssetID(rec.ID)

		wap := *rec.Details.WeightedAveragePrice
		feeCT, err := FeeCT(FeeUSD(rec.Details.FundingAmountReachedUSD), wap)
		if err != nil {
			return err
		}
		liquidity := feeCT.Mul(domain.LiquidityPoolsRate).Floor()
		longTerm := feeCT.Mul(domain.LongTermHolderRate).Floor()
		ct := rec.Details.ContributionTokenAsset
		if err := e.assets.Mint(ct, domain.LiquidityPoolsAccount, liquidity); err != nil {
			return fmt.Errorf("mint liquidity pool fee: %w", err)
		}
		if err := e.assets.Mint(ct, domain.LongTermHolderAccount, longTerm); err != nil {
			return fmt.Errorf("mint long-term holder fee: %w", err)
		}
	}

	rec.Details.Status = domain.StatusSettlementStarted
	return nil
}

// SettleEvaluation consumes one evaluation: slash or release the bond and
// mint the evaluator's CT reward when the outcome earned one.
func (e *Engine) SettleEvaluation(ctx context.Context, rec *storage.ProjectRecord, account domain.AccountID, id uint32) error {
	if err := guardStarted(rec); err != nil {
		return err
	}
	eval, err := e.evaluations.Get(ctx, rec.ID, account, id)
	if err != nil {
		return participationErr(err, "evaluation")
	}

	switch rec.Details.EvaluationRoundInfo.Outcome {
	case domain.EvaluatorsSlashed:
		slash := decimal.Min(eval.OriginalBond.Mul(domain.EvaluatorSlashRate).Floor(), eval.CurrentBond)
		if slash.IsPositive() {
			if err := e.assets.SlashHeld(account, domain.HoldEvaluation, slash, domain.TreasuryAccount); err != nil {
				return fmt.Errorf("slash evaluation bond: %w", err)
			}
		}
		if rest := eval.CurrentBond.Sub(slash); rest.IsPositive() {
			if err := e.assets.Release(account, domain.HoldEvaluation, rest); err != nil {
				return fmt.Errorf("release evaluation bond: %w", err)
			}
		}

	case domain.EvaluatorsRewarded:
		if eval.CurrentBond.IsPositive() {
			if err := e.assets.Release(account, domain.HoldEvaluation, eval.CurrentBond); err != nil {
				return fmt.Errorf("release evaluation bond: %w", err)
			}
		}
		rewards := rec.Details.EvaluationRoundInfo.Rewards
		if rewards == nil {
			return fmt.Errorf("rewarded outcome without reward info: %w", domain.ErrImpossibleState)
		}
		if reward := EvaluatorReward(eval, *rewards); reward.IsPositive() {
			if err := e.assets.Mint(rec.Details.ContributionTokenAsset, account, reward); err != nil {
				return fmt.Errorf("mint evaluator reward: %w", err)
			}
		}

	default: // Unchanged
		if eval.CurrentBond.IsPositive() {
			if err := e.assets.Release(account, domain.HoldEvaluation, eval.CurrentBond); err != nil {
				return fmt.Errorf("release evaluation bond: %w", err)
			}
		}
	}

	return e.evaluations.Remove(ctx, rec.ID, account, id)
}

// SettleBid consumes one bid. On success a winning bid is trued up to the
// final price at the live oracle rates, the CT is minted and the kept bond
// vests from the funding end block; anything else is refunded in full.
func (e *Engine) SettleBid(ctx context.Context, rec *storage.ProjectRecord, account domain.AccountID, id uint32) error {
	if err := guardStarted(rec); err != nil {
		return err
	}
	bid, err := e.bids.Get(ctx, rec.ID, account, id)
	if err != nil {
		return participationErr(err, "bid")
	}

	if rec.Details.Outcome != domain.OutcomeSuccess || !bid.IsWinning() {
		if err := e.refundAll(bid.Account, bid.PLMCBond, bid.FundingAsset, bid.FundingAssetAmountLocked, rec.ID); err != nil {
			return err
		}
		return e.bids.Remove(ctx, rec.ID, account, id)
	}

	finalTicket := bid.FinalCTUSDPrice.Mul(bid.FinalCTAmount).Floor()
	if err := e.payOut(ctx, rec, payout{
		account:       bid.Account,
		usdTicket:     finalTicket,
		multiplier:    bid.Multiplier,
		plmcBond:      bid.PLMCBond,
		fundingAsset:  bid.FundingAsset,
		fundingLocked: bid.FundingAssetAmountLocked,
		ctAmount:      bid.FinalCTAmount,
	}); err != nil {
		return err
	}
	return e.bids.Remove(ctx, rec.ID, account, id)
}

// SettleContribution consumes one contribution, mirroring SettleBid at the
// contribution's fixed WAP ticket.
func (e *Engine) SettleContribution(ctx context.Context, rec *storage.ProjectRecord, account domain.AccountID, id uint32) error {
	if err := guardStarted(rec); err != nil {
		return err
	}
	cont, err := e.contributions.Get(ctx, rec.ID, account, id)
	if err != nil {
		return participationErr(err, "contribution")
	}

	if rec.Details.Outcome != domain.OutcomeSuccess {
		if err := e.refundAll(cont.Account, cont.PLMCBond, cont.FundingAsset, cont.FundingAssetAmount, rec.ID); err != nil {
			return err
		}
		return e.contributions.Remove(ctx, rec.ID, account, id)
	}

	if err := e.payOut(ctx, rec, payout{
		account:       cont.Account,
		usdTicket:     cont.USDTicket,
		multiplier:    cont.Multiplier,
		plmcBond:      cont.PLMCBond,
		fundingAsset:  cont.FundingAsset,
		fundingLocked: cont.FundingAssetAmount,
		ctAmount:      cont.CTAmount,
	}); err != nil {
		return err
	}
	return e.contributions.Remove(ctx, rec.ID, account, id)
}

// MarkSettled finishes settlement once every participation was consumed.
func (e *Engine) MarkSettled(ctx context.Context, rec *storage.ProjectRecord) error {
	if err := guardStarted(rec); err != nil {
		return err
	}
	for _, count := range []func(context.Context, domain.ProjectID) (int, error){
		e.evaluations.Count, e.bids.Count, e.contributions.Count,
	} {
		n, err := count(ctx, rec.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("project %d: %w", rec.ID, domain.ErrSettlementNotComplete)
		}
	}
	rec.Details.Status = domain.StatusSettlementFinished
	return nil
}

type payout struct {
	account       domain.AccountID
	usdTicket     decimal.Decimal
	multiplier    uint8
	plmcBond      decimal.Decimal
	fundingAsset  domain.AssetID
	fundingLocked decimal.Decimal
	ctAmount      decimal.Decimal
}

// payOut trues a winning participation up to its final USD ticket at live
// oracle prices, refunds the overlock, pays the funding destination, mints
// CT and vests the kept collateral from the funding end block.
func (e *Engine) payOut(ctx context.Context, rec *storage.ProjectRecord, p payout) error {
	plmcPrice, err := e.prices.Price(domain.AssetPLMC)
	if err != nil {
		return err
	}
	usdBond, err := bonding.BondingRequirement(p.usdTicket, p.multiplier)
	if err != nil {
		return err
	}
	requiredBond, err := bonding.CollateralBond(usdBond, plmcPrice)
	if err != nil {
		return err
	}
	keptBond := decimal.Min(requiredBond, p.plmcBond)
	if refund := p.plmcBond.Sub(keptBond); refund.IsPositive() {
		if err := e.assets.Release(p.account, domain.HoldParticipation, refund); err != nil {
			return fmt.Errorf("refund collateral: %w", err)
		}
	}

	assetPrice, err := e.prices.Price(p.fundingAsset)
	if err != nil {
		return err
	}
	requiredFunding, err := bonding.FundingAssetAmount(p.usdTicket, assetPrice)
	if err != nil {
		return err
	}
	keptFunding := decimal.Min(requiredFunding, p.fundingLocked)
	escrow := domain.EscrowAccount(rec.ID)
	if refund := p.fundingLocked.Sub(keptFunding); refund.IsPositive() {
		if err := e.assets.Transfer(p.fundingAsset, escrow, p.account, refund); err != nil {
			return fmt.Errorf("refund funding asset: %w", err)
		}
	}
	if keptFunding.IsPositive() {
		if err := e.assets.Transfer(p.fundingAsset, escrow, rec.Metadata.FundingDestination, keptFunding); err != nil {
			return fmt.Errorf("pay funding destination: %w", err)
		}
	}

	if err := e.assets.Mint(rec.Details.ContributionTokenAsset, p.account, p.ctAmount); err != nil {
		return fmt.Errorf("mint contribution tokens: %w", err)
	}

	if keptBond.IsPositive() {
		duration := bonding.VestingDuration(p.multiplier)
		if duration == 0 {
			// Multiplier 1 vests immediately.
			if err := e.assets.Release(p.account, domain.HoldParticipation, keptBond); err != nil {
				return fmt.Errorf("release collateral: %w", err)
			}
		} else {
			e.schedules.Add(p.account, domain.HoldParticipation, vesting.Schedule{
				Locked:        keptBond,
				PerBlock:      bonding.PerBlockRate(keptBond, duration),
				StartingBlock: rec.Details.FundingEndBlock,
			})
		}
	}
	return nil
}

// refundAll returns everything locked for a losing or failed participation.
func (e *Engine) refundAll(account domain.AccountID, plmcBond decimal.Decimal, asset domain.AssetID, fundingLocked decimal.Decimal, project domain.ProjectID) error {
	if plmcBond.IsPositive() {
		if err := e.assets.Release(account, domain.HoldParticipation, plmcBond); err != nil {
			return fmt.Errorf("refund collateral: %w", err)
		}
	}
	if fundingLocked.IsPositive() {
		if err := e.assets.Transfer(asset, domain.EscrowAccount(project), account, fundingLocked); err != nil {
			return fmt.Errorf("refund funding asset: %w", err)
		}
	}
	return nil
}

func guardStarted(rec *storage.ProjectRecord) error {
	if rec.Details.Status != domain.StatusSettlementStarted {
		return fmt.Errorf("project %d in %s: %w", rec.ID, rec.Details.Status, domain.ErrSettlementNotStarted)
	}
	return nil
}

func participationErr(err error, kind string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", kind, domain.ErrParticipationNotFound)
	}
	return err
}
