package auction

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

// Engine validates and records bids and closes the auction round. Project
// state is passed in and mutated in place; callers persist it.
type Engine struct {
	bids   storage.BidStore
	seqs   storage.SequenceStore
	assets ledger.AssetLedger
	prices oracle.PriceProvider
}

// Options configures the auction engine.
type Options struct {
	Bids   storage.BidStore
	Seqs   storage.SequenceStore
	Assets ledger.AssetLedger
	Prices oracle.PriceProvider
}

// New creates an auction engine.
func New(opts Options) *Engine {
	return &Engine{
		bids:   opts.Bids,
		seqs:   opts.Seqs,
		assets: opts.Assets,
		prices: opts.Prices,
	}
}

// BidParams describe one incoming bid.
type BidParams struct {
	Account    domain.AccountID
	Identity   domain.Identity
	Class      domain.InvestorClass
	CTAmount   decimal.Decimal
	Price      decimal.Decimal // decimals-aware limit price
	Multiplier uint8
	Asset      domain.AssetID
	Policy     string // participation policy the bidder accepted
}

// PlaceBid validates and records a bid, consuming the project's ladder and
// locking collateral and funding asset at the bid's own fill price.
func (e *Engine) PlaceBid(ctx context.Context, rec *storage.ProjectRecord, p BidParams, now domain.BlockNumber) (*domain.Bid, error) {
	if rec.Details.Status != domain.StatusAuctionRound {
		return nil, fmt.Errorf("bid on project %d in %s: %w",
			rec.ID, rec.Details.Status, domain.ErrIncorrectRound)
	}
	if p.Identity == rec.Details.IssuerIdentity {
		return nil, domain.ErrParticipationToOwnProject
	}
	if p.Policy != rec.Metadata.PolicyHash {
		return nil, fmt.Errorf("accepted policy %q: %w", p.Policy, domain.ErrPolicyMismatch)
	}
	if p.Class != domain.ClassProfessional && p.Class != domain.ClassInstitutional {
		return nil, fmt.Errorf("%s cannot bid: %w", p.Class, domain.ErrNotAllowed)
	}
	if p.Price.LessThan(rec.Metadata.MinimumPrice) {
		return nil, fmt.Errorf("bid price %s below minimum %s: %w",
			p.Price, rec.Metadata.MinimumPrice, domain.ErrTicketTooLow)
	}
	if !rec.Metadata.AcceptsAsset(p.Asset) {
		return nil, fmt.Errorf("asset %d: %w", p.Asset, domain.ErrFundingAssetNotAccepted)
	}
	if err := bonding.ValidateMultiplier(p.Class, p.Multiplier); err != nil {
		return nil, err
	}
	if p.CTAmount.IsZero() || p.CTAmount.IsNegative() {
		return nil, fmt.Errorf("non-positive bid amount: %w", storage.ErrInvalidInput)
	}
	held, err := e.bids.CountByAccount(ctx, rec.ID, p.Account)
	if err != nil {
		return nil, fmt.Errorf("count account bids: %w", err)
	}
	if held >= domain.MaxParticipationsPerUser {
		return nil, fmt.Errorf("account %s holds %d bids: %w",
			p.Account, held, domain.ErrTooManyParticipations)
	}

	fill := Fill(rec.Ladder, p.CTAmount, p.Price)
	if fill.Filled.IsZero() {
		return nil, fmt.Errorf("allocation exhausted at or below %s: %w", p.Price, domain.ErrProjectSoldOut)
	}

	usdTicket := fill.WeightedPrice.Mul(fill.Filled).Floor()

	bounds := rec.Metadata.BiddingTicketSizes.For(p.Class)
	if bounds.MinUSD != nil && usdTicket.LessThan(*bounds.MinUSD) {
		return nil, fmt.Errorf("ticket %s below class minimum %s: %w",
			usdTicket, *bounds.MinUSD, domain.ErrTicketTooLow)
	}
	if bounds.MaxUSD != nil {
		prior, err := e.bids.SumUSDByIdentity(ctx, rec.ID, p.Identity)
		if err != nil {
			return nil, fmt.Errorf("aggregate ticket lookup: %w", err)
		}
		if prior.Add(usdTicket).GreaterThan(*bounds.MaxUSD) {
			return nil, fmt.Errorf("aggregate ticket %s above class maximum %s: %w",
				prior.Add(usdTicket), *bounds.MaxUSD, domain.ErrTicketTooHigh)
		}
	}

	usdBond, err := bonding.BondingRequirement(usdTicket, p.Multiplier)
	if err != nil {
		return nil, err
	}
	plmcPrice, err := e.prices.Price(domain.AssetPLMC)
	if err != nil {
		return nil, err
	}
	plmcBond, err := bonding.CollateralBond(usdBond, plmcPrice)
	if err != nil {
		return nil, err
	}
	assetPrice, err := e.prices.Price(p.Asset)
	if err != nil {
		return nil, err
	}
	fundingAmount, err := bonding.FundingAssetAmount(usdTicket, assetPrice)
	if err != nil {
		return nil, err
	}

	id, err := e.seqs.Next(ctx, storage.SeqBids)
	if err != nil {
		return nil, fmt.Errorf("next bid id: %w", err)
	}

	status := domain.BidAccepted
	if fill.Filled.LessThan(p.CTAmount) {
		status = domain.BidPartiallyAccepted
	}

	bid := &domain.Bid{
		ID:                       id,
		Project:                  rec.ID,
		Account:                  p.Account,
		Identity:                 p.Identity,
		Class:                    p.Class,
		OriginalCTAmount:         p.CTAmount,
		OriginalCTUSDPrice:       fill.WeightedPrice,
		FinalCTAmount:            fill.Filled,
		FinalCTUSDPrice:          fill.WeightedPrice,
		Status:                   status,
		FundingAsset:             p.Asset,
		FundingAssetAmountLocked: fundingAmount,
		PLMCBond:                 plmcBond,
		Multiplier:               p.Multiplier,
		CreatedAt:                now,
	}
	if err := e.bids.Insert(ctx, bid); err != nil {
		return nil, fmt.Errorf("insert bid: %w", err)
	}

	// Funds move after the record exists. A failed bid leaves no trace:
	// the record is removed and the collateral hold released.
	if err := e.assets.Hold(p.Account, domain.HoldParticipation, plmcBond); err != nil {
		err = fmt.Errorf("lock collateral: %w", err)
		return nil, e.withRemovedBid(ctx, bid, err)
	}
	if err := e.assets.Transfer(p.Asset, p.Account, domain.EscrowAccount(rec.ID), fundingAmount); err != nil {
		err = fmt.Errorf("lock funding asset: %w", err)
		if rerr := e.assets.Release(p.Account, domain.HoldParticipation, plmcBond); rerr != nil {
			err = fmt.Errorf("%w (collateral release failed: %v)", err, rerr)
		}
		return nil, e.withRemovedBid(ctx, bid, err)
	}
	return bid, nil
}

// withRemovedBid removes the bid record while unwinding a failed
// placement, attaching any removal failure to the original error.
func (e *Engine) withRemovedBid(ctx context.Context, b *domain.Bid, err error) error {
	if rerr := e.bids.Remove(ctx, b.Project, b.Account, b.ID); rerr != nil {
		return fmt.Errorf("%w (bid record removal failed: %v)", err, rerr)
	}
	return err
}

// Close fixes the weighted average price, settles bid statuses and debits
// the accepted CT from the remaining contribution tokens. Called exactly
// once when the auction round ends.
func (e *Engine) Close(ctx context.Context, rec *storage.ProjectRecord) error {
	if rec.Details.WeightedAveragePrice != nil {
		return fmt.Errorf("auction for project %d already closed: %w", rec.ID, domain.ErrImpossibleState)
	}

	wap := WeightedAveragePrice(rec.Ladder)

	bids, err := e.bids.ListByProject(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("list bids: %w", err)
	}

	acceptedCT := decimal.Zero
	acceptedUSD := decimal.Zero
	for _, b := range bids {
		if b.OriginalCTUSDPrice.LessThan(wap) {
			b.Status = domain.BidRejected
		} else {
			b.FinalCTUSDPrice = decimal.Min(b.OriginalCTUSDPrice, wap)
			acceptedCT = acceptedCT.Add(b.FinalCTAmount)
			acceptedUSD = acceptedUSD.Add(b.FinalCTUSDPrice.Mul(b.FinalCTAmount).Floor())
		}
		if err := e.bids.Update(ctx, b); err != nil {
			return fmt.Errorf("update bid %d/%s/%d: %w", b.Project, b.Account, b.ID, err)
		}
	}

	rec.Details.WeightedAveragePrice = &wap
	rec.Details.RemainingContributionTokens = rec.Details.RemainingContributionTokens.Sub(acceptedCT)
	rec.Details.FundingAmountReachedUSD = rec.Details.FundingAmountReachedUSD.Add(acceptedUSD)
	return nil
}
