package domain

import "github.com/shopspring/decimal"

// HoldReason distinguishes the purpose of a collateral hold on the external
// ledger. Vesting schedules are keyed by the same reasons.
type HoldReason string

const (
	HoldEvaluation    HoldReason = "EVALUATION"
	HoldParticipation HoldReason = "PARTICIPATION"
)

// Evaluation records one evaluator bond against a project. Consumed exactly
// once at settlement.
type Evaluation struct {
	ID       uint32
	Project  ProjectID
	Account  AccountID
	Identity Identity

	OriginalBond decimal.Decimal // PLMC base units locked at evaluate time
	CurrentBond  decimal.Decimal // after slash

	// USD split against the early-evaluator threshold at evaluate time.
	EarlyUSD decimal.Decimal
	LateUSD  decimal.Decimal

	CreatedAt BlockNumber
}

// USDAmount is the full USD value of the evaluation.
func (e Evaluation) USDAmount() decimal.Decimal {
	return e.EarlyUSD.Add(e.LateUSD)
}

// BidStatus is the auction-close verdict for a bid.
type BidStatus string

const (
	BidAccepted          BidStatus = "ACCEPTED"
	BidPartiallyAccepted BidStatus = "PARTIALLY_ACCEPTED"
	BidRejected          BidStatus = "REJECTED"
)

// Bid records one auction participation. Mutated once at auction close to
// fix the final amount and price, consumed at settlement.
type Bid struct {
	ID       uint32
	Project  ProjectID
	Account  AccountID
	Identity Identity
	Class    InvestorClass

	OriginalCTAmount   decimal.Decimal
	OriginalCTUSDPrice decimal.Decimal // weighted fill price across buckets

	FinalCTAmount   decimal.Decimal
	FinalCTUSDPrice decimal.Decimal

	Status BidStatus

	FundingAsset             AssetID
	FundingAssetAmountLocked decimal.Decimal
	PLMCBond                 decimal.Decimal
	Multiplier               uint8

	CreatedAt BlockNumber
}

// IsWinning reports whether the bid survived auction close.
func (b Bid) IsWinning() bool {
	return b.Status == BidAccepted || b.Status == BidPartiallyAccepted
}

// Contribution records one community/remainder purchase at the fixed WAP.
// Consumed at settlement.
type Contribution struct {
	ID       uint32
	Project  ProjectID
	Account  AccountID
	Identity Identity
	Class    InvestorClass

	CTAmount  decimal.Decimal
	USDTicket decimal.Decimal

	FundingAsset       AssetID
	FundingAssetAmount decimal.Decimal
	PLMCBond           decimal.Decimal
	Multiplier         uint8

	CreatedAt BlockNumber
}
