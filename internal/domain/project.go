package domain

import "github.com/shopspring/decimal"

// ProjectStatus is the lifecycle state machine position.
type ProjectStatus string

const (
	StatusApplication        ProjectStatus = "APPLICATION"
	StatusEvaluationRound    ProjectStatus = "EVALUATION_ROUND"
	StatusEvaluationFailed   ProjectStatus = "EVALUATION_FAILED"
	StatusAuctionRound       ProjectStatus = "AUCTION_ROUND"
	StatusCommunityRound     ProjectStatus = "COMMUNITY_ROUND"
	StatusRemainderRound     ProjectStatus = "REMAINDER_ROUND"
	StatusFundingSuccessful  ProjectStatus = "FUNDING_SUCCESSFUL"
	StatusFundingFailed      ProjectStatus = "FUNDING_FAILED"
	StatusSettlementStarted  ProjectStatus = "SETTLEMENT_STARTED"
	StatusSettlementFinished ProjectStatus = "SETTLEMENT_FINISHED"
)

// String returns the string representation of ProjectStatus.
func (s ProjectStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further mutation is permitted.
func (s ProjectStatus) IsTerminal() bool {
	return s == StatusSettlementFinished
}

// FundingOutcome qualifies the settlement states.
type FundingOutcome string

const (
	OutcomeSuccess FundingOutcome = "SUCCESS"
	OutcomeFailure FundingOutcome = "FAILURE"
)

// InvestorClass is the verified participant class supplied by the credential
// collaborator.
type InvestorClass string

const (
	ClassRetail        InvestorClass = "RETAIL"
	ClassProfessional  InvestorClass = "PROFESSIONAL"
	ClassInstitutional InvestorClass = "INSTITUTIONAL"
)

// IsValid checks if the class is a valid value.
func (c InvestorClass) IsValid() bool {
	return c == ClassRetail || c == ClassProfessional || c == ClassInstitutional
}

// TicketSize bounds the USD ticket for one investor class. A nil bound is
// unbounded on that side.
type TicketSize struct {
	MinUSD *decimal.Decimal
	MaxUSD *decimal.Decimal
}

// BiddingTicketSizes holds per-class bid ticket bounds. Retail does not bid.
type BiddingTicketSizes struct {
	Professional  TicketSize
	Institutional TicketSize
}

// For returns the ticket bounds for a bidding class.
func (b BiddingTicketSizes) For(class InvestorClass) TicketSize {
	if class == ClassInstitutional {
		return b.Institutional
	}
	return b.Professional
}

// ContributingTicketSizes holds per-class contribution ticket bounds.
type ContributingTicketSizes struct {
	Retail        TicketSize
	Professional  TicketSize
	Institutional TicketSize
}

// For returns the ticket bounds for a contributing class.
func (c ContributingTicketSizes) For(class InvestorClass) TicketSize {
	switch class {
	case ClassProfessional:
		return c.Professional
	case ClassInstitutional:
		return c.Institutional
	default:
		return c.Retail
	}
}

// ProjectMetadata is the issuer-supplied project definition. Immutable once
// evaluation starts.
type ProjectMetadata struct {
	TokenName     string
	TokenSymbol   string
	TokenDecimals int32 // CT decimals, within [MinCTDecimals, MaxCTDecimals]

	TotalAllocationSize    decimal.Decimal // CT base units
	AuctionRoundAllocation decimal.Decimal // CT base units sold through the auction
	MinimumPrice           decimal.Decimal // decimals-aware USD per CT

	BiddingTicketSizes      BiddingTicketSizes
	ContributingTicketSizes ContributingTicketSizes

	ParticipationCurrencies []AssetID
	FundingDestination      AccountID
	PolicyHash              string // IPFS CID of the participation policy
}

// FundingTargetUSD is the amount raised if every token sells at the minimum
// price, in USD base units.
func (m ProjectMetadata) FundingTargetUSD() decimal.Decimal {
	return priceToUSD(m.MinimumPrice, m.TotalAllocationSize)
}

// AcceptsAsset reports whether the asset is an accepted funding asset.
func (m ProjectMetadata) AcceptsAsset(asset AssetID) bool {
	for _, a := range m.ParticipationCurrencies {
		if a == asset {
			return true
		}
	}
	return false
}

// EvaluatorsOutcome is the evaluation ledger's final verdict, fixed at
// funding end.
type EvaluatorsOutcome string

const (
	EvaluatorsUnchanged EvaluatorsOutcome = "UNCHANGED"
	EvaluatorsSlashed   EvaluatorsOutcome = "SLASHED"
	EvaluatorsRewarded  EvaluatorsOutcome = "REWARDED"
)

// RewardInfo carries the evaluator reward pools and denominators, computed
// once at funding end.
type RewardInfo struct {
	EarlyEvaluatorRewardPot  decimal.Decimal // CT base units
	NormalEvaluatorRewardPot decimal.Decimal // CT base units
	// Denominators in USD base units.
	EarlyEvaluatorTotalBondedUSD  decimal.Decimal
	NormalEvaluatorTotalBondedUSD decimal.Decimal
}

// EvaluationRoundInfo accumulates bonded USD and the evaluator outcome.
type EvaluationRoundInfo struct {
	TotalBondedUSD decimal.Decimal
	EarlyBondedUSD decimal.Decimal
	Outcome        EvaluatorsOutcome
	Rewards        *RewardInfo // set only when Outcome is Rewarded
}

// ProjectDetails is the mutable per-project state, owned by the lifecycle
// controller.
type ProjectDetails struct {
	ProjectID      ProjectID
	Issuer         AccountID
	IssuerIdentity Identity

	Status  ProjectStatus
	Outcome FundingOutcome // set when funding ends

	RoundStart BlockNumber
	RoundEnd   *BlockNumber // nil while no deadline is pending

	FundraisingTargetUSD decimal.Decimal

	// Fixed once at auction close.
	WeightedAveragePrice *decimal.Decimal

	RemainingContributionTokens decimal.Decimal
	FundingAmountReachedUSD     decimal.Decimal

	EvaluationRoundInfo EvaluationRoundInfo

	// FundingEndBlock anchors every vesting schedule; zero until funding ends.
	FundingEndBlock BlockNumber

	// ContributionTokenAsset is assigned at settlement start on success.
	ContributionTokenAsset AssetID
}

// priceToUSD multiplies a decimals-aware price by a CT base-unit amount,
// yielding USD base units (floored).
func priceToUSD(priceAware, ctAmount decimal.Decimal) decimal.Decimal {
	return priceAware.Mul(ctAmount).Floor()
}
