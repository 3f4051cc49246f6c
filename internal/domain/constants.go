package domain

import "github.com/shopspring/decimal"

// Decimal scales. Amounts are integer base units carried in decimal.Decimal;
// CT decimals vary per project within [MinCTDecimals, MaxCTDecimals].
const (
	USDDecimals  = 6
	PLMCDecimals = 10

	MinCTDecimals = 4
	MaxCTDecimals = 20
)

// Block clock. One block every 12 seconds.
const (
	BlocksPerDay  BlockNumber = 7200
	BlocksPerWeek BlockNumber = 7 * BlocksPerDay
)

// Round durations in blocks.
const (
	EvaluationRoundDuration BlockNumber = 28 * BlocksPerDay
	AuctionRoundDuration    BlockNumber = 5 * BlocksPerDay
	CommunityRoundDuration  BlockNumber = 5 * BlocksPerDay
	RemainderRoundDuration  BlockNumber = 1 * BlocksPerDay

	// SettlementCooldown separates the funding outcome from settlement start.
	SettlementCooldown BlockNumber = 4 * BlocksPerDay
)

// MaxParticipationsPerUser caps how many evaluations, bids or contributions
// one account may hold on a project at a time.
const MaxParticipationsPerUser = 16

// MaxTransitionsPerBlock caps the schedule store's per-block entry list;
// overflow spills to the next block.
const MaxTransitionsPerBlock = 100

// Protocol rate parameters.
var (
	// EvaluationSuccessRate of the fundraising target must be bonded for the
	// evaluation round to succeed. The same fraction caps the early-evaluator
	// USD pot.
	EvaluationSuccessRate = decimal.RequireFromString("0.10")

	// EvaluatorSlashRate of the original bond is forfeited when the outcome
	// is Slashed.
	EvaluatorSlashRate = decimal.RequireFromString("0.20")

	// FundingSuccessRate of the fundraising target must be reached for the
	// funding outcome to be a success.
	FundingSuccessRate = decimal.RequireFromString("0.33")

	// EvaluatorRewardPoolRate of the protocol fee (in CT) funds evaluator
	// rewards; the rest is split between the treasury pots.
	EvaluatorRewardPoolRate = decimal.RequireFromString("0.30")
	EarlyEvaluatorPotRate   = decimal.RequireFromString("0.20")
	LiquidityPoolsRate      = decimal.RequireFromString("0.50")
	LongTermHolderRate      = decimal.RequireFromString("0.20")
)

// USD bounds in base units.
var (
	MinUSDPerEvaluation = decimal.New(100, USDDecimals)           // 100 USD
	MinFundingTargetUSD = decimal.New(1_000, USDDecimals)         // 1k USD
	MaxFundingTargetUSD = decimal.New(1_000_000_000, USDDecimals) // 1bn USD
)
