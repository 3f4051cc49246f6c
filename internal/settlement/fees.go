// Package settlement walks every participation exactly once after a
// project's funding outcome is final: refunds, protocol fees, evaluator
// rewards, contribution token mints and vesting schedules.
package settlement

import (
	"github.com/shopspring/decimal"

	"launchpad/internal/bonding"
	"launchpad/internal/domain"
)

// Protocol fee brackets: marginal rate over cumulative funding USD reached.
// A nil ceiling marks the open-ended last bracket.
var feeBrackets = []struct {
	rate    decimal.Decimal
	ceiling decimal.Decimal
}{
	{decimal.RequireFromString("0.10"), decimal.New(1_000_000, domain.USDDecimals)},
	{decimal.RequireFromString("0.08"), decimal.New(5_000_000, domain.USDDecimals)},
	{decimal.RequireFromString("0.06"), decimal.Decimal{}},
}

// FeeUSD computes the blended protocol fee on the funding USD reached.
func FeeUSD(reachedUSD decimal.Decimal) decimal.Decimal {
	fee := decimal.Zero
	floor := decimal.Zero
	for _, bracket := range feeBrackets {
		var slice decimal.Decimal
		if bracket.ceiling.IsZero() {
			slice = reachedUSD.Sub(floor)
		} else {
			slice = decimal.Min(reachedUSD, bracket.ceiling).Sub(floor)
			floor = bracket.ceiling
		}
		if !slice.IsPositive() {
			break
		}
		fee = fee.Add(bracket.rate.Mul(slice).Floor())
	}
	return fee
}

// FeeCT translates the USD fee into contribution tokens at the WAP.
func FeeCT(feeUSD, wap decimal.Decimal) (decimal.Decimal, error) {
	return bonding.CollateralBond(feeUSD, wap)
}

// ComputeRewardInfo fixes the evaluator reward pots and denominators at
// funding end. The early pot is weighted against bonded USD capped at the
// early-evaluator threshold; the normal pot against everything bonded.
func ComputeRewardInfo(feeCT decimal.Decimal, info domain.EvaluationRoundInfo, targetUSD decimal.Decimal) domain.RewardInfo {
	pool := feeCT.Mul(domain.EvaluatorRewardPoolRate).Floor()
	earlyPot := pool.Mul(domain.EarlyEvaluatorPotRate).Floor()
	normalPot := pool.Sub(earlyPot)

	earlyDenom := decimal.Min(info.TotalBondedUSD, targetUSD.Mul(domain.EvaluationSuccessRate).Floor())

	return domain.RewardInfo{
		EarlyEvaluatorRewardPot:       earlyPot,
		NormalEvaluatorRewardPot:      normalPot,
		EarlyEvaluatorTotalBondedUSD:  earlyDenom,
		NormalEvaluatorTotalBondedUSD: info.TotalBondedUSD,
	}
}

// EvaluatorReward is one evaluator's CT reward: the early share plus the
// normal share of the respective pots.
func EvaluatorReward(e *domain.Evaluation, r domain.RewardInfo) decimal.Decimal {
	reward := decimal.Zero
	if r.EarlyEvaluatorTotalBondedUSD.IsPositive() {
		share := e.EarlyUSD.Div(r.EarlyEvaluatorTotalBondedUSD)
		reward = reward.Add(share.Mul(r.EarlyEvaluatorRewardPot).Floor())
	}
	if r.NormalEvaluatorTotalBondedUSD.IsPositive() {
		share := e.USDAmount().Div(r.NormalEvaluatorTotalBondedUSD)
		reward = reward.Add(share.Mul(r.NormalEvaluatorRewardPot).Floor())
	}
	return reward
}
