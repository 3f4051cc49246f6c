// Package bonding converts USD-denominated commitments into collateral and
// funding-asset amounts and derives multiplier-driven vesting durations.
// All functions are pure.
package bonding

import (
	"fmt"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

// Multiplier bounds per investor class. Evaluations always use multiplier 1.
const (
	MinMultiplier              = 1
	MaxMultiplierRetail        = 5
	MaxMultiplierProfessional  = 10
	MaxMultiplierInstitutional = 25
)

// vestingWeeksSlope maps a multiplier to a lock duration:
// weeks = 2.167*m - 2.167.
var vestingWeeksSlope = decimal.RequireFromString("2.167")

// DecimalsAwarePrice normalizes a unit price quoted in USD per whole asset
// into the base-unit form used everywhere else:
// aware = price * 10^(usd_decimals - asset_decimals).
func DecimalsAwarePrice(price decimal.Decimal, assetDecimals int32) decimal.Decimal {
	return price.Shift(domain.USDDecimals - assetDecimals)
}

// ValidateMultiplier checks the multiplier against the class range.
func ValidateMultiplier(class domain.InvestorClass, multiplier uint8) error {
	max := MaxMultiplierRetail
	switch class {
	case domain.ClassProfessional:
		max = MaxMultiplierProfessional
	case domain.ClassInstitutional:
		max = MaxMultiplierInstitutional
	}
	if int(multiplier) < MinMultiplier || int(multiplier) > max {
		return fmt.Errorf("%w: %d not in [%d, %d] for %s",
			domain.ErrForbiddenMultiplier, multiplier, MinMultiplier, max, class)
	}
	return nil
}

// BondingRequirement reduces a USD ticket by the multiplier:
// usd_bond = usd_ticket / multiplier, floored to USD base units.
func BondingRequirement(usdTicket decimal.Decimal, multiplier uint8) (decimal.Decimal, error) {
	if multiplier == 0 {
		return decimal.Zero, fmt.Errorf("%w: zero multiplier", domain.ErrBadMath)
	}
	return usdTicket.Div(decimal.New(int64(multiplier), 0)).Floor(), nil
}

// CollateralBond converts a USD bond into collateral base units at the given
// decimals-aware price: bond = reciprocal(price) * usd. Reciprocal first, so
// precision is lost only at the final floor.
func CollateralBond(usdBond, priceAware decimal.Decimal) (decimal.Decimal, error) {
	if priceAware.IsZero() || priceAware.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: non-positive collateral price", domain.ErrBadMath)
	}
	reciprocal := decimal.New(1, 0).DivRound(priceAware, 38)
	return reciprocal.Mul(usdBond).Floor(), nil
}

// FundingAssetAmount converts a full USD ticket into funding-asset base units
// at the asset's decimals-aware price.
func FundingAssetAmount(usdTicket, assetPriceAware decimal.Decimal) (decimal.Decimal, error) {
	return CollateralBond(usdTicket, assetPriceAware)
}

// VestingDuration returns the lock duration in blocks for a multiplier.
// Multiplier 1 vests immediately; everything else locks for at least a block.
func VestingDuration(multiplier uint8) domain.BlockNumber {
	m := decimal.New(int64(multiplier), 0)
	weeks := vestingWeeksSlope.Mul(m).Sub(vestingWeeksSlope)
	blocks := weeks.Mul(decimal.New(int64(domain.BlocksPerWeek), 0)).Round(0)
	if blocks.IsZero() || blocks.IsNegative() {
		return 0
	}
	return domain.BlockNumber(blocks.IntPart())
}

// PerBlockRate splits a locked amount over a duration, floored, releasing at
// least one base unit per block. A zero duration releases everything at once.
func PerBlockRate(locked decimal.Decimal, duration domain.BlockNumber) decimal.Decimal {
	if duration == 0 {
		return locked
	}
	rate := locked.Div(decimal.New(int64(duration), 0)).Floor()
	if rate.IsZero() && locked.IsPositive() {
		return decimal.New(1, 0)
	}
	return rate
}
