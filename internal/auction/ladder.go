// Package auction implements the priced auction round: the bucket price
// ladder, bid filling and the close that fixes the weighted average price.
package auction

import (
	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

// Ladder geometry: the first bucket carries half the auction allocation at
// the minimum price, followed by equal tranches each priced one step higher.
var (
	firstBucketRate = decimal.RequireFromString("0.5")
	trancheRate     = decimal.RequireFromString("0.1")
	priceStepRate   = decimal.RequireFromString("0.1")
)

// NewLadder builds the bucket ladder for a project. Bucket capacities sum
// exactly to the auction allocation; prices increase by 10% of the minimum
// price per tranche.
func NewLadder(m domain.ProjectMetadata) domain.BucketLadder {
	allocation := m.AuctionRoundAllocation
	first := allocation.Mul(firstBucketRate).Floor()
	tranche := allocation.Mul(trancheRate).Floor()
	step := m.MinimumPrice.Mul(priceStepRate)

	ladder := domain.BucketLadder{
		{Price: m.MinimumPrice, AmountLeft: first},
	}

	remaining := allocation.Sub(first)
	price := m.MinimumPrice
	for remaining.IsPositive() {
		price = price.Add(step)
		size := decimal.Min(tranche, remaining)
		ladder = append(ladder, domain.Bucket{Price: price, AmountLeft: size})
		remaining = remaining.Sub(size)
	}
	return ladder
}

// FillResult is the outcome of walking the ladder for one bid.
type FillResult struct {
	Filled        decimal.Decimal // CT actually obtained
	WeightedPrice decimal.Decimal // fill-weighted price across touched buckets
}

// Fill consumes up to ctAmount from buckets priced at or below maxPrice,
// mutating the ladder. The weighted price is sum(price*amount)/sum(amount)
// over the consumed segments.
func Fill(ladder domain.BucketLadder, ctAmount, maxPrice decimal.Decimal) FillResult {
	remaining := ctAmount
	weighted := decimal.Zero
	filled := decimal.Zero

	for i := range ladder {
		if remaining.IsZero() {
			break
		}
		b := &ladder[i]
		if b.Price.GreaterThan(maxPrice) {
			break
		}
		take := b.Consume(remaining)
		if take.IsZero() {
			continue
		}
		filled = filled.Add(take)
		weighted = weighted.Add(b.Price.Mul(take))
		remaining = remaining.Sub(take)
	}

	if filled.IsZero() {
		return FillResult{Filled: decimal.Zero, WeightedPrice: decimal.Zero}
	}
	return FillResult{
		Filled:        filled,
		WeightedPrice: weighted.Div(filled),
	}
}

// WeightedAveragePrice is the bucket-consumption-weighted price across all
// touched buckets. Returns the minimum price when nothing sold.
func WeightedAveragePrice(ladder domain.BucketLadder) decimal.Decimal {
	total := decimal.Zero
	weighted := decimal.Zero
	for i := range ladder {
		if ladder[i].Consumed.IsZero() {
			continue
		}
		total = total.Add(ladder[i].Consumed)
		weighted = weighted.Add(ladder[i].Price.Mul(ladder[i].Consumed))
	}
	if total.IsZero() {
		if len(ladder) > 0 {
			return ladder[0].Price
		}
		return decimal.Zero
	}
	return weighted.Div(total)
}
