package domain

import "github.com/shopspring/decimal"

// Bucket is one fixed-price segment of the auction price ladder.
type Bucket struct {
	Price      decimal.Decimal // decimals-aware USD per CT
	AmountLeft decimal.Decimal // CT base units still for sale at this price
	Consumed   decimal.Decimal // CT base units sold at this price
}

// Consume sells up to want CT from the bucket and returns the amount taken.
func (b *Bucket) Consume(want decimal.Decimal) decimal.Decimal {
	take := decimal.Min(want, b.AmountLeft)
	b.AmountLeft = b.AmountLeft.Sub(take)
	b.Consumed = b.Consumed.Add(take)
	return take
}

// BucketLadder is the ordered, monotonically increasing price ladder for one
// project's auction, built from metadata at creation and consumed during the
// auction round.
type BucketLadder []Bucket

// Remaining sums the unsold CT across all buckets.
func (l BucketLadder) Remaining() decimal.Decimal {
	total := decimal.Zero
	for i := range l {
		total = total.Add(l[i].AmountLeft)
	}
	return total
}

// TotalConsumed sums the sold CT across all buckets.
func (l BucketLadder) TotalConsumed() decimal.Decimal {
	total := decimal.Zero
	for i := range l {
		total = total.Add(l[i].Consumed)
	}
	return total
}
