package auction

import (
	"testing"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

func ladderMetadata() domain.ProjectMetadata {
	// CT at 6 decimals so decimals-aware prices equal whole-USD prices.
	return domain.ProjectMetadata{
		TokenDecimals:          6,
		TotalAllocationSize:    decimal.New(200, 6),
		AuctionRoundAllocation: decimal.New(100, 6),
		MinimumPrice:           decimal.New(1, 0),
	}
}

func TestNewLadderGeometry(t *testing.T) {
	ladder := NewLadder(ladderMetadata())

	if len(ladder) != 6 {
		t.Fatalf("buckets = %d, want 6", len(ladder))
	}
	if !ladder[0].AmountLeft.Equal(decimal.New(50, 6)) {
		t.Errorf("first bucket = %s, want half the allocation", ladder[0].AmountLeft)
	}
	wantPrices := []string{"1", "1.1", "1.2", "1.3", "1.4", "1.5"}
	for i, p := range wantPrices {
		if !ladder[i].Price.Equal(decimal.RequireFromString(p)) {
			t.Errorf("bucket %d price = %s, want %s", i, ladder[i].Price, p)
		}
		if i > 0 && !ladder[i].AmountLeft.Equal(decimal.New(10, 6)) {
			t.Errorf("bucket %d size = %s, want 10e6", i, ladder[i].AmountLeft)
		}
	}
	// Capacities sum exactly to the auction allocation.
	if !ladder.Remaining().Equal(decimal.New(100, 6)) {
		t.Errorf("ladder total = %s, want 100e6", ladder.Remaining())
	}
}

func TestFillWalksBucketsWeighted(t *testing.T) {
	ladder := NewLadder(ladderMetadata())

	// 60 CT at limit 1.5: 50 at 1.0 plus 10 at 1.1.
	fill := Fill(ladder, decimal.New(60, 6), decimal.RequireFromString("1.5"))
	if !fill.Filled.Equal(decimal.New(60, 6)) {
		t.Fatalf("filled = %s, want 60e6", fill.Filled)
	}
	want := decimal.New(61, 6).Div(decimal.New(60, 6))
	if !fill.WeightedPrice.Equal(want) {
		t.Errorf("weighted price = %s, want %s", fill.WeightedPrice, want)
	}

	// The limit price stops the walk.
	fill = Fill(ladder, decimal.New(50, 6), decimal.RequireFromString("1.2"))
	if !fill.Filled.Equal(decimal.New(20, 6)) {
		t.Errorf("limited fill = %s, want 20e6", fill.Filled)
	}

	// Nothing left at or below the limit.
	fill = Fill(ladder, decimal.New(1, 6), decimal.RequireFromString("1.2"))
	if !fill.Filled.IsZero() {
		t.Errorf("exhausted fill = %s, want 0", fill.Filled)
	}
}

func TestWeightedAveragePrice(t *testing.T) {
	ladder := NewLadder(ladderMetadata())

	// Untouched ladder falls back to the minimum price.
	if wap := WeightedAveragePrice(ladder); !wap.Equal(decimal.New(1, 0)) {
		t.Errorf("empty wap = %s, want minimum price", wap)
	}

	Fill(ladder, decimal.New(70, 6), decimal.RequireFromString("1.5"))
	// (50*1.0 + 10*1.1 + 10*1.2) / 70.
	want := decimal.RequireFromString("73").Div(decimal.RequireFromString("70"))
	if wap := WeightedAveragePrice(ladder); !wap.Equal(want) {
		t.Errorf("wap = %s, want %s", wap, want)
	}
}
