package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func validMetadata() ProjectMetadata {
	min := decimal.New(100, USDDecimals) // 100 USD
	return ProjectMetadata{
		TokenName:     "Contribution Token",
		TokenSymbol:   "CT",
		TokenDecimals: 10,
		// 100k CT at 10 USD each: 1M USD target.
		TotalAllocationSize:    decimal.New(100_000, 10),
		AuctionRoundAllocation: decimal.New(50_000, 10),
		MinimumPrice:           decimal.RequireFromString("10").Shift(USDDecimals - 10),
		BiddingTicketSizes: BiddingTicketSizes{
			Professional:  TicketSize{MinUSD: &min},
			Institutional: TicketSize{MinUSD: &min},
		},
		ContributingTicketSizes: ContributingTicketSizes{
			Retail: TicketSize{MinUSD: &min},
		},
		ParticipationCurrencies: []AssetID{AssetUSDT, AssetUSDC},
		FundingDestination:      "issuer-funding-account",
		PolicyHash:              "QmPolicy",
	}
}

func TestValidateMetadataOK(t *testing.T) {
	if err := validMetadata().Validate(); err != nil {
		t.Fatalf("expected valid metadata, got %v", err)
	}
}

func TestValidateMetadataRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProjectMetadata)
		subkind string
	}{
		{"zero price", func(m *ProjectMetadata) { m.MinimumPrice = decimal.Zero }, MetaPriceTooLow},
		{"decimals too low", func(m *ProjectMetadata) { m.TokenDecimals = 3 }, MetaBadDecimals},
		{"decimals too high", func(m *ProjectMetadata) { m.TokenDecimals = 21 }, MetaBadDecimals},
		{"zero allocation", func(m *ProjectMetadata) {
			m.TotalAllocationSize = decimal.Zero
		}, MetaBadTokenomics},
		{"auction exceeds total", func(m *ProjectMetadata) {
			m.AuctionRoundAllocation = m.TotalAllocationSize.Mul(decimal.New(2, 0))
		}, MetaAllocationSizeError},
		{"target too low", func(m *ProjectMetadata) {
			m.TotalAllocationSize = decimal.New(10, 10)
			m.AuctionRoundAllocation = decimal.New(5, 10)
		}, MetaFundingTargetTooLow},
		{"no currencies", func(m *ProjectMetadata) {
			m.ParticipationCurrencies = nil
		}, MetaCurrenciesError},
		{"duplicate currencies", func(m *ProjectMetadata) {
			m.ParticipationCurrencies = []AssetID{AssetUSDT, AssetUSDT}
		}, MetaCurrenciesError},
		{"inverted ticket bounds", func(m *ProjectMetadata) {
			lo := decimal.New(10, USDDecimals)
			hi := decimal.New(1000, USDDecimals)
			m.ContributingTicketSizes.Retail = TicketSize{MinUSD: &hi, MaxUSD: &lo}
		}, MetaTicketSizeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMetadata()
			tt.mutate(&m)
			err := m.Validate()
			if !errors.Is(err, ErrBadMetadata) {
				t.Fatalf("expected ErrBadMetadata, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.subkind) {
				t.Errorf("expected subkind %q in %q", tt.subkind, err.Error())
			}
		})
	}
}

func TestFundingTargetUSD(t *testing.T) {
	m := validMetadata()
	// 100k CT * 10 USD = 1M USD in base units.
	want := decimal.New(1_000_000, USDDecimals)
	if got := m.FundingTargetUSD(); !got.Equal(want) {
		t.Errorf("funding target = %s, want %s", got, want)
	}
}

func TestBucketConsume(t *testing.T) {
	b := Bucket{Price: decimal.New(1, 0), AmountLeft: decimal.New(100, 0)}

	got := b.Consume(decimal.New(40, 0))
	if !got.Equal(decimal.New(40, 0)) {
		t.Fatalf("consume = %s, want 40", got)
	}
	// Over-ask is capped at what is left.
	got = b.Consume(decimal.New(100, 0))
	if !got.Equal(decimal.New(60, 0)) {
		t.Fatalf("consume = %s, want 60", got)
	}
	if !b.AmountLeft.IsZero() {
		t.Errorf("amount left = %s, want 0", b.AmountLeft)
	}
	if !b.Consumed.Equal(decimal.New(100, 0)) {
		t.Errorf("consumed = %s, want 100", b.Consumed)
	}
}

func TestEscrowAccountDeterministic(t *testing.T) {
	a := EscrowAccount(1)
	b := EscrowAccount(1)
	if a != b {
		t.Fatalf("escrow derivation not deterministic: %s != %s", a, b)
	}
	if a == EscrowAccount(2) {
		t.Error("distinct projects share an escrow account")
	}
}
