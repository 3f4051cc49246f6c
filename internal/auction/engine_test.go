package auction

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
	"launchpad/internal/ledger"
	"launchpad/internal/oracle"
	"launchpad/internal/storage"
	"launchpad/internal/storage/memory"
)

type engineFixture struct {
	engine *Engine
	bids   *memory.BidStore
	assets *ledger.Memory
	rec    *storage.ProjectRecord
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()

	bids := memory.NewBidStore()
	assets := ledger.NewMemory()
	prices := oracle.NewStatic(map[domain.AssetID]decimal.Decimal{
		// 1 USD per PLMC, decimals-aware.
		domain.AssetPLMC: decimal.New(1, -4),
		domain.AssetUSDT: decimal.New(1, 0),
	})

	meta := ladderMetadata()
	meta.ParticipationCurrencies = []domain.AssetID{domain.AssetUSDT}
	min := decimal.New(1, 6) // 1 USD minimum ticket
	meta.BiddingTicketSizes = domain.BiddingTicketSizes{
		Professional:  domain.TicketSize{MinUSD: &min},
		Institutional: domain.TicketSize{MinUSD: &min},
	}

	rec := &storage.ProjectRecord{
		ID:       1,
		Metadata: meta,
		Details: domain.ProjectDetails{
			ProjectID:                   1,
			Issuer:                      "issuer",
			IssuerIdentity:              "did:issuer",
			Status:                      domain.StatusAuctionRound,
			RemainingContributionTokens: meta.TotalAllocationSize,
		},
		Ladder: NewLadder(meta),
	}

	return &engineFixture{
		engine: New(Options{
			Bids:   bids,
			Seqs:   memory.NewSequenceStore(),
			Assets: assets,
			Prices: prices,
		}),
		bids:   bids,
		assets: assets,
		rec:    rec,
	}
}

func (f *engineFixture) fund(account domain.AccountID, plmc, usdt int64) {
	f.assets.Mint(domain.AssetPLMC, account, decimal.New(plmc, domain.PLMCDecimals))
	f.assets.Mint(domain.AssetUSDT, account, decimal.New(usdt, 6))
}

func bidParams(account string, ct int64, price string) BidParams {
	return BidParams{
		Account:    domain.AccountID(account),
		Identity:   domain.Identity("did:" + account),
		Class:      domain.ClassProfessional,
		CTAmount:   decimal.New(ct, 6),
		Price:      decimal.RequireFromString(price),
		Multiplier: 1,
		Asset:      domain.AssetUSDT,
	}
}

func TestPlaceBidValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund("alice", 1_000, 1_000)

	tests := []struct {
		name    string
		mutate  func(*BidParams)
		wantErr error
	}{
		{"issuer self-bid", func(p *BidParams) { p.Identity = "did:issuer" }, domain.ErrParticipationToOwnProject},
		{"retail cannot bid", func(p *BidParams) { p.Class = domain.ClassRetail }, domain.ErrNotAllowed},
		{"price below minimum", func(p *BidParams) { p.Price = decimal.RequireFromString("0.5") }, domain.ErrTicketTooLow},
		{"asset not accepted", func(p *BidParams) { p.Asset = domain.AssetDOT }, domain.ErrFundingAssetNotAccepted},
		{"multiplier out of range", func(p *BidParams) { p.Multiplier = 11 }, domain.ErrForbiddenMultiplier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := bidParams("alice", 10, "1.5")
			tt.mutate(&p)
			if _, err := f.engine.PlaceBid(ctx, f.rec, p, 100); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	f.rec.Details.Status = domain.StatusCommunityRound
	if _, err := f.engine.PlaceBid(ctx, f.rec, bidParams("alice", 10, "1.5"), 100); !errors.Is(err, domain.ErrIncorrectRound) {
		t.Errorf("expected ErrIncorrectRound, got %v", err)
	}
}

func TestPlaceBidLocksAndRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund("alice", 1_000, 1_000)

	bid, err := f.engine.PlaceBid(ctx, f.rec, bidParams("alice", 60, "1.5"), 100)
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}

	// 50 CT at 1.0 plus 10 CT at 1.1: 61 USD ticket.
	wantTicket := decimal.New(61, 6)
	gotTicket := bid.OriginalCTUSDPrice.Mul(bid.FinalCTAmount).Floor()
	if !gotTicket.Equal(wantTicket) {
		t.Errorf("ticket = %s, want %s", gotTicket, wantTicket)
	}
	if bid.Status != domain.BidAccepted {
		t.Errorf("status = %s, want accepted", bid.Status)
	}

	// Collateral held at 1 USD per PLMC: 61 PLMC.
	if held := f.assets.HeldBalance("alice", domain.HoldParticipation); !held.Equal(decimal.New(61, domain.PLMCDecimals)) {
		t.Errorf("held collateral = %s, want 61 PLMC", held)
	}
	// Funding asset moved to escrow.
	if bal := f.assets.Balance(domain.AssetUSDT, domain.EscrowAccount(1)); !bal.Equal(decimal.New(61, 6)) {
		t.Errorf("escrow = %s, want 61 USDT", bal)
	}
}

func TestPlaceBidInsufficientFundsLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// Enough collateral, no funding asset.
	f.fund("alice", 1_000, 0)

	_, err := f.engine.PlaceBid(ctx, f.rec, bidParams("alice", 10, "1.5"), 100)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// The collateral hold was rolled back.
	if held := f.assets.HeldBalance("alice", domain.HoldParticipation); !held.IsZero() {
		t.Errorf("held = %s, want 0", held)
	}
	if n, _ := f.bids.Count(ctx, 1); n != 0 {
		t.Errorf("bids = %d, want 0", n)
	}
}

func TestPlaceBidPartialFillAndSoldOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund("alice", 1_000, 1_000)
	f.fund("bob", 1_000, 1_000)

	// Alice takes the whole 100 CT allocation.
	bid, err := f.engine.PlaceBid(ctx, f.rec, bidParams("alice", 120, "2"), 100)
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if bid.Status != domain.BidPartiallyAccepted {
		t.Errorf("status = %s, want partially accepted", bid.Status)
	}
	if !bid.FinalCTAmount.Equal(decimal.New(100, 6)) {
		t.Errorf("filled = %s, want 100e6", bid.FinalCTAmount)
	}

	if _, err := f.engine.PlaceBid(ctx, f.rec, bidParams("bob", 1, "2"), 101); !errors.Is(err, domain.ErrProjectSoldOut) {
		t.Errorf("expected ErrProjectSoldOut, got %v", err)
	}
}

func TestCloseFixesWAPAndStatuses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund("alice", 1_000, 1_000)
	f.fund("bob", 1_000, 1_000)

	// Alice fills cheap buckets, bob pushes the price up.
	if _, err := f.engine.PlaceBid(ctx, f.rec, bidParams("alice", 60, "1.5"), 100); err != nil {
		t.Fatalf("alice bid: %v", err)
	}
	if _, err := f.engine.PlaceBid(ctx, f.rec, bidParams("bob", 20, "1.2"), 101); err != nil {
		t.Fatalf("bob bid: %v", err)
	}

	if err := f.engine.Close(ctx, f.rec); err != nil {
		t.Fatalf("close: %v", err)
	}

	// WAP = (50*1.0 + 10*1.1 + 10*1.2) / 70.
	wap := *f.rec.Details.WeightedAveragePrice
	want := decimal.New(73, 6).Div(decimal.New(70, 6))
	if !wap.Equal(want) {
		t.Fatalf("wap = %s, want %s", wap, want)
	}

	bids, _ := f.bids.ListByProject(ctx, 1)
	var accepted decimal.Decimal
	for _, b := range bids {
		switch b.Account {
		case "alice":
			// Alice's weighted price 61/60 sits below the WAP.
			if b.Status != domain.BidRejected {
				t.Errorf("alice status = %s, want rejected", b.Status)
			}
		case "bob":
			if !b.IsWinning() {
				t.Errorf("bob status = %s, want winning", b.Status)
			}
			if !b.FinalCTUSDPrice.Equal(wap) {
				t.Errorf("bob final price = %s, want WAP %s", b.FinalCTUSDPrice, wap)
			}
			accepted = accepted.Add(b.FinalCTAmount)
		}
	}

	// Only accepted CT leaves the remaining pool.
	wantRemaining := f.rec.Metadata.TotalAllocationSize.Sub(accepted)
	if !f.rec.Details.RemainingContributionTokens.Equal(wantRemaining) {
		t.Errorf("remaining = %s, want %s", f.rec.Details.RemainingContributionTokens, wantRemaining)
	}

	// Closing twice is an invariant violation.
	if err := f.engine.Close(ctx, f.rec); !errors.Is(err, domain.ErrImpossibleState) {
		t.Errorf("expected ErrImpossibleState, got %v", err)
	}
}

func TestPlaceBidParticipationCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund("alice", 100_000, 100_000)

	for i := 0; i < domain.MaxParticipationsPerUser; i++ {
		if _, err := f.engine.PlaceBid(ctx, f.rec, bidParams("alice", 1, "1"), 100); err != nil {
			t.Fatalf("bid %d: %v", i+1, err)
		}
	}
	if _, err := f.engine.PlaceBid(ctx, f.rec, bidParams("alice", 1, "1"), 100); !errors.Is(err, domain.ErrTooManyParticipations) {
		t.Errorf("expected ErrTooManyParticipations, got %v", err)
	}

	// Another account is unaffected.
	f.fund("bob", 10_000, 10_000)
	if _, err := f.engine.PlaceBid(ctx, f.rec, bidParams("bob", 1, "1"), 100); err != nil {
		t.Errorf("bob bid: %v", err)
	}
}

// downSequenceStore fails every allocation, standing in for a broken
// storage backend.
type downSequenceStore struct{}

func (downSequenceStore) Next(context.Context, string) (uint32, error) {
	return 0, errors.New("sequence backend down")
}

func TestPlaceBidSequenceFailureMovesNoFunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund("alice", 1_000, 1_000)

	engine := New(Options{
		Bids:   f.bids,
		Seqs:   downSequenceStore{},
		Assets: f.assets,
		Prices: oracle.NewStatic(map[domain.AssetID]decimal.Decimal{
			domain.AssetPLMC: decimal.New(1, -4),
			domain.AssetUSDT: decimal.New(1, 0),
		}),
	})

	// The id allocation fails before any record is written or any funds
	// are held.
	if _, err := engine.PlaceBid(ctx, f.rec, bidParams("alice", 10, "1.5"), 100); err == nil {
		t.Fatal("expected an error from the broken sequence store")
	}
	if held := f.assets.HeldBalance("alice", domain.HoldParticipation); !held.IsZero() {
		t.Errorf("held = %s, want 0", held)
	}
	if bal := f.assets.Balance(domain.AssetUSDT, "alice"); !bal.Equal(decimal.New(1_000, 6)) {
		t.Errorf("balance = %s, want the untouched 1000 USDT", bal)
	}
	if n, _ := f.bids.Count(ctx, 1); n != 0 {
		t.Errorf("bids = %d, want 0", n)
	}
}
