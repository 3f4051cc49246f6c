package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

func testBid(project domain.ProjectID, account domain.AccountID, id uint32) *domain.Bid {
	return &domain.Bid{
		ID:                 id,
		Project:            project,
		Account:            account,
		Identity:           domain.Identity("did:" + account),
		Class:              domain.ClassProfessional,
		OriginalCTAmount:   decimal.New(1_000, 10),
		OriginalCTUSDPrice: decimal.RequireFromString("0.001"),
		Status:             domain.BidAccepted,
		FundingAsset:       domain.AssetUSDT,
		Multiplier:         1,
	}
}

func TestBidInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewBidStore()

	if err := s.Insert(ctx, testBid(1, "alice", 1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, testBid(1, "alice", 1)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	// Same account, new id is fine.
	if err := s.Insert(ctx, testBid(1, "alice", 2)); err != nil {
		t.Errorf("insert second bid: %v", err)
	}
}

func TestBidListPreservesArrivalOrder(t *testing.T) {
	ctx := context.Background()
	s := NewBidStore()

	s.Insert(ctx, testBid(1, "carol", 3))
	s.Insert(ctx, testBid(1, "alice", 1))
	s.Insert(ctx, testBid(1, "bob", 2))

	bids, err := s.ListByProject(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []domain.AccountID{"carol", "alice", "bob"}
	if len(bids) != len(want) {
		t.Fatalf("len = %d, want %d", len(bids), len(want))
	}
	for i, b := range bids {
		if b.Account != want[i] {
			t.Errorf("bids[%d] = %s, want %s", i, b.Account, want[i])
		}
	}
}

func TestBidRemoveConsumesOnce(t *testing.T) {
	ctx := context.Background()
	s := NewBidStore()
	s.Insert(ctx, testBid(1, "alice", 1))

	if err := s.Remove(ctx, 1, "alice", 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, 1, "alice", 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second remove, got %v", err)
	}
	if n, _ := s.Count(ctx, 1); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestBidSumUSDByIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewBidStore()

	// Two accounts under one identity.
	a := testBid(1, "alice-hot", 1)
	a.Identity = "did:alice"
	b := testBid(1, "alice-cold", 2)
	b.Identity = "did:alice"
	c := testBid(1, "bob", 3)
	c.Identity = "did:bob"
	s.Insert(ctx, a)
	s.Insert(ctx, b)
	s.Insert(ctx, c)

	sum, err := s.SumUSDByIdentity(ctx, 1, "did:alice")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	// Each bid: 0.001 * 1000e10 = 1e10 USD base units.
	if want := decimal.New(2, 10); !sum.Equal(want) {
		t.Errorf("sum = %s, want %s", sum, want)
	}
}

func TestHasWinningBid(t *testing.T) {
	ctx := context.Background()
	s := NewBidStore()

	rejected := testBid(1, "alice", 1)
	rejected.Status = domain.BidRejected
	s.Insert(ctx, rejected)

	if won, _ := s.HasWinningBid(ctx, 1, rejected.Identity); won {
		t.Error("rejected bid counted as winning")
	}

	partial := testBid(1, "alice", 2)
	partial.Status = domain.BidPartiallyAccepted
	s.Insert(ctx, partial)

	if won, _ := s.HasWinningBid(ctx, 1, partial.Identity); !won {
		t.Error("partially accepted bid not counted as winning")
	}
}
