package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

func testRecord(identity domain.Identity) *storage.ProjectRecord {
	min := decimal.New(100, domain.USDDecimals)
	return &storage.ProjectRecord{
		Metadata: domain.ProjectMetadata{
			TokenName:              "Launch Token",
			TokenSymbol:            "LCH",
			TokenDecimals:          6,
			TotalAllocationSize:    decimal.New(100_000, 6),
			AuctionRoundAllocation: decimal.New(50_000, 6),
			MinimumPrice:           decimal.New(1, 0),
			BiddingTicketSizes: domain.BiddingTicketSizes{
				Professional: domain.TicketSize{MinUSD: &min},
			},
			ParticipationCurrencies: []domain.AssetID{domain.AssetUSDT},
			FundingDestination:      "issuer-wallet",
			PolicyHash:              "QmPolicy",
		},
		Details: domain.ProjectDetails{
			Issuer:                      "ida",
			IssuerIdentity:              identity,
			Status:                      domain.StatusApplication,
			FundraisingTargetUSD:        decimal.New(100_000, domain.USDDecimals),
			RemainingContributionTokens: decimal.New(100_000, 6),
		},
		Ladder: domain.BucketLadder{
			{Price: decimal.New(1, 0), AmountLeft: decimal.New(25_000, 6)},
			{Price: decimal.New(11, -1), AmountLeft: decimal.New(5_000, 6)},
		},
	}
}

func TestProjectStorePostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewProjectStore(pool)

	id, err := store.Create(ctx, testRecord("did:ida"))
	require.NoError(t, err)
	require.Equal(t, domain.ProjectID(1), id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, id, got.Details.ProjectID)
	require.Equal(t, "LCH", got.Metadata.TokenSymbol)
	require.True(t, got.Metadata.MinimumPrice.Equal(decimal.New(1, 0)))
	require.Len(t, got.Ladder, 2)
	require.True(t, got.Ladder[1].Price.Equal(decimal.New(11, -1)))
	require.NotNil(t, got.Metadata.BiddingTicketSizes.Professional.MinUSD)

	// Second project gets the next id.
	id2, err := store.Create(ctx, testRecord("did:other"))
	require.NoError(t, err)
	require.Equal(t, domain.ProjectID(2), id2)

	// Status update is reflected in the active-project lookup.
	got.Details.Status = domain.StatusSettlementFinished
	require.NoError(t, store.Update(ctx, got))

	_, err = store.ActiveByIssuerIdentity(ctx, "did:ida")
	require.ErrorIs(t, err, storage.ErrNotFound)

	active, err := store.ActiveByIssuerIdentity(ctx, "did:other")
	require.NoError(t, err)
	require.Equal(t, id2, active.ID)

	// Delete is consumed exactly once.
	require.NoError(t, store.Delete(ctx, id2))
	require.ErrorIs(t, store.Delete(ctx, id2), storage.ErrNotFound)

	_, err = store.Get(ctx, id2)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, store.Update(ctx, testRecord("did:ghost")), storage.ErrNotFound)
}
