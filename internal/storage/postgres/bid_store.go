package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

// BidStore implements storage.BidStore using PostgreSQL.
type BidStore struct {
	pool *Pool
}

// NewBidStore creates a new BidStore.
func NewBidStore(pool *Pool) *BidStore {
	return &BidStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BidStore = (*BidStore)(nil)

// bidTicketUSD is the original USD ticket, kept in its own column so the
// identity aggregate can be summed in SQL.
func bidTicketUSD(b *domain.Bid) decimal.Decimal {
	return b.OriginalCTUSDPrice.Mul(b.OriginalCTAmount).Floor()
}

// Insert adds a new bid. Returns ErrDuplicateKey if (project, account, id) exists.
func (s *BidStore) Insert(ctx context.Context, b *domain.Bid) error {
	if b == nil {
		return storage.ErrInvalidInput
	}
	record, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bid: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO bids (project, account, id, identity, status, usd_ticket, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		int64(b.Project), string(b.Account), int64(b.ID), string(b.Identity),
		string(b.Status), bidTicketUSD(b).String(), record,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert bid: %w", err)
	}
	return nil
}

// Get retrieves one bid. Returns ErrNotFound if not exists.
func (s *BidStore) Get(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) (*domain.Bid, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT record FROM bids
		WHERE project = $1 AND account = $2 AND id = $3
	`, int64(project), string(account), int64(id))

	bid, err := scanBid(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bid: %w", err)
	}
	return bid, nil
}

// Update replaces a stored bid. Returns ErrNotFound if not exists.
func (s *BidStore) Update(ctx context.Context, b *domain.Bid) error {
	if b == nil {
		return storage.ErrInvalidInput
	}
	record, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bid: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE bids SET status = $4, usd_ticket = $5, record = $6
		WHERE project = $1 AND account = $2 AND id = $3
	`,
		int64(b.Project), string(b.Account), int64(b.ID),
		string(b.Status), bidTicketUSD(b).String(), record,
	)
	if err != nil {
		return fmt.Errorf("update bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Remove deletes one bid. Returns ErrNotFound if not exists.
func (s *BidStore) Remove(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM bids
		WHERE project = $1 AND account = $2 AND id = $3
	`, int64(project), string(account), int64(id))
	if err != nil {
		return fmt.Errorf("remove bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByProject retrieves all bids for a project, insertion order.
func (s *BidStore) ListByProject(ctx context.Context, project domain.ProjectID) ([]*domain.Bid, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT record FROM bids
		WHERE project = $1
		ORDER BY seq ASC
	`, int64(project))
	if err != nil {
		return nil, fmt.Errorf("list bids by project: %w", err)
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// SumUSDByIdentity sums the original USD ticket of an identity's bids on a
// project.
func (s *BidStore) SumUSDByIdentity(ctx context.Context, project domain.ProjectID, identity domain.Identity) (decimal.Decimal, error) {
	var sum string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(sum(usd_ticket), 0)::text FROM bids
		WHERE project = $1 AND identity = $2
	`, int64(project), string(identity)).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum bid tickets: %w", err)
	}
	d, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse bid ticket sum %q: %w", sum, err)
	}
	return d, nil
}

// HasWinningBid reports whether the identity holds an accepted or partially
// accepted bid on the project.
func (s *BidStore) HasWinningBid(ctx context.Context, project domain.ProjectID, identity domain.Identity) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bids
			WHERE project = $1 AND identity = $2 AND status = ANY($3)
		)
	`, int64(project), string(identity),
		[]string{string(domain.BidAccepted), string(domain.BidPartiallyAccepted)},
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check winning bid: %w", err)
	}
	return exists, nil
}

// Count returns the number of bids left for a project.
func (s *BidStore) Count(ctx context.Context, project domain.ProjectID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM bids WHERE project = $1`, int64(project)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bids: %w", err)
	}
	return count, nil
}

// CountByAccount returns the number of an account's bids on a project.
func (s *BidStore) CountByAccount(ctx context.Context, project domain.ProjectID, account domain.AccountID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM bids WHERE project = $1 AND account = $2`,
		int64(project), string(account)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count account bids: %w", err)
	}
	return count, nil
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var record []byte
	if err := row.Scan(&record); err != nil {
		return nil, err
	}
	var b domain.Bid
	if err := json.Unmarshal(record, &b); err != nil {
		return nil, fmt.Errorf("unmarshal bid: %w", err)
	}
	return &b, nil
}
