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

// ContributionStore implements storage.ContributionStore using PostgreSQL.
type ContributionStore struct {
	pool *Pool
}

// NewContributionStore creates a new ContributionStore.
func NewContributionStore(pool *Pool) *ContributionStore {
	return &ContributionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ContributionStore = (*ContributionStore)(nil)

// Insert adds a new contribution. Returns ErrDuplicateKey if
// (project, account, id) exists.
func (s *ContributionStore) Insert(ctx context.Context, c *domain.Contribution) error {
	if c == nil {
		return storage.ErrInvalidInput
	}
	record, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal contribution: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO contributions (project, account, id, identity, usd_ticket, record)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		int64(c.Project), string(c.Account), int64(c.ID), string(c.Identity),
		c.USDTicket.String(), record,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert contribution: %w", err)
	}
	return nil
}

// Get retrieves one contribution. Returns ErrNotFound if not exists.
func (s *ContributionStore) Get(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) (*domain.Contribution, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT record FROM contributions
		WHERE project = $1 AND account = $2 AND id = $3
	`, int64(project), string(account), int64(id))

	cont, err := scanContribution(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get contribution: %w", err)
	}
	return cont, nil
}

// Remove deletes one contribution. Returns ErrNotFound if not exists.
func (s *ContributionStore) Remove(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM contributions
		WHERE project = $1 AND account = $2 AND id = $3
	`, int64(project), string(account), int64(id))
	if err != nil {
		return fmt.Errorf("remove contribution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByProject retrieves all contributions for a project, insertion order.
func (s *ContributionStore) ListByProject(ctx context.Context, project domain.ProjectID) ([]*domain.Contribution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT record FROM contributions
		WHERE project = $1
		ORDER BY seq ASC
	`, int64(project))
	if err != nil {
		return nil, fmt.Errorf("list contributions by project: %w", err)
	}
	defer rows.Close()

	var conts []*domain.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		conts = append(conts, c)
	}
	return conts, rows.Err()
}

// SumUSDByIdentity sums the USD tickets of an identity's contributions on a
// project.
func (s *ContributionStore) SumUSDByIdentity(ctx context.Context, project domain.ProjectID, identity domain.Identity) (decimal.Decimal, error) {
	var sum string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(sum(usd_ticket), 0)::text FROM contributions
		WHERE project = $1 AND identity = $2
	`, int64(project), string(identity)).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum contribution tickets: %w", err)
	}
	d, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse contribution ticket sum %q: %w", sum, err)
	}
	return d, nil
}

// Count returns the number of contributions left for a project.
func (s *ContributionStore) Count(ctx context.Context, project domain.ProjectID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM contributions WHERE project = $1`, int64(project)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count contributions: %w", err)
	}
	return count, nil
}

// CountByAccount returns the number of an account's contributions on a
// project.
func (s *ContributionStore) CountByAccount(ctx context.Context, project domain.ProjectID, account domain.AccountID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM contributions WHERE project = $1 AND account = $2`,
		int64(project), string(account)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count account contributions: %w", err)
	}
	return count, nil
}

func scanContribution(row pgx.Row) (*domain.Contribution, error) {
	var record []byte
	if err := row.Scan(&record); err != nil {
		return nil, err
	}
	var c domain.Contribution
	if err := json.Unmarshal(record, &c); err != nil {
		return nil, fmt.Errorf("unmarshal contribution: %w", err)
	}
	return &c, nil
}
