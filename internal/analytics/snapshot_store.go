package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

// SnapshotStore persists funding snapshots in ClickHouse. The table is
// created by the embedded migrations.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Record inserts one snapshot.
func (s *SnapshotStore) Record(ctx context.Context, snap FundingSnapshot) error {
	return s.InsertBulk(ctx, []FundingSnapshot{snap})
}

// InsertBulk adds multiple snapshots in one batch.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snaps []FundingSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO funding_snapshots (
			project, block, status, raised_usd, remaining_tokens,
			evaluation_bonded_usd, weighted_average_price, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snaps {
		err = batch.Append(
			uint32(snap.Project), uint64(snap.Block), snap.Status.String(),
			snap.RaisedUSD.String(), snap.RemainingTokens.String(),
			snap.EvaluationBondedUSD.String(), snap.WeightedAveragePrice.String(),
			snap.ObservedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// ByProject retrieves all snapshots for a project, ordered by block ASC.
func (s *SnapshotStore) ByProject(ctx context.Context, project domain.ProjectID) ([]FundingSnapshot, error) {
	query := `
		SELECT project, block, status, raised_usd, remaining_tokens,
		       evaluation_bonded_usd, weighted_average_price, observed_at
		FROM funding_snapshots FINAL
		WHERE project = ?
		ORDER BY block ASC
	`

	rows, err := s.conn.Query(ctx, query, uint32(project))
	if err != nil {
		return nil, fmt.Errorf("query by project: %w", err)
	}
	defer rows.Close()

	var snaps []FundingSnapshot
	for rows.Next() {
		var (
			snap              FundingSnapshot
			project           uint32
			block             uint64
			status            string
			raised, remaining string
			bonded, wap       string
			observedAt        time.Time
		)
		if err := rows.Scan(&project, &block, &status, &raised, &remaining, &bonded, &wap, &observedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Project = domain.ProjectID(project)
		snap.Block = domain.BlockNumber(block)
		snap.Status = domain.ProjectStatus(status)
		snap.ObservedAt = observedAt
		for _, field := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&snap.RaisedUSD, raised},
			{&snap.RemainingTokens, remaining},
			{&snap.EvaluationBondedUSD, bonded},
			{&snap.WeightedAveragePrice, wap},
		} {
			d, err := decimal.NewFromString(field.src)
			if err != nil {
				return nil, fmt.Errorf("parse snapshot decimal %q: %w", field.src, err)
			}
			*field.dst = d
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
