package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

// EvaluationStore implements storage.EvaluationStore using PostgreSQL.
type EvaluationStore struct {
	pool *Pool
}

// NewEvaluationStore creates a new EvaluationStore.
func NewEvaluationStore(pool *Pool) *EvaluationStore {
	return &EvaluationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EvaluationStore = (*EvaluationStore)(nil)

// Insert adds a new evaluation. Returns ErrDuplicateKey if
// (project, account, id) exists.
func (s *EvaluationStore) Insert(ctx context.Context, e *domain.Evaluation) error {
	if e == nil {
		return storage.ErrInvalidInput
	}
	record, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO evaluations (project, account, id, identity, record)
		VALUES ($1, $2, $3, $4, $5)
	`,
		int64(e.Project), string(e.Account), int64(e.ID), string(e.Identity), record,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// Get retrieves one evaluation. Returns ErrNotFound if not exists.
func (s *EvaluationStore) Get(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) (*domain.Evaluation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT record FROM evaluations
		WHERE project = $1 AND account = $2 AND id = $3
	`, int64(project), string(account), int64(id))

	eval, err := scanEvaluation(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	return eval, nil
}

// Update replaces a stored evaluation. Returns ErrNotFound if not exists.
func (s *EvaluationStore) Update(ctx context.Context, e *domain.Evaluation) error {
	if e == nil {
		return storage.ErrInvalidInput
	}
	record, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE evaluations SET record = $4
		WHERE project = $1 AND account = $2 AND id = $3
	`, int64(e.Project), string(e.Account), int64(e.ID), record)
	if err != nil {
		return fmt.Errorf("update evaluation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Remove deletes one evaluation. Returns ErrNotFound if not exists.
func (s *EvaluationStore) Remove(ctx context.Context, project domain.ProjectID, account domain.AccountID, id uint32) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM evaluations
		WHERE project = $1 AND account = $2 AND id = $3
	`, int64(project), string(account), int64(id))
	if err != nil {
		return fmt.Errorf("remove evaluation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByProject retrieves all evaluations for a project, insertion order.
func (s *EvaluationStore) ListByProject(ctx context.Context, project domain.ProjectID) ([]*domain.Evaluation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT record FROM evaluations
		WHERE project = $1
		ORDER BY seq ASC
	`, int64(project))
	if err != nil {
		return nil, fmt.Errorf("list evaluations by project: %w", err)
	}
	defer rows.Close()

	return scanEvaluations(rows)
}

// ListByAccount retrieves an account's evaluations for a project.
func (s *EvaluationStore) ListByAccount(ctx context.Context, project domain.ProjectID, account domain.AccountID) ([]*domain.Evaluation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT record FROM evaluations
		WHERE project = $1 AND account = $2
		ORDER BY seq ASC
	`, int64(project), string(account))
	if err != nil {
		return nil, fmt.Errorf("list evaluations by account: %w", err)
	}
	defer rows.Close()

	return scanEvaluations(rows)
}

// Count returns the number of evaluations left for a project.
func (s *EvaluationStore) Count(ctx context.Context, project domain.ProjectID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM evaluations WHERE project = $1`, int64(project)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return count, nil
}

func scanEvaluation(row pgx.Row) (*domain.Evaluation, error) {
	var record []byte
	if err := row.Scan(&record); err != nil {
		return nil, err
	}
	var e domain.Evaluation
	if err := json.Unmarshal(record, &e); err != nil {
		return nil, fmt.Errorf("unmarshal evaluation: %w", err)
	}
	return &e, nil
}

func scanEvaluations(rows pgx.Rows) ([]*domain.Evaluation, error) {
	var evals []*domain.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}
