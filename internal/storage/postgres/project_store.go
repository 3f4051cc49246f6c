package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"launchpad/internal/domain"
	"launchpad/internal/storage"
)

// ProjectStore implements storage.ProjectStore using PostgreSQL.
type ProjectStore struct {
	pool *Pool
}

// NewProjectStore creates a new ProjectStore.
func NewProjectStore(pool *Pool) *ProjectStore {
	return &ProjectStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProjectStore = (*ProjectStore)(nil)

// Create inserts a new project under the next incrementing id. The id is
// reserved up front so it can be baked into the stored details JSON.
func (s *ProjectStore) Create(ctx context.Context, rec *storage.ProjectRecord) (domain.ProjectID, error) {
	if rec == nil {
		return 0, storage.ErrInvalidInput
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT nextval(pg_get_serial_sequence('projects', 'id'))`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("reserve project id: %w", err)
	}

	stored := *rec
	stored.ID = domain.ProjectID(id)
	stored.Details.ProjectID = stored.ID

	metadata, details, ladder, err := marshalProject(&stored)
	if err != nil {
		return 0, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO projects (id, issuer_identity, status, metadata, details, ladder)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		int64(stored.ID),
		string(stored.Details.IssuerIdentity),
		stored.Details.Status.String(),
		metadata, details, ladder,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, storage.ErrDuplicateKey
		}
		return 0, fmt.Errorf("insert project: %w", err)
	}
	return stored.ID, nil
}

// Get retrieves a project by id. Returns ErrNotFound if not exists.
func (s *ProjectStore) Get(ctx context.Context, id domain.ProjectID) (*storage.ProjectRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, metadata, details, ladder
		FROM projects
		WHERE id = $1
	`, int64(id))

	rec, err := scanProject(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return rec, nil
}

// Update replaces the stored record. Returns ErrNotFound if not exists.
func (s *ProjectStore) Update(ctx context.Context, rec *storage.ProjectRecord) error {
	if rec == nil {
		return storage.ErrInvalidInput
	}
	metadata, details, ladder, err := marshalProject(rec)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE projects
		SET issuer_identity = $2, status = $3, metadata = $4, details = $5, ladder = $6
		WHERE id = $1
	`,
		int64(rec.ID),
		string(rec.Details.IssuerIdentity),
		rec.Details.Status.String(),
		metadata, details, ladder,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a project. Returns ErrNotFound if not exists.
func (s *ProjectStore) Delete(ctx context.Context, id domain.ProjectID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ActiveByIssuerIdentity returns the issuer identity's project that has not
// reached SettlementFinished. Returns ErrNotFound if none.
func (s *ProjectStore) ActiveByIssuerIdentity(ctx context.Context, identity domain.Identity) (*storage.ProjectRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, metadata, details, ladder
		FROM projects
		WHERE issuer_identity = $1 AND status <> $2
		ORDER BY id ASC
		LIMIT 1
	`, string(identity), domain.StatusSettlementFinished.String())

	rec, err := scanProject(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get active project by issuer: %w", err)
	}
	return rec, nil
}

func marshalProject(rec *storage.ProjectRecord) (metadata, details, ladder []byte, err error) {
	if metadata, err = json.Marshal(rec.Metadata); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal project metadata: %w", err)
	}
	if details, err = json.Marshal(rec.Details); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal project details: %w", err)
	}
	if ladder, err = json.Marshal(rec.Ladder); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal bucket ladder: %w", err)
	}
	return metadata, details, ladder, nil
}

func scanProject(row interface{ Scan(...any) error }) (*storage.ProjectRecord, error) {
	var (
		id                        int64
		metadata, details, ladder []byte
	)
	if err := row.Scan(&id, &metadata, &details, &ladder); err != nil {
		return nil, err
	}

	rec := &storage.ProjectRecord{ID: domain.ProjectID(id)}
	if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal project metadata: %w", err)
	}
	if err := json.Unmarshal(details, &rec.Details); err != nil {
		return nil, fmt.Errorf("unmarshal project details: %w", err)
	}
	if err := json.Unmarshal(ladder, &rec.Ladder); err != nil {
		return nil, fmt.Errorf("unmarshal bucket ladder: %w", err)
	}
	return rec, nil
}
