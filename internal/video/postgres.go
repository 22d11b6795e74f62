package video

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS video_jobs (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	prompt       TEXT NOT NULL,
	script       TEXT NOT NULL,
	artifact_key TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_video_jobs_owner_created
	ON video_jobs (owner_id, created_at);
`

// PostgresRepository is the pgx-backed implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Postgres job repository and ensures the
// video_jobs table exists.
func NewPostgresRepository(ctx context.Context, pool *pgxpool.Pool) (*PostgresRepository, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("video: ensure schema: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// Create inserts a new job record.
func (r *PostgresRepository) Create(ctx context.Context, job *Job) error {
	query := `
INSERT INTO video_jobs (id, owner_id, prompt, script, artifact_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.OwnerID,
		job.Prompt,
		job.Script,
		job.ArtifactKey,
		job.CreatedAt,
	)
	return err
}

// FindByID fetches a job by its identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Job, error) {
	query := `
SELECT id, owner_id, prompt, script, artifact_key, created_at
FROM video_jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var job Job
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Prompt,
		&job.Script,
		&job.ArtifactKey,
		&job.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// ListByOwner fetches all jobs for an owner ordered by creation time.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, order Order) ([]*Job, error) {
	query := `
SELECT id, owner_id, prompt, script, artifact_key, created_at
FROM video_jobs
WHERE owner_id = $1
ORDER BY created_at ASC;
`
	if order == NewestFirst {
		query = `
SELECT id, owner_id, prompt, script, artifact_key, created_at
FROM video_jobs
WHERE owner_id = $1
ORDER BY created_at DESC;
`
	}

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*Job, 0)
	for rows.Next() {
		var job Job
		if err := rows.Scan(
			&job.ID,
			&job.OwnerID,
			&job.Prompt,
			&job.Script,
			&job.ArtifactKey,
			&job.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &job)
	}
	return result, rows.Err()
}

// SetArtifactKey records the storage key of a rendered artifact.
func (r *PostgresRepository) SetArtifactKey(ctx context.Context, id, key string) error {
	query := `
UPDATE video_jobs
SET artifact_key = $2
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// DeleteByOwner removes all jobs belonging to ownerID.
func (r *PostgresRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	query := `
DELETE FROM video_jobs
WHERE owner_id = $1;
`
	_, err := r.pool.Exec(ctx, query, ownerID)
	return err
}
