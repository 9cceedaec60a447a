package builder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/postgres"
)

const jobsSchema = `
CREATE TABLE IF NOT EXISTS reindex_jobs (
	id          TEXT PRIMARY KEY,
	scope       TEXT NOT NULL,
	state       TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const jobsIndex = `CREATE INDEX IF NOT EXISTS reindex_jobs_created_at_idx ON reindex_jobs (created_at DESC)`

// PostgresJobStore persists job history so it survives restarts. The index
// itself is never persisted.
type PostgresJobStore struct {
	client *postgres.Client
}

// NewPostgresJobStore creates the table if needed.
func NewPostgresJobStore(ctx context.Context, client *postgres.Client) (*PostgresJobStore, error) {
	if err := client.Migrate(ctx, jobsSchema, jobsIndex); err != nil {
		return nil, fmt.Errorf("migrating reindex_jobs: %w", err)
	}
	return &PostgresJobStore{client: client}, nil
}

func (s *PostgresJobStore) Save(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job %s: %w", job.ID, err)
	}
	_, err = s.client.DB.ExecContext(ctx, `
		INSERT INTO reindex_jobs (id, scope, state, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state, payload = EXCLUDED.payload, updated_at = now()`,
		job.ID, string(job.Scope), string(job.State), payload, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving job %s: %w", job.ID, err)
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (Job, error) {
	var payload []byte
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT payload FROM reindex_jobs WHERE id = $1`, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("job %s: %w", id, apperrors.ErrJobNotFound)
	}
	if err != nil {
		return Job{}, fmt.Errorf("loading job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return Job{}, fmt.Errorf("decoding job %s: %w", id, err)
	}
	return job, nil
}

func (s *PostgresJobStore) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT payload FROM reindex_jobs ORDER BY created_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		var job Job
		if err := json.Unmarshal(payload, &job); err != nil {
			return nil, fmt.Errorf("decoding job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
