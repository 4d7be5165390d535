package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/ingest"
	"github.com/dvolkov/taskdesk/internal/store"
)

// PostgresJobStore implements the ingest.JobStore interface using a
// PostgreSQL database as the storage backend. Job payloads are stored as
// JSONB so the row survives process restarts intact.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the
// JobStore interface.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements ingest.JobStore interface
var _ ingest.JobStore = (*PostgresJobStore)(nil)

// SaveJob implements ingest.JobStore.SaveJob
func (s *PostgresJobStore) SaveJob(ctx context.Context, job *ingest.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode job payload: %w", err)
	}

	query := `
		INSERT INTO inbound_jobs (id, type, payload, status, attempts, detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.Type,
		payload,
		job.Status,
		job.Attempts,
		job.Detail,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("failed to save job",
			"job_id", job.ID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// UpdateJobStatus implements ingest.JobStore.UpdateJobStatus
func (s *PostgresJobStore) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status ingest.JobStatus, detail string) error {
	query := `
		UPDATE inbound_jobs
		SET status = $1, detail = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, status, detail, time.Now().UTC(), jobID)
	if err != nil {
		s.logger.Error("failed to update job status",
			"job_id", jobID,
			"status", status,
			"error", err)
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "job"); err != nil {
		// A missing row means the job was never persisted; nothing to update.
		s.logger.Warn("no job found to update", "job_id", jobID)
		return nil
	}

	return nil
}

// IncrementAttempts implements ingest.JobStore.IncrementAttempts. The
// increment happens in SQL so concurrent workers cannot lose an update.
func (s *PostgresJobStore) IncrementAttempts(ctx context.Context, jobID uuid.UUID) (int, error) {
	query := `
		UPDATE inbound_jobs
		SET attempts = attempts + 1, updated_at = $1
		WHERE id = $2
		RETURNING attempts
	`

	var attempts int
	err := s.db.QueryRowContext(ctx, query, time.Now().UTC(), jobID).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: job not found", store.ErrNotFound)
		}
		return 0, MapError(err)
	}

	return attempts, nil
}

// GetPendingJobs implements ingest.JobStore.GetPendingJobs
func (s *PostgresJobStore) GetPendingJobs(ctx context.Context, olderThan time.Duration) ([]*ingest.Job, error) {
	return s.getJobsByStatus(ctx, ingest.JobStatusPending, olderThan)
}

// GetProcessingJobs implements ingest.JobStore.GetProcessingJobs
func (s *PostgresJobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]*ingest.Job, error) {
	return s.getJobsByStatus(ctx, ingest.JobStatusProcessing, olderThan)
}

// WithTx implements ingest.JobStore.WithTx
func (s *PostgresJobStore) WithTx(tx *sql.Tx) ingest.JobStore {
	return &PostgresJobStore{
		db:     tx,
		logger: s.logger,
	}
}

// getJobsByStatus fetches jobs by status with an optional age filter on
// updated_at.
func (s *PostgresJobStore) getJobsByStatus(ctx context.Context, status ingest.JobStatus, olderThan time.Duration) ([]*ingest.Job, error) {
	var query string
	var args []interface{}

	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status, attempts, detail, created_at, updated_at
			FROM inbound_jobs
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []interface{}{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT id, type, payload, status, attempts, detail, created_at, updated_at
			FROM inbound_jobs
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []interface{}{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*ingest.Job
	for rows.Next() {
		var job ingest.Job
		var payload []byte

		err := rows.Scan(
			&job.ID,
			&job.Type,
			&payload,
			&job.Status,
			&job.Attempts,
			&job.Detail,
			&job.CreatedAt,
			&job.UpdatedAt,
		)
		if err != nil {
			return nil, MapError(err)
		}

		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode job payload: %w", err)
		}

		jobs = append(jobs, &job)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return jobs, nil
}
