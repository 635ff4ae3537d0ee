/**
 * Job persistence.
 *
 * Async processing jobs and their results live in postgres; the sync
 * request path never touches this store.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/doclab/doclab/internal/result"
)

// Job lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrJobNotFound is returned when a job id is unknown.
var ErrJobNotFound = errors.New("job not found")

// JobRecord is one persisted processing job.
type JobRecord struct {
	ID          string                   `json:"id"`
	Filename    string                   `json:"filename"`
	Status      string                   `json:"status"`
	Error       string                   `json:"error,omitempty"`
	Result      *result.ProcessingResult `json:"result,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	StartedAt   *time.Time               `json:"started_at,omitempty"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
}

// JobStore persists jobs to postgres.
type JobStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewJobStore opens the database and configures the pool.
func NewJobStore(databaseURL string, logger *zap.Logger) (*JobStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return &JobStore{db: db, logger: logger.Named("jobstore")}, nil
}

// EnsureSchema creates the jobs table when missing.
func (s *JobStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS processing_jobs (
			id           TEXT PRIMARY KEY,
			filename     TEXT NOT NULL,
			status       TEXT NOT NULL,
			error        TEXT NOT NULL DEFAULT '',
			result       JSONB,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			started_at   TIMESTAMPTZ,
			completed_at TIMESTAMPTZ
		)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateJob inserts a pending job.
func (s *JobStore) CreateJob(ctx context.Context, id, filename string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processing_jobs (id, filename, status) VALUES ($1, $2, $3)`,
		id, filename, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}
	return nil
}

// MarkProcessing transitions a job to processing.
func (s *JobStore) MarkProcessing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = $2, started_at = now() WHERE id = $1`,
		id, StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark job %s processing: %w", id, err)
	}
	return requireRow(res, id)
}

// Complete stores the result and transitions the job to completed.
func (s *JobStore) Complete(ctx context.Context, id string, r *result.ProcessingResult) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result for job %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = $2, result = $3, completed_at = now() WHERE id = $1`,
		id, StatusCompleted, payload)
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return requireRow(res, id)
}

// Fail stores the error message and transitions the job to failed.
func (s *JobStore) Fail(ctx context.Context, id, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = $2, error = $3, completed_at = now() WHERE id = $1`,
		id, StatusFailed, message)
	if err != nil {
		return fmt.Errorf("failed to fail job %s: %w", id, err)
	}
	return requireRow(res, id)
}

// Get loads one job by id.
func (s *JobStore) Get(ctx context.Context, id string) (*JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, status, error, result, created_at, started_at, completed_at
		FROM processing_jobs WHERE id = $1`, id)

	var (
		rec     JobRecord
		payload []byte
	)
	err := row.Scan(&rec.ID, &rec.Filename, &rec.Status, &rec.Error,
		&payload, &rec.CreatedAt, &rec.StartedAt, &rec.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	if len(payload) > 0 {
		rec.Result = &result.ProcessingResult{}
		if err := json.Unmarshal(payload, rec.Result); err != nil {
			s.logger.Warn("corrupt result payload", zap.String("job", id), zap.Error(err))
			rec.Result = nil
		}
	}
	return &rec, nil
}

// Ping verifies database connectivity.
func (s *JobStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *JobStore) Close() error {
	return s.db.Close()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", id, ErrJobNotFound)
	}
	return nil
}
