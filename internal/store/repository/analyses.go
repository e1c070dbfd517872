package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fortuna/pitchside/internal/store"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

const jobColumns = `job_id, url, status, status_message, error_kind, last_error,
	match_id, blob_stage, event_count, created_at, updated_at, started_at, completed_at`

// AnalysisRepository handles persistence for analysis jobs.
type AnalysisRepository struct {
	db *store.Database
}

// NewAnalysisRepository constructs an AnalysisRepository.
func NewAnalysisRepository(db *store.Database) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// CreateJob inserts a queued job for url and returns the stored record.
func (r *AnalysisRepository) CreateJob(ctx context.Context, url string) (*store.AnalysisJob, error) {
	query := `
		INSERT INTO analysis_jobs (job_id, url, status, status_message)
		VALUES ($1, $2, 'queued', 'Waiting for worker')
		RETURNING ` + jobColumns

	row := r.db.DB().QueryRowContext(ctx, query, uuid.NewString(), url)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// GetJob returns one job by id.
func (r *AnalysisRepository) GetJob(ctx context.Context, jobID string) (*store.AnalysisJob, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE job_id = $1`

	job, err := scanJob(r.db.DB().QueryRowContext(ctx, query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListRecentJobs returns the most recent jobs, newest first.
func (r *AnalysisRepository) ListRecentJobs(ctx context.Context, limit int) ([]*store.AnalysisJob, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*store.AnalysisJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// MarkNextJobRunning atomically claims the oldest queued job. It returns nil
// when the queue is empty.
func (r *AnalysisRepository) MarkNextJobRunning(ctx context.Context) (*store.AnalysisJob, error) {
	query := `
		WITH next_job AS (
			SELECT job_id
			FROM analysis_jobs
			WHERE status = 'queued'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE analysis_jobs
		SET status = 'running',
			status_message = 'Loading page...',
			started_at = COALESCE(started_at, NOW()),
			updated_at = NOW()
		FROM next_job
		WHERE analysis_jobs.job_id = next_job.job_id
		RETURNING analysis_jobs.job_id, analysis_jobs.url, analysis_jobs.status,
			analysis_jobs.status_message, analysis_jobs.error_kind, analysis_jobs.last_error,
			analysis_jobs.match_id, analysis_jobs.blob_stage, analysis_jobs.event_count,
			analysis_jobs.created_at, analysis_jobs.updated_at,
			analysis_jobs.started_at, analysis_jobs.completed_at
	`

	job, err := scanJob(r.db.DB().QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// UpdateMessage updates the progress message of a running job.
func (r *AnalysisRepository) UpdateMessage(ctx context.Context, jobID, message string) error {
	_, err := r.db.DB().ExecContext(ctx, `
		UPDATE analysis_jobs
		SET status_message = $2, updated_at = NOW()
		WHERE job_id = $1
	`, jobID, message)
	if err != nil {
		return fmt.Errorf("update job message: %w", err)
	}
	return nil
}

// Complete stores the artefacts and marks the job completed.
func (r *AnalysisRepository) Complete(ctx context.Context, jobID string, res store.AnalysisResult) error {
	query := `
		UPDATE analysis_jobs
		SET status = 'completed',
			status_message = 'Done',
			match_id = $2,
			blob_stage = $3,
			event_count = $4,
			events_csv = $5,
			raw_json = $6,
			summary_json = $7,
			updated_at = NOW(),
			completed_at = NOW()
		WHERE job_id = $1
	`

	_, err := r.db.DB().ExecContext(ctx, query, jobID,
		res.MatchID, res.BlobStage, res.EventCount, res.EventsCSV, string(res.RawJSON), string(res.Summary))
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail marks the job failed with a classified error.
func (r *AnalysisRepository) Fail(ctx context.Context, jobID, kind string, cause error) error {
	query := `
		UPDATE analysis_jobs
		SET status = 'failed',
			status_message = 'Failed',
			error_kind = $2,
			last_error = $3,
			updated_at = NOW(),
			completed_at = NOW()
		WHERE job_id = $1
	`

	var errText sql.NullString
	if cause != nil {
		errText = sql.NullString{String: cause.Error(), Valid: true}
	}

	if _, err := r.db.DB().ExecContext(ctx, query, jobID, kind, errText); err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// ResetStuckJobs moves running jobs back to queued (used during service restarts).
func (r *AnalysisRepository) ResetStuckJobs(ctx context.Context) (int64, error) {
	res, err := r.db.DB().ExecContext(ctx, `
		UPDATE analysis_jobs
		SET status = 'queued',
			status_message = 'Reset after service restart',
			updated_at = NOW()
		WHERE status = 'running'
	`)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// EventsCSV returns the exported event table of a completed job.
func (r *AnalysisRepository) EventsCSV(ctx context.Context, jobID string) (string, error) {
	return r.artefact(ctx, jobID, "events_csv")
}

// RawJSON returns the located match object of a completed job.
func (r *AnalysisRepository) RawJSON(ctx context.Context, jobID string) (string, error) {
	return r.artefact(ctx, jobID, "raw_json::text")
}

// Summary returns the feature summary of a completed job.
func (r *AnalysisRepository) Summary(ctx context.Context, jobID string) (string, error) {
	return r.artefact(ctx, jobID, "summary_json::text")
}

// artefact reads one artefact column; column is never user input.
func (r *AnalysisRepository) artefact(ctx context.Context, jobID, column string) (string, error) {
	var value sql.NullString
	err := r.db.DB().QueryRowContext(ctx,
		`SELECT `+column+` FROM analysis_jobs WHERE job_id = $1`, jobID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read artefact: %w", err)
	}
	if !value.Valid {
		return "", ErrNotFound
	}
	return value.String, nil
}

func scanJob(scanner interface {
	Scan(dest ...interface{}) error
}) (*store.AnalysisJob, error) {
	job := &store.AnalysisJob{}
	err := scanner.Scan(
		&job.JobID,
		&job.URL,
		&job.Status,
		&job.StatusMessage,
		&job.ErrorKind,
		&job.LastError,
		&job.MatchID,
		&job.BlobStage,
		&job.EventCount,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
