package store

import (
	"database/sql"
	"time"
)

// JobStatus represents the lifecycle state for an analysis job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the job will not change again
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// AnalysisJob is one requested match-centre analysis. The heavy artefacts
// (events CSV, raw and summary JSON) are loaded separately.
type AnalysisJob struct {
	JobID         string         `json:"job_id" db:"job_id"`
	URL           string         `json:"url" db:"url"`
	Status        JobStatus      `json:"status" db:"status"`
	StatusMessage sql.NullString `json:"status_message,omitempty" db:"status_message"`
	ErrorKind     sql.NullString `json:"error_kind,omitempty" db:"error_kind"`
	LastError     sql.NullString `json:"last_error,omitempty" db:"last_error"`
	MatchID       sql.NullString `json:"match_id,omitempty" db:"match_id"`
	BlobStage     sql.NullString `json:"blob_stage,omitempty" db:"blob_stage"`
	EventCount    int            `json:"event_count" db:"event_count"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
	StartedAt     sql.NullTime   `json:"started_at,omitempty" db:"started_at"`
	CompletedAt   sql.NullTime   `json:"completed_at,omitempty" db:"completed_at"`
}

// AnalysisResult holds the artefacts written when a job completes.
type AnalysisResult struct {
	MatchID    string
	BlobStage  string
	EventCount int
	EventsCSV  string
	RawJSON    []byte
	Summary    []byte
}

// TrackedMatch is a fixture of the tracked team
type TrackedMatch struct {
	MatchID    int64     `json:"match_id" db:"match_id"`
	MatchDate  time.Time `json:"match_date" db:"match_date"`
	HomeTeam   string    `json:"home_team" db:"home_team"`
	HomeTeamID int64     `json:"home_team_id" db:"home_team_id"`
	AwayTeam   string    `json:"away_team" db:"away_team"`
	AwayTeamID int64     `json:"away_team_id" db:"away_team_id"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
