package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fortuna/pitchside/internal/publisher"
	"github.com/fortuna/pitchside/internal/store"
)

// ErrInvalidURL is returned by Enqueue for URLs that cannot be loaded.
var ErrInvalidURL = errors.New("invalid match url")

// JobStore persists analysis jobs.
type JobStore interface {
	CreateJob(ctx context.Context, url string) (*store.AnalysisJob, error)
	GetJob(ctx context.Context, jobID string) (*store.AnalysisJob, error)
	ListRecentJobs(ctx context.Context, limit int) ([]*store.AnalysisJob, error)
	MarkNextJobRunning(ctx context.Context) (*store.AnalysisJob, error)
	UpdateMessage(ctx context.Context, jobID, message string) error
	Complete(ctx context.Context, jobID string, res store.AnalysisResult) error
	Fail(ctx context.Context, jobID, kind string, cause error) error
	ResetStuckJobs(ctx context.Context) (int64, error)
}

// Runner performs one analysis.
type Runner interface {
	Analyze(ctx context.Context, url string) (*Result, error)
}

// Publisher announces finished jobs.
type Publisher interface {
	PublishAnalysis(ctx context.Context, ev publisher.AnalysisEvent) (string, error)
}

// Broadcaster pushes status updates to connected clients.
type Broadcaster interface {
	Broadcast(v interface{})
}

// StatusUpdate is pushed to clients whenever a job changes state.
type StatusUpdate struct {
	Type      string          `json:"type"`
	JobID     string          `json:"job_id"`
	Status    store.JobStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	MatchID   string          `json:"match_id,omitempty"`
	Events    int             `json:"events,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

// Service coordinates job persistence, execution, and status reporting.
// A single worker processes one analysis at a time.
type Service struct {
	repo      JobStore
	runner    Runner
	publisher Publisher
	hub       Broadcaster

	historyLimit int
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewService constructs a Service. pub and hub may be nil. Call Start to
// launch the worker.
func NewService(repo JobStore, runner Runner, pub Publisher, hub Broadcaster, logger *log.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	if logger == nil {
		logger = log.New(log.Writer(), "[analysis] ", log.LstdFlags)
	}

	return &Service{
		repo:         repo,
		runner:       runner,
		publisher:    pub,
		hub:          hub,
		historyLimit: 50,
		pollInterval: 3 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
	}
}

// SetHistoryLimit bounds ListJobs
func (s *Service) SetHistoryLimit(n int) {
	if n > 0 {
		s.historyLimit = n
	}
}

// Start launches the background worker loop.
func (s *Service) Start() {
	if n, err := s.repo.ResetStuckJobs(s.ctx); err != nil {
		s.logger.Printf("failed to reset jobs: %v", err)
	} else if n > 0 {
		s.logger.Printf("requeued %d interrupted job(s)", n)
	}

	s.wg.Add(1)
	go s.worker()
}

// Shutdown stops the worker and waits for the current job.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Enqueue validates rawURL and queues an analysis for it.
func (s *Service) Enqueue(ctx context.Context, rawURL string) (*store.AnalysisJob, error) {
	clean, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	job, err := s.repo.CreateJob(ctx, clean)
	if err != nil {
		return nil, err
	}
	s.broadcast(StatusUpdate{JobID: job.JobID, Status: job.Status, Message: "Queued"})
	return job, nil
}

// GetJob returns a job by id.
func (s *Service) GetJob(ctx context.Context, jobID string) (*store.AnalysisJob, error) {
	return s.repo.GetJob(ctx, jobID)
}

// ListJobs returns the most recent jobs.
func (s *Service) ListJobs(ctx context.Context) ([]*store.AnalysisJob, error) {
	return s.repo.ListRecentJobs(ctx, s.historyLimit)
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u.String(), nil
}

func (s *Service) worker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
			worked, err := s.processNext(s.ctx)
			if err != nil {
				s.logger.Printf("claim job error: %v", err)
				time.Sleep(time.Second)
				continue
			}
			if !worked {
				select {
				case <-s.ctx.Done():
					return
				case <-ticker.C:
					continue
				}
			}
		}
	}
}

// processNext claims and runs one job. It reports false when the queue is empty.
func (s *Service) processNext(ctx context.Context) (bool, error) {
	job, err := s.repo.MarkNextJobRunning(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	s.executeJob(ctx, job)
	return true, nil
}

func (s *Service) executeJob(ctx context.Context, job *store.AnalysisJob) {
	s.logger.Printf("Analyzing %s (job %s)", job.URL, job.JobID)
	s.broadcast(StatusUpdate{JobID: job.JobID, Status: store.JobStatusRunning, Message: "Loading page"})
	if err := s.repo.UpdateMessage(ctx, job.JobID, "Loading page"); err != nil {
		s.logger.Printf("⚠️  failed to update job %s: %v", job.JobID, err)
	}

	res, err := s.runner.Analyze(ctx, job.URL)
	if err != nil {
		s.fail(ctx, job, err)
		return
	}

	stored, err := s.artefacts(res)
	if err != nil {
		s.fail(ctx, job, err)
		return
	}

	if err := s.repo.Complete(ctx, job.JobID, stored); err != nil {
		s.logger.Printf("⚠️  failed to store job %s: %v", job.JobID, err)
		s.fail(ctx, job, err)
		return
	}

	s.logger.Printf("✓ Job %s complete: match %s, %d events (%s)", job.JobID, stored.MatchID, stored.EventCount, stored.BlobStage)
	s.broadcast(StatusUpdate{
		JobID:   job.JobID,
		Status:  store.JobStatusCompleted,
		Message: "Done",
		MatchID: stored.MatchID,
		Events:  stored.EventCount,
	})
	s.publish(ctx, publisher.AnalysisEvent{
		JobID:   job.JobID,
		URL:     job.URL,
		Status:  string(store.JobStatusCompleted),
		MatchID: stored.MatchID,
		Events:  stored.EventCount,
	})
}

func (s *Service) artefacts(res *Result) (store.AnalysisResult, error) {
	csvText, err := res.EventsCSV()
	if err != nil {
		return store.AnalysisResult{}, fmt.Errorf("export events: %w", err)
	}
	raw, err := res.RawJSON()
	if err != nil {
		return store.AnalysisResult{}, fmt.Errorf("export raw object: %w", err)
	}
	summary, err := res.SummaryJSON()
	if err != nil {
		return store.AnalysisResult{}, fmt.Errorf("export summary: %w", err)
	}

	return store.AnalysisResult{
		MatchID:    res.Record.MatchID,
		BlobStage:  string(res.Stage),
		EventCount: res.Table.Len(),
		EventsCSV:  csvText,
		RawJSON:    raw,
		Summary:    summary,
	}, nil
}

func (s *Service) fail(ctx context.Context, job *store.AnalysisJob, cause error) {
	kind := Kind(cause)
	s.logger.Printf("⚠️  Job %s failed (%s): %v", job.JobID, kind, cause)

	// record the failure even when the worker is shutting down
	if err := s.repo.Fail(context.WithoutCancel(ctx), job.JobID, kind, cause); err != nil {
		s.logger.Printf("⚠️  failed to mark job %s failed: %v", job.JobID, err)
	}

	s.broadcast(StatusUpdate{
		JobID:     job.JobID,
		Status:    store.JobStatusFailed,
		Message:   cause.Error(),
		ErrorKind: kind,
	})
	s.publish(ctx, publisher.AnalysisEvent{
		JobID:     job.JobID,
		URL:       job.URL,
		Status:    string(store.JobStatusFailed),
		ErrorKind: kind,
		Error:     cause.Error(),
	})
}

func (s *Service) broadcast(u StatusUpdate) {
	if s.hub == nil {
		return
	}
	u.Type = "analysis_status"
	s.hub.Broadcast(u)
}

func (s *Service) publish(ctx context.Context, ev publisher.AnalysisEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.PublishAnalysis(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Printf("⚠️  failed to publish job %s: %v", ev.JobID, err)
	}
}
