package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fortuna/pitchside/internal/ingest/sofascore"
	"github.com/fortuna/pitchside/internal/registry"
	"github.com/fortuna/pitchside/internal/store"
)

// EventSource lists the football fixtures of a day
type EventSource interface {
	FetchScheduledEvents(ctx context.Context, date time.Time) (*sofascore.ScheduledEventsResponse, error)
}

// MatchStore mirrors the registry into Postgres
type MatchStore interface {
	Upsert(ctx context.Context, matches []store.TrackedMatch) error
	Prune(ctx context.Context, cutoff time.Time, keep []int64) (int64, error)
}

// RefreshPublisher announces a finished refresh
type RefreshPublisher interface {
	PublishRegistryRefresh(ctx context.Context, payload interface{}) (string, error)
}

// Config holds scheduler configuration
type Config struct {
	RefreshHour   int           // Default: 3 (3 AM)
	TrackedTeamID int64         // SofaScore team id
	RegistryPath  string        // CSV file
	Retention     time.Duration // Default: 365 days
	EnableRefresh bool          // Default: true
	MaxRetries    int           // Default: 3
	RetryDelay    time.Duration // Default: 5s
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		RefreshHour:   3,
		TrackedTeamID: 2697,
		RegistryPath:  "all_matches.csv",
		Retention:     registry.DefaultRetention,
		EnableRefresh: true,
		MaxRetries:    3,
		RetryDelay:    5 * time.Second,
	}
}

// RefreshResult reports one registry refresh
type RefreshResult struct {
	Date    string `json:"date"`
	TeamID  int64  `json:"team_id"`
	Found   int    `json:"found"`
	Total   int    `json:"total"`
	Pruned  int64  `json:"pruned"`
	Elapsed string `json:"elapsed"`
}

// Orchestrator runs the daily registry refresh
type Orchestrator struct {
	source    EventSource
	matches   MatchStore
	publisher RefreshPublisher
	config    *Config
	now       func() time.Time
	cancel    context.CancelFunc
}

// NewOrchestrator creates a new scheduler orchestrator. matches and
// publisher may be nil.
func NewOrchestrator(source EventSource, matches MatchStore, publisher RefreshPublisher, config *Config) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	return &Orchestrator{
		source:    source,
		matches:   matches,
		publisher: publisher,
		config:    config,
		now:       time.Now,
	}
}

// Start blocks running the daily refresh until ctx is cancelled
func (o *Orchestrator) Start(ctx context.Context) {
	log.Println("╔════════════════════════════════════════╗")
	log.Println("║   Pitchside Scheduler Orchestrator    ║")
	log.Println("╚════════════════════════════════════════╝")
	log.Printf("Registry refresh: %v (at %02d:00, team %d)", o.config.EnableRefresh, o.config.RefreshHour, o.config.TrackedTeamID)
	log.Printf("Registry file: %s", o.config.RegistryPath)

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	defer cancel()

	if o.config.EnableRefresh {
		go o.runDailyRefresh(ctx)
	}

	<-ctx.Done()
	log.Println("Scheduler orchestrator stopping...")
}

// Stop cancels a running Start
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
}

// nextRun is the next occurrence of hour:00 strictly after now
func nextRun(now time.Time, hour int) time.Time {
	run := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !run.After(now) {
		run = run.AddDate(0, 0, 1)
	}
	return run
}

func (o *Orchestrator) runDailyRefresh(ctx context.Context) {
	log.Printf("→ Registry refresh scheduler started (runs at %02d:00 daily)", o.config.RefreshHour)

	for {
		run := nextRun(o.now(), o.config.RefreshHour)
		wait := time.Until(run)
		log.Printf("  Next registry refresh: %s (in %v)", run.Format("2006-01-02 15:04:05"), wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("→ Registry refresh scheduler stopped")
			return
		case <-timer.C:
			if _, err := o.RefreshWithRetry(ctx); err != nil {
				log.Printf("❌ Registry refresh failed: %v", err)
			}
		}
	}
}

// RefreshWithRetry runs Refresh up to MaxRetries times with a fixed delay
func (o *Orchestrator) RefreshWithRetry(ctx context.Context) (*RefreshResult, error) {
	var lastErr error
	for attempt := 1; attempt <= o.config.MaxRetries; attempt++ {
		res, err := o.Refresh(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err
		log.Printf("  ⚠️  Refresh attempt %d/%d failed: %v", attempt, o.config.MaxRetries, err)

		if attempt < o.config.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.config.RetryDelay):
			}
		}
	}
	return nil, fmt.Errorf("registry refresh failed after %d attempts: %w", o.config.MaxRetries, lastErr)
}

// Refresh fetches today's fixtures of the tracked team, merges them into
// the registry file and mirrors the result into Postgres.
func (o *Orchestrator) Refresh(ctx context.Context) (*RefreshResult, error) {
	start := time.Now()
	now := o.now()

	resp, err := o.source.FetchScheduledEvents(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("fetch scheduled events: %w", err)
	}

	fresh := ToRegistry(sofascore.TeamMatches(resp.Events, o.config.TrackedTeamID))
	merged, err := registry.Refresh(o.config.RegistryPath, fresh, now, o.config.Retention)
	if err != nil {
		return nil, err
	}

	res := &RefreshResult{
		Date:   now.Format(registry.DateLayout),
		TeamID: o.config.TrackedTeamID,
		Found:  len(fresh),
		Total:  len(merged),
	}

	if o.matches != nil {
		if err := o.matches.Upsert(ctx, ToTracked(merged)); err != nil {
			return nil, err
		}
		keep := make([]int64, 0, len(merged))
		for _, m := range merged {
			keep = append(keep, m.MatchID)
		}
		cutoff := registry.Cutoff(now, o.config.Retention)
		if res.Pruned, err = o.matches.Prune(ctx, cutoff, keep); err != nil {
			return nil, err
		}
	}

	res.Elapsed = time.Since(start).Round(time.Millisecond).String()
	log.Printf("✓ Registry refreshed: %d new today, %d tracked, %d pruned", res.Found, res.Total, res.Pruned)

	if o.publisher != nil {
		if _, err := o.publisher.PublishRegistryRefresh(ctx, res); err != nil {
			log.Printf("  ⚠️  Failed to publish registry refresh: %v", err)
		}
	}
	return res, nil
}

// ToRegistry converts scheduled events to registry rows. Kick-off dates
// are taken in UTC.
func ToRegistry(events []sofascore.ScheduledEvent) []registry.Match {
	out := make([]registry.Match, 0, len(events))
	for _, ev := range events {
		m := registry.Match{
			MatchID: ev.ID,
			Date:    time.Unix(ev.StartTimestamp, 0).UTC(),
		}
		if ev.HomeTeam != nil {
			m.HomeTeam, m.HomeTeamID = ev.HomeTeam.Name, ev.HomeTeam.ID
		}
		if ev.AwayTeam != nil {
			m.AwayTeam, m.AwayTeamID = ev.AwayTeam.Name, ev.AwayTeam.ID
		}
		out = append(out, m)
	}
	return out
}

// ToTracked converts registry rows to database rows
func ToTracked(matches []registry.Match) []store.TrackedMatch {
	out := make([]store.TrackedMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, store.TrackedMatch{
			MatchID:    m.MatchID,
			MatchDate:  m.Date,
			HomeTeam:   m.HomeTeam,
			HomeTeamID: m.HomeTeamID,
			AwayTeam:   m.AwayTeam,
			AwayTeamID: m.AwayTeamID,
		})
	}
	return out
}
