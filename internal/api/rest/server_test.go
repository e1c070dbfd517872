package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fortuna/pitchside/internal/analysis"
	"github.com/fortuna/pitchside/internal/ingest/sofascore"
	"github.com/fortuna/pitchside/internal/store"
	"github.com/fortuna/pitchside/internal/store/repository"
)

type fakeAnalyses struct {
	jobs map[string]*store.AnalysisJob
}

func (f *fakeAnalyses) Enqueue(ctx context.Context, url string) (*store.AnalysisJob, error) {
	if !strings.HasPrefix(url, "http") {
		return nil, fmt.Errorf("%w: %q", analysis.ErrInvalidURL, url)
	}
	job := &store.AnalysisJob{JobID: "job-new", URL: url, Status: store.JobStatusQueued}
	f.jobs[job.JobID] = job
	return job, nil
}

func (f *fakeAnalyses) GetJob(ctx context.Context, jobID string) (*store.AnalysisJob, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return job, nil
}

func (f *fakeAnalyses) ListJobs(ctx context.Context) ([]*store.AnalysisJob, error) {
	var out []*store.AnalysisJob
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

type fakeArtefacts struct {
	csv, raw, summary map[string]string
}

func lookup(m map[string]string, id string) (string, error) {
	v, ok := m[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (f *fakeArtefacts) EventsCSV(ctx context.Context, id string) (string, error) {
	return lookup(f.csv, id)
}
func (f *fakeArtefacts) RawJSON(ctx context.Context, id string) (string, error) {
	return lookup(f.raw, id)
}
func (f *fakeArtefacts) Summary(ctx context.Context, id string) (string, error) {
	return lookup(f.summary, id)
}

type fakeMatches struct{}

func (fakeMatches) List(ctx context.Context, limit int) ([]*store.TrackedMatch, error) {
	return []*store.TrackedMatch{{MatchID: 12580787, HomeTeam: "Ipswich Town", AwayTeam: "Norwich City"}}, nil
}

type fakeSummaries struct{ err error }

func (f fakeSummaries) FetchSummary(ctx context.Context, matchID int64) (*sofascore.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sofascore.Summary{MatchID: matchID, Score: sofascore.Score{Home: 2, Away: 1}}, nil
}

func newTestServer(opts Options) (*Server, *fakeAnalyses) {
	analyses := &fakeAnalyses{jobs: map[string]*store.AnalysisJob{
		"done": {
			JobID:      "done",
			URL:        "https://www.whoscored.com/Matches/1/Live",
			Status:     store.JobStatusCompleted,
			MatchID:    sql.NullString{String: "1", Valid: true},
			EventCount: 2,
			CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
	}}
	artefacts := &fakeArtefacts{
		csv:     map[string]string{"done": "matchId,id\n1,10\n1,11\n"},
		raw:     map[string]string{"done": `{"matchId":1}`},
		summary: map[string]string{"done": `{"events":2}`},
	}
	srv := NewServer("0", Dependencies{
		Analyses:  analyses,
		Artefacts: artefacts,
		Matches:   fakeMatches{},
		Summaries: fakeSummaries{},
	}, opts)
	return srv, analyses
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateAnalysis(t *testing.T) {
	s, analyses := newTestServer(Options{})

	rec := serve(s, "POST", "/api/v1/analyses", `{"url":"https://www.whoscored.com/Matches/2/Live"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Job map[string]interface{} `json:"job"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Job["job_id"] != "job-new" || body.Job["status"] != "queued" {
		t.Fatalf("job = %v", body.Job)
	}
	if _, ok := analyses.jobs["job-new"]; !ok {
		t.Fatalf("job not enqueued")
	}
}

func TestCreateAnalysisRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(Options{})

	if rec := serve(s, "POST", "/api/v1/analyses", `{"url":"ftp://x"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid url status = %d", rec.Code)
	}
	if rec := serve(s, "POST", "/api/v1/analyses", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d", rec.Code)
	}
}

func TestGetAnalysis(t *testing.T) {
	s, _ := newTestServer(Options{})

	rec := serve(s, "GET", "/api/v1/analyses/done", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Job     map[string]interface{} `json:"job"`
		Summary map[string]interface{} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Job["match_id"] != "1" {
		t.Errorf("match_id = %v", body.Job["match_id"])
	}
	if body.Summary["events"] != float64(2) {
		t.Errorf("summary = %v", body.Summary)
	}

	if rec := serve(s, "GET", "/api/v1/analyses/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rec.Code)
	}
}

func TestAnalysisArtefacts(t *testing.T) {
	s, _ := newTestServer(Options{})

	rec := serve(s, "GET", "/api/v1/analyses/done/events.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "matchId,id\n") {
		t.Errorf("csv = %q", rec.Body.String())
	}

	rec = serve(s, "GET", "/api/v1/analyses/done/raw.json", "")
	if rec.Code != http.StatusOK || rec.Body.String() != `{"matchId":1}` {
		t.Fatalf("raw = %d %q", rec.Code, rec.Body.String())
	}

	if rec := serve(s, "GET", "/api/v1/analyses/other/events.csv", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing csv status = %d", rec.Code)
	}
}

func TestListAnalysesAndMatches(t *testing.T) {
	s, _ := newTestServer(Options{})

	rec := serve(s, "GET", "/api/v1/analyses", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("analyses = %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(s, "GET", "/api/v1/matches?limit=5", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Ipswich Town") {
		t.Fatalf("matches = %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(s, "GET", "/api/v1/matches?limit=0", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
}

func TestSofaScoreSummary(t *testing.T) {
	s, _ := newTestServer(Options{})

	rec := serve(s, "GET", "/api/v1/sofascore/12580787/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sum sofascore.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.MatchID != 12580787 || sum.Score.Home != 2 {
		t.Fatalf("summary = %+v", sum)
	}

	failing := NewServer("0", Dependencies{Summaries: fakeSummaries{err: errors.New("blocked")}}, Options{})
	if rec := serve(failing, "GET", "/api/v1/sofascore/1/summary", ""); rec.Code != http.StatusBadGateway {
		t.Fatalf("upstream failure status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(Options{})
	rec := serve(s, "GET", "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(Options{RateLimitRequests: 2, RateLimitWindow: time.Minute})

	if rec := serve(s, "GET", "/api/v1/analyses", ""); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := serve(s, "GET", "/api/v1/analyses", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	// health is outside the limited subrouter
	if rec := serve(s, "GET", "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(Options{CORSOrigins: []string{"https://app.test"}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/analyses", nil)
	req.Header.Set("Origin", "https://app.test")
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.test" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}
