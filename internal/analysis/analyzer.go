// Package analysis runs the match-centre pipeline: fetch, locate, normalize,
// summarize.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fortuna/pitchside/internal/browser"
	"github.com/fortuna/pitchside/internal/cache"
	"github.com/fortuna/pitchside/internal/extract"
	"github.com/fortuna/pitchside/internal/features"
	"github.com/fortuna/pitchside/internal/ingest/whoscored"
	"github.com/fortuna/pitchside/internal/match"
)

// Error kinds reported to callers.
const (
	KindFetchFailed  = "fetch_failed"
	KindBlobNotFound = "blob_not_found"
	KindCancelled    = "cancelled"
	KindInternal     = "internal"
)

var (
	// ErrFetchFailed means the page could not be loaded (network or timeout).
	ErrFetchFailed = browser.ErrFetchFailed
	// ErrBlobNotFound means the page loaded but its structure no longer
	// carries a recognisable match object.
	ErrBlobNotFound = extract.ErrBlobNotFound
)

// Kind classifies a pipeline error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetchFailed):
		return KindFetchFailed
	case errors.Is(err, ErrBlobNotFound), errors.Is(err, match.ErrNoEventList):
		return KindBlobNotFound
	case errors.Is(err, context.Canceled):
		return KindCancelled
	}
	return KindInternal
}

// PageFetcher loads a rendered match-centre page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*whoscored.Page, error)
}

// BlobCache stores located match objects by page URL.
type BlobCache interface {
	GetBlob(ctx context.Context, url string) (*cache.CachedBlob, error)
	SetBlob(ctx context.Context, b *cache.CachedBlob, ttl time.Duration) error
}

// Result is everything one analysis produces.
type Result struct {
	URL       string
	Stage     extract.Stage
	FromCache bool
	Record    *match.Record
	Table     *match.Table
	Summary   features.Summary
}

// EventsCSV renders the event table.
func (r *Result) EventsCSV() (string, error) {
	var buf bytes.Buffer
	if err := r.Table.WriteCSV(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RawJSON returns the located match object.
func (r *Result) RawJSON() ([]byte, error) {
	return r.Record.MarshalRaw()
}

// SummaryJSON returns the feature summary.
func (r *Result) SummaryJSON() ([]byte, error) {
	return json.Marshal(r.Summary)
}

// Analyzer runs one analysis per call and keeps no state between calls.
type Analyzer struct {
	fetcher  PageFetcher
	cache    BlobCache
	cacheTTL time.Duration
	locator  *extract.Locator
	options  features.Options
	logger   *log.Logger
}

// NewAnalyzer creates an Analyzer. blobs may be nil to disable caching.
func NewAnalyzer(fetcher PageFetcher, blobs BlobCache, cacheTTL time.Duration, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.New(log.Writer(), "[analysis] ", log.LstdFlags)
	}
	return &Analyzer{
		fetcher:  fetcher,
		cache:    blobs,
		cacheTTL: cacheTTL,
		locator:  extract.NewLocator(logger),
		logger:   logger,
	}
}

// WithOptions sets the feature options used for summaries.
func (a *Analyzer) WithOptions(opts features.Options) *Analyzer {
	a.options = opts
	return a
}

// Analyze turns a match-centre URL into a normalized table and summary.
func (a *Analyzer) Analyze(ctx context.Context, url string) (*Result, error) {
	if res, ok := a.fromCache(ctx, url); ok {
		return res, nil
	}

	page, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	blob, err := a.locator.Locate(page.Sources()...)
	if err != nil {
		return nil, fmt.Errorf("locate match object on %s: %w", url, err)
	}
	a.logger.Printf("✓ Located match object in %s #%d (%d bytes)", blob.Stage, blob.Index, blob.Span.Len())

	rec, err := match.ParseRecord(blob.Root)
	if err != nil {
		return nil, fmt.Errorf("parse match object: %w", err)
	}

	res := a.build(url, blob.Stage, rec, page.Context())
	a.store(ctx, url, blob.Stage, rec, page.Context())
	return res, nil
}

func (a *Analyzer) build(url string, stage extract.Stage, rec *match.Record, mctx match.Context) *Result {
	table := match.Normalize(rec, mctx)
	if table.NoEvents {
		a.logger.Printf("⚠️  match %s has an empty event list", rec.MatchID)
	}
	return &Result{
		URL:     url,
		Stage:   stage,
		Record:  rec,
		Table:   table,
		Summary: features.Summarize(table, a.options),
	}
}

func (a *Analyzer) fromCache(ctx context.Context, url string) (*Result, bool) {
	if a.cache == nil {
		return nil, false
	}
	cached, err := a.cache.GetBlob(ctx, url)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			a.logger.Printf("⚠️  blob cache read failed: %v", err)
		}
		return nil, false
	}

	rec, err := match.ParseJSON([]byte(cached.Text))
	if err != nil {
		a.logger.Printf("⚠️  discarding unreadable cached blob for %s: %v", url, err)
		return nil, false
	}

	res := a.build(url, extract.Stage(cached.Stage), rec, match.Context{
		Region: cached.Region,
		League: cached.League,
		Season: cached.Season,
	})
	res.FromCache = true
	return res, true
}

func (a *Analyzer) store(ctx context.Context, url string, stage extract.Stage, rec *match.Record, mctx match.Context) {
	if a.cache == nil {
		return
	}
	text, err := json.Marshal(map[string]interface{}(rec.Raw))
	if err != nil {
		a.logger.Printf("⚠️  blob not cached: %v", err)
		return
	}
	err = a.cache.SetBlob(ctx, &cache.CachedBlob{
		URL:      url,
		Stage:    string(stage),
		Text:     string(text),
		Region:   mctx.Region,
		League:   mctx.League,
		Season:   mctx.Season,
		CachedAt: time.Now().UTC(),
	}, a.cacheTTL)
	if err != nil {
		a.logger.Printf("⚠️  blob cache write failed: %v", err)
	}
}
