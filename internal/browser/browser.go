// Package browser owns the headless Chrome allocator shared by the scrapers.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

const (
	// UserAgent for page loads
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// chromeCandidates are tried in order when no exec path is configured.
var chromeCandidates = []string{
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/usr/bin/google-chrome",
}

// Config holds every browser option. It is passed in explicitly; nothing in
// this package keeps process-wide option state.
type Config struct {
	Headless     bool
	ExecPath     string
	UserAgent    string
	WindowWidth  int
	WindowHeight int

	NavigateAttempts int           // page loads tried before giving up
	RetryDelay       time.Duration // fixed pause between attempts
	SettleWait       time.Duration // client-side rendering budget after load
	CaptureWindow    time.Duration // extra time network capture keeps buffering
	PageTimeout      time.Duration // hard limit for one session
	MinInterval      time.Duration // minimum spacing between sessions
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Headless:         true,
		UserAgent:        UserAgent,
		WindowWidth:      1920,
		WindowHeight:     1080,
		NavigateAttempts: 3,
		RetryDelay:       2 * time.Second,
		SettleWait:       5 * time.Second,
		CaptureWindow:    3 * time.Second,
		PageTimeout:      60 * time.Second,
		MinInterval:      2 * time.Second,
	}
}

// FindChrome returns the first installed Chrome/Chromium binary, or "" to let
// chromedp search PATH.
func FindChrome() string {
	for _, p := range chromeCandidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ErrFetchFailed is matched by every *FetchError.
var ErrFetchFailed = errors.New("page fetch failed")

// FetchError reports a navigation that did not complete within the retry budget.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports ErrFetchFailed equivalence
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

// Browser hands out one tab per page load.
type Browser struct {
	cfg      Config
	allocCtx context.Context
	cancel   context.CancelFunc
	limiter  *rate.Limiter
	logger   *log.Logger
}

// New starts an exec allocator for cfg. The browser process itself is only
// launched when the first session runs.
func New(cfg Config, logger *log.Logger) *Browser {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.NavigateAttempts < 1 {
		cfg.NavigateAttempts = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	execPath := cfg.ExecPath
	if execPath == "" {
		execPath = FindChrome()
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Browser{
		cfg:      cfg,
		allocCtx: allocCtx,
		cancel:   cancel,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// Config returns the options the browser was built with.
func (b *Browser) Config() Config {
	return b.cfg
}

// Close shuts the browser process down.
func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Session opens a fresh tab bounded by the page timeout and the caller's
// context. The returned cancel func closes the tab and must always be called.
func (b *Browser) Session(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("waiting for fetch slot: %w", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx, chromedp.WithLogf(b.logger.Printf))

	// tie the tab to the caller's context as well as the page timeout
	stop := context.AfterFunc(ctx, cancelTab)
	if b.cfg.PageTimeout <= 0 {
		return tabCtx, func() {
			stop()
			cancelTab()
		}, nil
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.PageTimeout)

	return timeoutCtx, func() {
		cancelTimeout()
		stop()
		cancelTab()
	}, nil
}

// Navigate loads url in the session, retrying transient failures with a
// fixed delay. It returns the number of attempts made; the final failure is
// returned as a *FetchError.
func (b *Browser) Navigate(ctx context.Context, url string, waitSelector string) (int, error) {
	return b.retry(ctx, url, func(ctx context.Context) error {
		return chromedp.Run(ctx,
			chromedp.Navigate(url),
			chromedp.WaitReady(waitSelector, chromedp.ByQuery),
		)
	})
}

// retry runs load up to NavigateAttempts times with RetryDelay between tries.
func (b *Browser) retry(ctx context.Context, url string, load func(context.Context) error) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= b.cfg.NavigateAttempts; attempt++ {
		lastErr = load(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, &FetchError{URL: url, Attempts: attempt, Err: lastErr}
		}

		if attempt < b.cfg.NavigateAttempts {
			b.logger.Printf("⚠️  navigate %s attempt %d/%d failed: %v (retrying in %v)", url, attempt, b.cfg.NavigateAttempts, lastErr, b.cfg.RetryDelay)
			select {
			case <-time.After(b.cfg.RetryDelay):
			case <-ctx.Done():
				return attempt, &FetchError{URL: url, Attempts: attempt, Err: ctx.Err()}
			}
		}
	}
	return b.cfg.NavigateAttempts, &FetchError{URL: url, Attempts: b.cfg.NavigateAttempts, Err: lastErr}
}

// Settle waits for client-side rendering to finish.
func (b *Browser) Settle(ctx context.Context) error {
	if b.cfg.SettleWait <= 0 {
		return nil
	}
	return chromedp.Run(ctx, chromedp.Sleep(b.cfg.SettleWait))
}
