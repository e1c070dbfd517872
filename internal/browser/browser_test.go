package browser

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

func testBrowser(attempts int) *Browser {
	return &Browser{
		cfg:    Config{NavigateAttempts: attempts, RetryDelay: time.Millisecond},
		logger: log.New(io.Discard, "", 0),
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	b := testBrowser(3)

	calls := 0
	attempts, err := b.retry(context.Background(), "https://example.test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("net::ERR_CONNECTION_RESET")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Fatalf("attempts = %d, calls = %d, want 3", attempts, calls)
	}
}

func TestRetryGivesUpWithFetchError(t *testing.T) {
	b := testBrowser(3)

	calls := 0
	cause := errors.New("timeout")
	attempts, err := b.retry(context.Background(), "https://example.test", func(ctx context.Context) error {
		calls++
		return cause
	})

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.Attempts != 3 || attempts != 3 || calls != 3 {
		t.Fatalf("fetch error attempts = %d, returned %d, calls = %d", fe.Attempts, attempts, calls)
	}
	if !errors.Is(err, ErrFetchFailed) || !errors.Is(err, cause) {
		t.Fatalf("error chain = %v", err)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	b := testBrowser(3)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := b.retry(ctx, "https://example.test", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("aborted")
	})

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Attempts != 1 || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestSessionPageTimeout(t *testing.T) {
	tests := []struct {
		timeout      time.Duration
		wantDeadline bool
	}{
		{0, false},
		{-time.Second, false},
		{time.Minute, true},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.PageTimeout = tt.timeout
		cfg.MinInterval = 0
		b := New(cfg, nil)

		ctx, cancel, err := b.Session(context.Background())
		if err != nil {
			t.Fatalf("timeout %v: Session: %v", tt.timeout, err)
		}
		if ctx.Err() != nil {
			t.Errorf("timeout %v: session already done: %v", tt.timeout, ctx.Err())
		}
		if _, ok := ctx.Deadline(); ok != tt.wantDeadline {
			t.Errorf("timeout %v: deadline set = %v, want %v", tt.timeout, ok, tt.wantDeadline)
		}
		cancel()
		b.Close()
	}
}
