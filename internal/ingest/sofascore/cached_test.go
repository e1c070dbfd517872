package sofascore

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/fortuna/pitchside/internal/cache"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) FetchSummary(ctx context.Context, matchID int64) (*Summary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Summary{MatchID: matchID, Score: Score{Home: 2, Away: 1}}, nil
}

func TestCachedSummaries(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer rc.Close()

	src := &countingSource{}
	c := NewCachedSummaries(src, rc, time.Minute, log.New(io.Discard, "", 0))

	for i := 0; i < 2; i++ {
		s, err := c.FetchSummary(context.Background(), 12580787)
		if err != nil {
			t.Fatalf("FetchSummary: %v", err)
		}
		if s.Score.Home != 2 || s.MatchID != 12580787 {
			t.Fatalf("summary = %+v", s)
		}
	}
	if src.calls != 1 {
		t.Fatalf("source calls = %d, want 1", src.calls)
	}
}

func TestCachedSummariesWithoutCache(t *testing.T) {
	src := &countingSource{err: errors.New("blocked")}
	c := NewCachedSummaries(src, nil, time.Minute, nil)

	if _, err := c.FetchSummary(context.Background(), 1); err == nil {
		t.Fatalf("expected source error")
	}
}
