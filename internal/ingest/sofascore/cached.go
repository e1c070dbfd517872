package sofascore

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fortuna/pitchside/internal/cache"
)

// SummaryFetcher produces match summaries
type SummaryFetcher interface {
	FetchSummary(ctx context.Context, matchID int64) (*Summary, error)
}

// CachedSummaries serves summaries from Redis before asking the API.
type CachedSummaries struct {
	source SummaryFetcher
	cache  *cache.RedisCache
	ttl    time.Duration
	logger *log.Logger
}

// NewCachedSummaries wraps source. A nil cache disables caching.
func NewCachedSummaries(source SummaryFetcher, rc *cache.RedisCache, ttl time.Duration, logger *log.Logger) *CachedSummaries {
	if logger == nil {
		logger = log.Default()
	}
	return &CachedSummaries{source: source, cache: rc, ttl: ttl, logger: logger}
}

// FetchSummary returns the cached summary or fetches and caches a fresh one.
func (c *CachedSummaries) FetchSummary(ctx context.Context, matchID int64) (*Summary, error) {
	key := cache.SummaryKey("sofascore", matchID)

	if c.cache != nil {
		var s Summary
		err := c.cache.GetJSON(ctx, key, &s)
		if err == nil {
			return &s, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			c.logger.Printf("⚠️  summary cache read failed: %v", err)
		}
	}

	s, err := c.source.FetchSummary(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, key, s, c.ttl); err != nil {
			c.logger.Printf("⚠️  summary cache write failed: %v", err)
		}
	}
	return s, nil
}
