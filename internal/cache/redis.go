package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pitchside:"

// ErrMiss is returned when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// RedisCache handles caching of located blobs and provider summaries
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisCache{
		client: client,
	}, nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Client returns the underlying Redis client
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// SetJSON stores v as JSON with TTL
func (rc *RedisCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return rc.client.Set(ctx, keyPrefix+key, data, ttl).Err()
}

// GetJSON decodes the value at key into v. Absent keys return ErrMiss.
func (rc *RedisCache) GetJSON(ctx context.Context, key string, v interface{}) error {
	data, err := rc.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	return rc.client.Del(ctx, full...).Err()
}

// CachedBlob is a located match object plus the page context it came with.
type CachedBlob struct {
	URL      string    `json:"url"`
	Stage    string    `json:"stage"`
	Text     string    `json:"text"`
	Region   string    `json:"region,omitempty"`
	League   string    `json:"league,omitempty"`
	Season   string    `json:"season,omitempty"`
	CachedAt time.Time `json:"cached_at"`
}

// BlobKey is the cache key for a match-centre URL
func BlobKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return "blob:" + hex.EncodeToString(sum[:])
}

// GetBlob returns the cached blob for url
func (rc *RedisCache) GetBlob(ctx context.Context, url string) (*CachedBlob, error) {
	var b CachedBlob
	if err := rc.GetJSON(ctx, BlobKey(url), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// SetBlob caches a located blob
func (rc *RedisCache) SetBlob(ctx context.Context, b *CachedBlob, ttl time.Duration) error {
	return rc.SetJSON(ctx, BlobKey(b.URL), b, ttl)
}

// SummaryKey is the cache key for a provider summary
func SummaryKey(provider string, matchID int64) string {
	return fmt.Sprintf("summary:%s:%d", provider, matchID)
}
