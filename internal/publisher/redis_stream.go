package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// AnalysisStream receives one entry per finished analysis job
	AnalysisStream = "matches.analysis.football"
	// RegistryStream receives one entry per registry refresh
	RegistryStream = "matches.registry.football"

	// streams are trimmed to roughly this many entries
	streamMaxLen = 10000
)

// RedisPublisher publishes events to Redis streams
type RedisPublisher struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisPublisher creates a new Redis stream publisher
func NewRedisPublisher(redisURL string) (*RedisPublisher, error) {
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

	return NewRedisStreamPublisher(client), nil
}

// NewRedisStreamPublisher creates a publisher from an existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, now: time.Now}
}

// Close closes the Redis connection
func (rp *RedisPublisher) Close() error {
	return rp.client.Close()
}

// AnalysisEvent announces a finished (or failed) analysis job
type AnalysisEvent struct {
	JobID     string `json:"job_id"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	MatchID   string `json:"match_id,omitempty"`
	Events    int    `json:"events"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PublishAnalysis publishes a job outcome to the analysis stream
func (rp *RedisPublisher) PublishAnalysis(ctx context.Context, ev AnalysisEvent) (string, error) {
	return rp.publish(ctx, AnalysisStream, ev)
}

// PublishRegistryRefresh publishes the outcome of a registry refresh
func (rp *RedisPublisher) PublishRegistryRefresh(ctx context.Context, payload interface{}) (string, error) {
	return rp.publish(ctx, RegistryStream, payload)
}

func (rp *RedisPublisher) publish(ctx context.Context, stream string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return rp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": rp.now().Unix(),
		},
	}).Result()
}
