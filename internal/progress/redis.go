package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

const (
	// DefaultKeyPrefix namespaces run progress hashes.
	DefaultKeyPrefix = "dispatch:progress:"
	// ProgressTTL keeps a finished run's progress around for inspection.
	ProgressTTL = 24 * time.Hour
)

// RedisSink mirrors run progress into a Redis hash so other processes can
// watch a run.
type RedisSink struct {
	redis  *redis.Client
	prefix string
	key    string
}

// NewRedisSink creates a sink on an existing client.
func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisSink{redis: client, prefix: prefix}
}

// NewRedisSinkFromURL connects to Redis and creates a sink.
func NewRedisSinkFromURL(ctx context.Context, redisURL, prefix string) (*RedisSink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisSink(client, prefix), nil
}

// Key returns the hash key of a run.
func (s *RedisSink) Key(runID string) string {
	return s.prefix + runID
}

func (s *RedisSink) Start(ctx context.Context, runID string, total int) error {
	s.key = s.Key(runID)
	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, s.key)
	pipe.HSet(ctx, s.key,
		"status", string(domain.RunDispatching),
		"processed", 0,
		"total", total,
		"ratio", formatRatio(Advance(0, total).Ratio),
		"failed", 0,
		"updated_at", time.Now().UTC().Format(time.RFC3339),
	)
	pipe.Expire(ctx, s.key, ProgressTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisSink) Report(ctx context.Context, ev Event) error {
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.key,
		"processed", ev.Snapshot.Processed,
		"total", ev.Snapshot.Total,
		"ratio", formatRatio(ev.Snapshot.Ratio),
		"updated_at", time.Now().UTC().Format(time.RFC3339),
	)
	if ev.Failed {
		pipe.HIncrBy(ctx, s.key, "failed", 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisSink) Finish(ctx context.Context, summary *domain.RunSummary) error {
	if s.key == "" {
		s.key = s.Key(summary.RunID)
	}
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.key,
		"status", string(summary.State),
		"processed", summary.Processed,
		"total", summary.Total,
		"delivered", summary.Delivered,
		"failed", summary.Failed(),
		"duration_ms", summary.Duration.Milliseconds(),
		"updated_at", time.Now().UTC().Format(time.RFC3339),
	)
	pipe.Expire(ctx, s.key, ProgressTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Client returns the underlying Redis client.
func (s *RedisSink) Client() *redis.Client {
	return s.redis
}

// Close releases the Redis client.
func (s *RedisSink) Close() error {
	return s.redis.Close()
}

func formatRatio(r float64) string {
	return strconv.FormatFloat(r, 'f', 4, 64)
}
