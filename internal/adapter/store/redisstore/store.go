// Package redisstore implements the atomic store primitives on Redis sorted
// sets and counters. Every primitive executes as one Lua script; go-redis
// handles EVALSHA caching with automatic EVAL fallback.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

// Store runs the atomic primitives against a Redis client.
type Store struct {
	rdb *redis.Client

	rateLimit    *redis.Script
	queueEnqueue *redis.Script
	queueDequeue *redis.Script
	queueRank    *redis.Script
	usageIncr    *redis.Script
}

// New constructs a Store around an existing client.
func New(rdb *redis.Client) *Store {
	return &Store{
		rdb:          rdb,
		rateLimit:    redis.NewScript(rateLimitScript),
		queueEnqueue: redis.NewScript(queueEnqueueScript),
		queueDequeue: redis.NewScript(queueDequeueScript),
		queueRank:    redis.NewScript(queueRankScript),
		usageIncr:    redis.NewScript(usageIncrScript),
	}
}

// Connect parses a redis:// URL, applies the pool size and pings the server.
func Connect(ctx context.Context, url string, maxConns int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("op=redisstore.Connect: %w", err)
	}
	if maxConns > 0 {
		opts.PoolSize = maxConns
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("op=redisstore.Connect: %w", err)
	}
	return rdb, nil
}

// Ping reports connectivity; used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) RateLimitCheck(ctx context.Context, key string, window time.Duration, limit int, now float64, requestID string) (bool, int, int64, error) {
	res, err := s.rateLimit.Run(ctx, s.rdb, []string{key}, int(window.Seconds()), limit, now, requestID).Result()
	if err != nil {
		return false, 0, 0, fmt.Errorf("op=redisstore.RateLimitCheck key=%s: %w", key, err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 3 {
		return false, 0, 0, fmt.Errorf("op=redisstore.RateLimitCheck key=%s: unexpected result %v", key, res)
	}
	allowed := toInt64(vals[0]) == 1
	remaining := int(toInt64(vals[1]))
	resetAt := toInt64(vals[2])
	return allowed, remaining, resetAt, nil
}

func (s *Store) WindowCount(ctx context.Context, key string, window time.Duration, now float64) (int, error) {
	cutoff := now - window.Seconds()
	if err := s.rdb.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%f", cutoff)).Err(); err != nil {
		return 0, fmt.Errorf("op=redisstore.WindowCount key=%s: %w", key, err)
	}
	n, err := s.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("op=redisstore.WindowCount key=%s: %w", key, err)
	}
	return int(n), nil
}

func (s *Store) QueueEnqueue(ctx context.Context, key, jobID string, score float64) (int, error) {
	res, err := s.queueEnqueue.Run(ctx, s.rdb, []string{key}, jobID, score).Int()
	if err != nil {
		return 0, fmt.Errorf("op=redisstore.QueueEnqueue key=%s: %w", key, err)
	}
	return res, nil
}

func (s *Store) QueueDequeue(ctx context.Context, key string) (string, error) {
	res, err := s.queueDequeue.Run(ctx, s.rdb, []string{key}).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("op=redisstore.QueueDequeue key=%s: %w", key, err)
	}
	jobID, _ := res.(string)
	return jobID, nil
}

func (s *Store) QueueRank(ctx context.Context, key, jobID string) (int, error) {
	res, err := s.queueRank.Run(ctx, s.rdb, []string{key}, jobID).Int()
	if err != nil {
		return 0, fmt.Errorf("op=redisstore.QueueRank key=%s: %w", key, err)
	}
	if res < 0 {
		return 0, nil
	}
	return res, nil
}

func (s *Store) QueueRemove(ctx context.Context, key, jobID string) (bool, error) {
	removed, err := s.rdb.ZRem(ctx, key, jobID).Result()
	if err != nil {
		return false, fmt.Errorf("op=redisstore.QueueRemove key=%s: %w", key, err)
	}
	return removed > 0, nil
}

func (s *Store) QueueLen(ctx context.Context, key string) (int, error) {
	n, err := s.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("op=redisstore.QueueLen key=%s: %w", key, err)
	}
	return int(n), nil
}

func (s *Store) QueueEntries(ctx context.Context, key string, limit int) ([]domain.QueueEntry, error) {
	// ZRANGE 0 -1 would return everything; a non-positive limit means none.
	if limit <= 0 {
		return []domain.QueueEntry{}, nil
	}
	members, err := s.rdb.ZRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("op=redisstore.QueueEntries key=%s: %w", key, err)
	}
	entries := make([]domain.QueueEntry, 0, len(members))
	for _, m := range members {
		id, _ := m.Member.(string)
		entries = append(entries, domain.QueueEntry{JobID: id, EnqueuedAt: m.Score})
	}
	return entries, nil
}

func (s *Store) UsageIncr(ctx context.Context, dailyKey, monthlyKey string, amount int64) (int64, int64, error) {
	res, err := s.usageIncr.Run(ctx, s.rdb, []string{dailyKey, monthlyKey}, amount).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("op=redisstore.UsageIncr key=%s: %w", dailyKey, err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return 0, 0, fmt.Errorf("op=redisstore.UsageIncr key=%s: unexpected result %v", dailyKey, res)
	}
	return toInt64(vals[0]), toInt64(vals[1]), nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
