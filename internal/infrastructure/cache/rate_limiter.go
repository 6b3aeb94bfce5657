package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "verihire:ratelimit:"

// RateLimiter is a sliding-window limiter backed by Redis sorted sets,
// shared across API instances.
type RateLimiter struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRateLimiter(client *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{client: client, logger: logger}
}

// Allow reports whether another request for key fits inside the window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window)
	limitKey := rateLimitKeyPrefix + key

	requestID := fmt.Sprintf("%d-%d", now.UnixNano(), now.Nanosecond()%1000)

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, limitKey, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, limitKey)
	pipe.ZAdd(ctx, limitKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: requestID,
	})
	pipe.Expire(ctx, limitKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limiter pipeline failed: %w", err)
	}

	// countCmd saw the window before this request was added.
	allowed := countCmd.Val() < int64(limit)
	if !allowed {
		r.client.ZRem(ctx, limitKey, requestID)
		r.logger.Debug("rate limit exceeded",
			slog.String("key", key),
			slog.Int64("current_count", countCmd.Val()),
			slog.Int("limit", limit))
	}
	return allowed, nil
}
