package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/verihire/verihire-backend/internal/domain/verification"
	"github.com/verihire/verihire-backend/internal/infrastructure/config"
)

const reportKeyPrefix = "verihire:report:"

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}

// ReportCache keeps finished verification reports in Redis so repeated
// report reads do not hit the database. Entries expire after the
// configured TTL; a cache miss is not an error.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewReportCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ReportCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReportCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached report for a session, or (nil, nil) on a miss.
func (c *ReportCache) Get(ctx context.Context, sessionID uuid.UUID) (*verification.Report, error) {
	payload, err := c.client.Get(ctx, reportKeyPrefix+sessionID.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var report verification.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		// A corrupt entry is treated as a miss; the database copy is
		// authoritative.
		c.logger.Warn("discarding corrupt cached report",
			slog.String("session_id", sessionID.String()),
			slog.String("error", err.Error()))
		c.client.Del(ctx, reportKeyPrefix+sessionID.String())
		return nil, nil
	}
	return &report, nil
}

// Put stores a report under the session ID with the cache TTL.
func (c *ReportCache) Put(ctx context.Context, sessionID uuid.UUID, report *verification.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := c.client.Set(ctx, reportKeyPrefix+sessionID.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate drops a cached report.
func (c *ReportCache) Invalidate(ctx context.Context, sessionID uuid.UUID) error {
	if err := c.client.Del(ctx, reportKeyPrefix+sessionID.String()).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
