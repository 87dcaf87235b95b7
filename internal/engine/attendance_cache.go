package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttendanceCache caches monthly attendance summaries. One entry exists per
// (teacher, month); a cached summary is served only when its reference day
// matches the request, so mid-month reads never see a stale denominator.
type AttendanceCache interface {
	GetSummary(ctx context.Context, teacher string, ref time.Time) (*AttendanceSummary, bool, error)
	SetSummary(ctx context.Context, teacher string, ref time.Time, summary AttendanceSummary) error
	Invalidate(ctx context.Context, teacher string, month time.Time) error
}

const attendanceCacheTTL = 10 * time.Minute

// cachedSummary is the stored cache value: the summary plus the reference
// day it was computed for.
type cachedSummary struct {
	RefDate string            `json:"ref_date"`
	Summary AttendanceSummary `json:"summary"`
}

// RedisAttendanceCache is an AttendanceCache backed by Redis/Dragonfly.
type RedisAttendanceCache struct {
	client *redis.Client
}

// NewRedisAttendanceCache wraps a Redis client as an attendance cache.
func NewRedisAttendanceCache(client *redis.Client) *RedisAttendanceCache {
	return &RedisAttendanceCache{client: client}
}

func attendanceCacheKey(teacher string, month time.Time) string {
	return fmt.Sprintf("attendance:summary:%s:%s", teacher, month.UTC().Format("2006-01"))
}

func (c *RedisAttendanceCache) GetSummary(ctx context.Context, teacher string, ref time.Time) (*AttendanceSummary, bool, error) {
	raw, err := c.client.Get(ctx, attendanceCacheKey(teacher, ref)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var entry cachedSummary
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	if entry.RefDate != dateKey(ref) {
		// Cached for a different reference day; treat as a miss.
		return nil, false, nil
	}
	return &entry.Summary, true, nil
}

func (c *RedisAttendanceCache) SetSummary(ctx context.Context, teacher string, ref time.Time, summary AttendanceSummary) error {
	raw, err := json.Marshal(cachedSummary{RefDate: dateKey(ref), Summary: summary})
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, attendanceCacheKey(teacher, ref), raw, attendanceCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisAttendanceCache) Invalidate(ctx context.Context, teacher string, month time.Time) error {
	if err := c.client.Del(ctx, attendanceCacheKey(teacher, month)).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}
