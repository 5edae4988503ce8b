package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// SQLRateLimitStore keeps attempts in the booking_rate_limits table
type SQLRateLimitStore struct {
	db *sqlx.DB
}

// NewSQLRateLimitStore creates a Postgres-backed rate limit store
func NewSQLRateLimitStore(db *sqlx.DB) *SQLRateLimitStore {
	return &SQLRateLimitStore{db: db}
}

// Stats implements RateLimitStore
func (s *SQLRateLimitStore) Stats(ctx context.Context, address string, now time.Time) (RateLimitStats, error) {
	query := `
		SELECT MAX(attempted_at),
		       COUNT(*) FILTER (WHERE attempted_at > $2),
		       MIN(attempted_at) FILTER (WHERE attempted_at > $2),
		       COUNT(*),
		       MIN(attempted_at)
		FROM booking_rate_limits
		WHERE client_address = $1
		  AND attempted_at > $3
	`

	var stats RateLimitStats
	var last, oldestInHour, oldestInDay sql.NullTime
	err := s.db.QueryRowxContext(ctx, query, address, now.Add(-hourWindow), now.Add(-dayWindow)).
		Scan(&last, &stats.HourCount, &oldestInHour, &stats.DayCount, &oldestInDay)
	if err != nil {
		return RateLimitStats{}, err
	}

	stats.LastAttempt = last.Time
	stats.OldestInHour = oldestInHour.Time
	stats.OldestInDay = oldestInDay.Time
	return stats, nil
}

// Record implements RateLimitStore
func (s *SQLRateLimitStore) Record(ctx context.Context, address string, at time.Time) error {
	query := `
		INSERT INTO booking_rate_limits (client_address, attempted_at)
		VALUES ($1, $2)
	`
	_, err := s.db.ExecContext(ctx, query, address, at)
	return err
}

// Evict implements RateLimitStore
func (s *SQLRateLimitStore) Evict(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM booking_rate_limits WHERE attempted_at < $1`, before)
	if err != nil {
		return 0, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// MemoryRateLimitStore keeps attempts in process memory
type MemoryRateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewMemoryRateLimitStore creates an in-memory rate limit store
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{attempts: map[string][]time.Time{}}
}

// Stats implements RateLimitStore
func (s *MemoryRateLimitStore) Stats(ctx context.Context, address string, now time.Time) (RateLimitStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return statsFrom(s.attempts[address], now), nil
}

// Record implements RateLimitStore
func (s *MemoryRateLimitStore) Record(ctx context.Context, address string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[address] = append(s.attempts[address], at)
	return nil
}

// Evict implements RateLimitStore
func (s *MemoryRateLimitStore) Evict(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for address, times := range s.attempts {
		kept := times[:0]
		for _, at := range times {
			if at.Before(before) {
				removed++
				continue
			}
			kept = append(kept, at)
		}
		if len(kept) == 0 {
			delete(s.attempts, address)
			continue
		}
		s.attempts[address] = kept
	}
	return removed, nil
}

// Size returns the number of tracked addresses
func (s *MemoryRateLimitStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

const redisRateLimitPrefix = "ratelimit:booking:"

// RedisRateLimitStore keeps attempts in one sorted set per address, scored
// by unix milliseconds. Keys expire a day after the last attempt.
type RedisRateLimitStore struct {
	client *redis.Client
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// NewRedisClient parses a redis:// URL and verifies the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Stats implements RateLimitStore
func (s *RedisRateLimitStore) Stats(ctx context.Context, address string, now time.Time) (RateLimitStats, error) {
	entries, err := s.client.ZRangeByScoreWithScores(ctx, redisRateLimitPrefix+address, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now.Add(-dayWindow).UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return RateLimitStats{}, err
	}

	times := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		times = append(times, time.UnixMilli(int64(entry.Score)))
	}
	return statsFrom(times, now), nil
}

// Record implements RateLimitStore
func (s *RedisRateLimitStore) Record(ctx context.Context, address string, at time.Time) error {
	key := redisRateLimitPrefix + address
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()})
	pipe.Expire(ctx, key, dayWindow)
	_, err := pipe.Exec(ctx)
	return err
}

// Evict implements RateLimitStore
func (s *RedisRateLimitStore) Evict(ctx context.Context, before time.Time) (int64, error) {
	max := "(" + strconv.FormatInt(before.UnixMilli(), 10)

	var removed int64
	iter := s.client.Scan(ctx, 0, redisRateLimitPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", max).Result()
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, iter.Err()
}

// statsFrom computes window statistics from raw attempt times
func statsFrom(times []time.Time, now time.Time) RateLimitStats {
	sorted := append([]time.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var stats RateLimitStats
	hourStart, dayStart := now.Add(-hourWindow), now.Add(-dayWindow)
	for _, at := range sorted {
		if !at.After(dayStart) {
			continue
		}
		if stats.DayCount == 0 {
			stats.OldestInDay = at
		}
		stats.DayCount++
		if at.After(hourStart) {
			if stats.HourCount == 0 {
				stats.OldestInHour = at
			}
			stats.HourCount++
		}
		stats.LastAttempt = at
	}
	return stats
}
