package services

import (
	"context"
	"fmt"
	"time"
)

// RateLimitStore keeps per-address booking attempt timestamps.
// Entries older than 24h are never consulted and are removed by Evict.
type RateLimitStore interface {
	Stats(ctx context.Context, address string, now time.Time) (RateLimitStats, error)
	Record(ctx context.Context, address string, at time.Time) error
	Evict(ctx context.Context, before time.Time) (int64, error)
}

// RateLimitStats summarizes an address's attempts in the trailing windows
type RateLimitStats struct {
	LastAttempt  time.Time // zero when there is no attempt in the last 24h
	HourCount    int
	OldestInHour time.Time
	DayCount     int
	OldestInDay  time.Time
}

const (
	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
)

// RateLimitService throttles public booking creation per client address
type RateLimitService struct {
	store  RateLimitStore
	config RateLimitConfig
	now    func() time.Time
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MinSpacing time.Duration // minimum gap between two attempts
	HourlyCap  int           // attempts per trailing hour
	DailyCap   int           // attempts per trailing 24h
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MinSpacing: 30 * time.Second,
		HourlyCap:  5,
		DailyCap:   10,
	}
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(store RateLimitStore, config RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "spacing", "hourly" or "daily"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// Check reports whether address may attempt a booking now. It returns a
// *RateLimitError when blocked and a plain error when the store failed.
func (s *RateLimitService) Check(ctx context.Context, address string) error {
	now := s.now()

	stats, err := s.store.Stats(ctx, address, now)
	if err != nil {
		return fmt.Errorf("failed to load rate limit stats: %w", err)
	}

	if !stats.LastAttempt.IsZero() && now.Sub(stats.LastAttempt) < s.config.MinSpacing {
		retryAfter := stats.LastAttempt.Add(s.config.MinSpacing)
		return &RateLimitError{
			Message:    fmt.Sprintf("Please wait %s before making another booking", retryAfter.Sub(now).Round(time.Second)),
			RetryAfter: retryAfter,
			Type:       "spacing",
		}
	}

	if stats.HourCount >= s.config.HourlyCap {
		retryAfter := stats.OldestInHour.Add(hourWindow)
		return &RateLimitError{
			Message:    fmt.Sprintf("Too many bookings in the last hour. Please try again after %s", retryAfter.UTC().Format("15:04:05")),
			RetryAfter: retryAfter,
			Type:       "hourly",
		}
	}

	if stats.DayCount >= s.config.DailyCap {
		retryAfter := stats.OldestInDay.Add(dayWindow)
		return &RateLimitError{
			Message:    fmt.Sprintf("Too many bookings today. Please try again after %s", retryAfter.UTC().Format("2006-01-02 15:04:05")),
			RetryAfter: retryAfter,
			Type:       "daily",
		}
	}

	return nil
}

// Record registers a successful booking attempt for address
func (s *RateLimitService) Record(ctx context.Context, address string) error {
	if err := s.store.Record(ctx, address, s.now()); err != nil {
		return fmt.Errorf("failed to record booking attempt: %w", err)
	}
	return nil
}

// Evict removes attempts older than the longest window
func (s *RateLimitService) Evict(ctx context.Context) (int64, error) {
	removed, err := s.store.Evict(ctx, s.now().Add(-dayWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to evict rate limits: %w", err)
	}
	return removed, nil
}
