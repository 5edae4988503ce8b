package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const cronJobTimeout = 5 * time.Minute

// CronService manages scheduled background jobs
type CronService struct {
	cron        *cron.Cron
	rateLimiter *RateLimitService
	departures  *DepartureService
	logger      *logrus.Logger
	jobs        map[cron.EntryID]string
}

// NewCronService creates a new CronService
func NewCronService(rateLimiter *RateLimitService, departures *DepartureService, logger *logrus.Logger) *CronService {
	// Create cron with seconds precision, scheduled in the booking time zone
	c := cron.New(cron.WithSeconds(), cron.WithLocation(departures.Location()))

	return &CronService{
		cron:        c,
		rateLimiter: rateLimiter,
		departures:  departures,
		logger:      logger,
		jobs:        map[cron.EntryID]string{},
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Job 1: Evict rate limit entries older than 24h every 15 minutes
	// Cron format: second minute hour day month weekday
	id, err := s.cron.AddFunc("0 */15 * * * *", s.evictRateLimitsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule rate limit eviction job: %w", err)
	}
	s.jobs[id] = "evict_rate_limits"
	s.logger.Info("✓ Scheduled: Evict rate limits (every 15 minutes)")

	// Job 2: Complete past departures daily at 00:05
	id, err = s.cron.AddFunc("0 5 0 * * *", s.completeDeparturesJob)
	if err != nil {
		return fmt.Errorf("failed to schedule departure completion job: %w", err)
	}
	s.jobs[id] = "complete_departures"
	s.logger.Info("✓ Scheduled: Complete past departures (daily at 00:05)")

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")

	return nil
}

// Stop stops all cron jobs and waits for running ones
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

func (s *CronService) evictRateLimitsJob() {
	if _, err := s.RunEvictRateLimitsNow(); err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to evict rate limits")
	}
}

func (s *CronService) completeDeparturesJob() {
	if _, err := s.RunCompleteDeparturesNow(); err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to complete past departures")
	}
}

// RunEvictRateLimitsNow runs the rate limit eviction immediately
func (s *CronService) RunEvictRateLimitsNow() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	startTime := time.Now()
	removed, err := s.rateLimiter.Evict(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"removed":  removed,
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] ✓ Evicted rate limit entries")
	return removed, nil
}

// RunCompleteDeparturesNow runs the departure completion immediately
func (s *CronService) RunCompleteDeparturesNow() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	startTime := time.Now()
	completed, err := s.departures.CompletePastDepartures(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"completed": completed,
		"duration":  time.Since(startTime).String(),
	}).Info("[CRON] ✓ Completed past departures")
	return completed, nil
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"name":     s.jobs[entry.ID],
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
