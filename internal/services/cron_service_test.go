package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trekops/booking-backend/internal/config"
	"github.com/trekops/booking-backend/internal/models"
)

func TestCronService_RunJobsNow(t *testing.T) {
	env := newTestEnv(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cron := NewCronService(env.limiter, env.departures, logger)

	ctx := context.Background()
	require.NoError(t, env.limiter.Record(ctx, "203.0.113.1"))
	env.clock.Advance(25 * time.Hour)
	require.NoError(t, env.limiter.Record(ctx, "203.0.113.2"))

	removed, err := cron.RunEvictRateLimitsNow()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	tour := env.createTour(t, "Cron Trek")
	_, err = env.bookings.AdminCreateBooking(ctx, models.AdminCreateBookingRequest{
		TourID:   tour.ID,
		Date:     futureDate(-1),
		Pax:      1,
		Customer: testCustomer(1),
	}, env.admin)
	require.NoError(t, err)

	completed, err := cron.RunCompleteDeparturesNow()
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed)
}

func TestCronService_StartStop(t *testing.T) {
	env := newTestEnv(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cron := NewCronService(env.limiter, env.departures, logger)

	status := cron.GetJobStatus()
	assert.Equal(t, false, status["running"])

	require.NoError(t, cron.Start())
	defer cron.Stop()

	status = cron.GetJobStatus()
	assert.Equal(t, true, status["running"])
	assert.Equal(t, 2, status["job_count"])

	names := []string{}
	for _, job := range status["jobs"].([]map[string]interface{}) {
		names = append(names, job["name"].(string))
	}
	assert.ElementsMatch(t, []string{"evict_rate_limits", "complete_departures"}, names)
}

func TestCronService_UsesBookingTimezone(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.BookingConfig) {
		cfg.Timezone = "Pacific/Auckland"
	})
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cron := NewCronService(env.limiter, env.departures, logger)

	assert.Equal(t, "Pacific/Auckland", cron.cron.Location().String())
	assert.Equal(t, env.departures.Location(), cron.cron.Location())
}
