package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trekops/booking-backend/internal/config"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/pkg/validator"
)

// recordingPublisher keeps every published event key
type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type testEnv struct {
	store      *database.MemoryStore
	tours      *TourService
	departures *DepartureService
	bookings   *BookingService
	transfers  *TransferService
	limiter    *RateLimitService
	clock      *fakeClock
	events     *recordingPublisher
	admin      Actor
}

func newTestEnv(t *testing.T, configure ...func(*config.BookingConfig)) *testEnv {
	t.Helper()

	cfg := config.BookingConfig{
		PublicDepartureCapacity:  8,
		PrivateDepartureCapacity: 99,
		EmptyDeparturePolicy:     EmptyDepartureKeep,
		Timezone:                 "UTC",
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := database.NewMemoryStore()
	v := validator.New()
	pricing := NewPricingService(v)
	audit := NewAuditService(store, logger)
	ledger := NewCapacityLedger(logger)
	limiter, clock := newMemoryLimiter(DefaultRateLimitConfig())
	events := &recordingPublisher{}

	departures := NewDepartureService(store, pricing, audit, cfg, logger)
	bookings := NewBookingService(store, departures, ledger, pricing, limiter, audit, events, v, logger)

	return &testEnv{
		store:      store,
		tours:      NewTourService(store, pricing, audit, logger),
		departures: departures,
		bookings:   bookings,
		transfers:  NewTransferService(store, bookings, departures, ledger, pricing, audit, logger),
		limiter:    limiter,
		clock:      clock,
		events:     events,
		admin:      AdminActor("198.51.100.1", "curl/8.0"),
	}
}

func testPricing() models.PricingTable {
	return models.PricingTable{
		Currency:    "EUR",
		AltCurrency: "USD",
		Tiers: []models.PricingTier{
			{MinPax: 1, MaxPax: 2, PriceBase: 100, PriceAlt: 110},
			{MinPax: 3, MaxPax: 6, PriceBase: 80, PriceAlt: 88},
			{MinPax: 7, MaxPax: 12, PriceBase: 70, PriceAlt: 77},
		},
	}
}

func (e *testEnv) createTour(t *testing.T, name string) *models.Tour {
	t.Helper()
	tour, err := e.tours.CreateTour(context.Background(), models.CreateTourRequest{
		Name:    name,
		Pricing: testPricing(),
	}, e.admin)
	require.NoError(t, err)
	return tour
}

// futureDate returns a day the given number of days from today
func futureDate(days int) string {
	return models.Today(time.UTC).AddDate(0, 0, days).Format(models.DateLayout)
}

func testCustomer(n int) models.CustomerInfo {
	return models.CustomerInfo{
		Name:       fmt.Sprintf("Hiker %d", n),
		DocumentID: fmt.Sprintf("X%07d", n),
		Phone:      fmt.Sprintf("+34 600 000 %03d", n),
		Email:      fmt.Sprintf("Hiker%d@Example.com", n),
	}
}

// customerActor returns a public client with its own address so that
// tests are not throttled by one another
func customerActor(n int) Actor {
	return CustomerActor(fmt.Sprintf("203.0.113.%d", n), "Mozilla/5.0")
}

func (e *testEnv) publicBooking(t *testing.T, tour *models.Tour, n, pax int, visibility models.DepartureVisibility, date string) *models.Booking {
	t.Helper()
	booking, err := e.bookings.CreateBooking(context.Background(), models.CreateBookingRequest{
		TourID:     tour.ID,
		Date:       date,
		Pax:        pax,
		Customer:   testCustomer(n),
		Visibility: visibility,
	}, customerActor(n))
	require.NoError(t, err)
	return booking
}

func (e *testEnv) departure(t *testing.T, id string) *models.DepartureWithBookings {
	t.Helper()
	d, err := e.departures.GetDeparture(context.Background(), id)
	require.NoError(t, err)
	return d
}

func (e *testEnv) booking(t *testing.T, id string) *models.Booking {
	t.Helper()
	b, err := e.bookings.GetBooking(context.Background(), id)
	require.NoError(t, err)
	return b
}

// assertLedger checks that every departure's counters match its live bookings
func (e *testEnv) assertLedger(t *testing.T) {
	t.Helper()
	drifts, err := e.departures.ReconcileLedger(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, drifts, "capacity ledger drift")

	departures, err := e.departures.ListDepartures(context.Background(), models.DepartureFilter{})
	require.NoError(t, err)
	for _, d := range departures {
		assert.GreaterOrEqual(t, d.ReservedSlots, 0)
		assert.LessOrEqual(t, d.ReservedSlots, d.MaxCapacity, "departure %s over capacity", d.ID)
	}
}

func assertCode(t *testing.T, err error, kind models.ErrorKind, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := models.AsAppError(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	if code != "" {
		assert.Equal(t, code, appErr.Code)
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
