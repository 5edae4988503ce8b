package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trekops/booking-backend/internal/models"
)

func TestCreateBooking_PublicRequestsShareDeparture(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Picos de Europa Traverse")
	date := futureDate(30)

	first := env.publicBooking(t, tour, 1, 2, models.VisibilityPublic, date)
	second := env.publicBooking(t, tour, 2, 3, models.VisibilityPublic, date)

	assert.Equal(t, first.DepartureID, second.DepartureID)
	assert.True(t, first.IsOriginator)
	assert.False(t, second.IsOriginator)
	assert.Equal(t, models.BookingStatusPending, second.Status)
	assert.Equal(t, models.BookingSourcePublic, second.Source)
	assert.Equal(t, "hiker2@example.com", second.Customer.Email)
	assert.Equal(t, "+34600000002", second.Customer.Phone)
	assert.True(t, strings.HasPrefix(second.Reference, "TRK-"))

	assert.Equal(t, 100.0, first.PricePerPerson)
	assert.Equal(t, 200.0, first.TotalPrice)
	assert.Equal(t, 80.0, second.PricePerPerson)
	assert.Equal(t, 88.0, second.AltPricePerPerson)
	assert.Equal(t, 240.0, second.TotalPrice)

	departure := env.departure(t, first.DepartureID)
	assert.Equal(t, 5, departure.ReservedSlots)
	assert.Equal(t, 2, departure.TotalBookingCount)
	assert.Equal(t, 8, departure.MaxCapacity)
	assert.Len(t, departure.Bookings, 2)
	env.assertLedger(t)
}

func TestCreateBooking_PrivateAlwaysCreatesDeparture(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Sierra Nevada Summit")
	date := futureDate(10)

	first := env.publicBooking(t, tour, 1, 2, models.VisibilityPrivate, date)
	second := env.publicBooking(t, tour, 2, 2, models.VisibilityPrivate, date)

	assert.NotEqual(t, first.DepartureID, second.DepartureID)
	assert.True(t, first.IsOriginator)
	assert.True(t, second.IsOriginator)

	departure := env.departure(t, first.DepartureID)
	assert.Equal(t, models.VisibilityPrivate, departure.Visibility)
	assert.Equal(t, 99, departure.MaxCapacity)
	env.assertLedger(t)
}

func TestCreateBooking_EmptyVisibilityIsPrivate(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Cares Gorge")
	date := futureDate(9)

	public := env.publicBooking(t, tour, 1, 2, models.VisibilityPublic, date)
	unset := env.publicBooking(t, tour, 2, 2, "", date)

	assert.NotEqual(t, public.DepartureID, unset.DepartureID)
	assert.True(t, unset.IsOriginator)

	departure := env.departure(t, unset.DepartureID)
	assert.Equal(t, models.VisibilityPrivate, departure.Visibility)
	assert.Equal(t, 99, departure.MaxCapacity)
	env.assertLedger(t)
}

func TestCreateBooking_CreateNewSkipsJoinableDeparture(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Ordesa Canyon")
	date := futureDate(12)

	first := env.publicBooking(t, tour, 1, 2, models.VisibilityPublic, date)
	second, err := env.bookings.CreateBooking(context.Background(), models.CreateBookingRequest{
		TourID:     tour.ID,
		Date:       date,
		Pax:        2,
		Customer:   testCustomer(2),
		Visibility: models.VisibilityPublic,
		CreateNew:  true,
	}, customerActor(2))
	require.NoError(t, err)

	assert.NotEqual(t, first.DepartureID, second.DepartureID)
	assert.True(t, second.IsOriginator)
}

func TestCreateBooking_FullDepartureOpensAnother(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Aneto Ascent")
	date := futureDate(20)

	first := env.publicBooking(t, tour, 1, 6, models.VisibilityPublic, date)
	second := env.publicBooking(t, tour, 2, 4, models.VisibilityPublic, date)
	third := env.publicBooking(t, tour, 3, 2, models.VisibilityPublic, date)

	assert.NotEqual(t, first.DepartureID, second.DepartureID)
	assert.Equal(t, first.DepartureID, third.DepartureID)

	departure := env.departure(t, first.DepartureID)
	assert.Equal(t, 8, departure.ReservedSlots)
	assert.Equal(t, models.DepartureStatusFull, departure.Status)
	env.assertLedger(t)
}

func TestCreateBooking_Validation(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Camino Walk")
	ctx := context.Background()

	tests := []struct {
		name   string
		modify func(*models.CreateBookingRequest)
		code   string
	}{
		{"past date", func(r *models.CreateBookingRequest) { r.Date = futureDate(-1) }, models.CodeInvalidData},
		{"bad date", func(r *models.CreateBookingRequest) { r.Date = "14/03/2026" }, models.CodeInvalidData},
		{"zero pax", func(r *models.CreateBookingRequest) { r.Pax = 0 }, models.CodeInvalidData},
		{"bad visibility", func(r *models.CreateBookingRequest) { r.Visibility = "shared" }, models.CodeInvalidData},
		{"bad email", func(r *models.CreateBookingRequest) { r.Customer.Email = "not-an-email" }, models.CodeInvalidData},
		{"local phone", func(r *models.CreateBookingRequest) { r.Customer.Phone = "600123456" }, models.CodeInvalidData},
		{"no price tier", func(r *models.CreateBookingRequest) { r.Pax = 13 }, models.CodePriceTierNotFound},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := models.CreateBookingRequest{
				TourID:     tour.ID,
				Date:       futureDate(5),
				Pax:        2,
				Customer:   testCustomer(i + 1),
				Visibility: models.VisibilityPublic,
			}
			tt.modify(&req)
			_, err := env.bookings.CreateBooking(ctx, req, customerActor(i+1))
			assertCode(t, err, models.KindInvalidData, tt.code)
		})
	}

	_, err := env.bookings.CreateBooking(ctx, models.CreateBookingRequest{
		TourID:     "missing",
		Date:       futureDate(5),
		Pax:        1,
		Customer:   testCustomer(50),
		Visibility: models.VisibilityPublic,
	}, customerActor(50))
	assertCode(t, err, models.KindNotFound, models.CodeNotFound)
	env.assertLedger(t)
}

func TestCreateBooking_InactiveTour(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Closed Route")
	_, err := env.tours.DeactivateTour(context.Background(), tour.ID, env.admin)
	require.NoError(t, err)

	_, err = env.bookings.CreateBooking(context.Background(), models.CreateBookingRequest{
		TourID:     tour.ID,
		Date:       futureDate(5),
		Pax:        1,
		Customer:   testCustomer(1),
		Visibility: models.VisibilityPublic,
	}, customerActor(1))
	assertCode(t, err, models.KindInvalidData, models.CodeTourInactive)
}

func TestCreateBooking_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Rate Limited Trek")
	date := futureDate(7)
	actor := customerActor(9)
	ctx := context.Background()

	req := models.CreateBookingRequest{
		TourID:     tour.ID,
		Date:       date,
		Pax:        1,
		Customer:   testCustomer(9),
		Visibility: models.VisibilityPublic,
	}
	_, err := env.bookings.CreateBooking(ctx, req, actor)
	require.NoError(t, err)

	_, err = env.bookings.CreateBooking(ctx, req, actor)
	assertCode(t, err, models.KindRateLimited, models.CodeRateLimitExceeded)

	var violations int
	for _, entry := range env.store.AuditLogs() {
		if entry.Action == AuditRateLimitViolation {
			violations++
			assert.Equal(t, actor.IPAddress, entry.IPAddress)
		}
	}
	assert.Equal(t, 1, violations)

	env.clock.Advance(31 * time.Second)
	_, err = env.bookings.CreateBooking(ctx, req, actor)
	require.NoError(t, err)

	// admin bookings are never throttled
	for i := 0; i < 3; i++ {
		_, err := env.bookings.AdminCreateBooking(ctx, models.AdminCreateBookingRequest{
			TourID:   tour.ID,
			Date:     date,
			Pax:      1,
			Customer: testCustomer(9),
		}, env.admin)
		require.NoError(t, err)
	}
	env.assertLedger(t)
}

func TestJoinDeparture_NoOverAdmission(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Popular Departure")
	ctx := context.Background()

	departure, err := env.departures.CreateDeparture(ctx, models.CreateDepartureRequest{
		TourID:     tour.ID,
		Date:       futureDate(15),
		Visibility: models.VisibilityPublic,
	}, env.admin)
	require.NoError(t, err)
	require.Equal(t, 8, departure.MaxCapacity)

	const clients = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 1; i <= clients; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := env.bookings.JoinDeparture(ctx, models.JoinDepartureRequest{
				DepartureID: departure.ID,
				Pax:         1,
				Customer:    testCustomer(n),
			}, customerActor(n))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			if models.IsKind(err, models.KindCapacityExceeded) {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, accepted)
	assert.Equal(t, clients-8, rejected)

	full := env.departure(t, departure.ID)
	assert.Equal(t, 8, full.ReservedSlots)
	assert.Equal(t, models.DepartureStatusFull, full.Status)
	env.assertLedger(t)
}

func TestJoinDeparture_Rejections(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Join Checks")
	ctx := context.Background()

	private := env.publicBooking(t, tour, 1, 2, models.VisibilityPrivate, futureDate(9))
	_, err := env.bookings.JoinDeparture(ctx, models.JoinDepartureRequest{
		DepartureID: private.DepartureID,
		Pax:         1,
		Customer:    testCustomer(2),
	}, customerActor(2))
	assertCode(t, err, models.KindInvalidData, models.CodeInvalidData)

	public := env.publicBooking(t, tour, 3, 2, models.VisibilityPublic, futureDate(9))
	completed := models.DepartureStatusCompleted
	_, err = env.departures.UpdateDeparture(ctx, public.DepartureID, models.UpdateDepartureRequest{Status: &completed}, env.admin)
	require.NoError(t, err)

	_, err = env.bookings.JoinDeparture(ctx, models.JoinDepartureRequest{
		DepartureID: public.DepartureID,
		Pax:         1,
		Customer:    testCustomer(4),
	}, customerActor(4))
	assertCode(t, err, models.KindInvalidData, models.CodeDepartureClosed)

	_, err = env.bookings.JoinDeparture(ctx, models.JoinDepartureRequest{
		DepartureID: "missing",
		Pax:         1,
		Customer:    testCustomer(5),
	}, customerActor(5))
	assertCode(t, err, models.KindNotFound, "")
}

func TestAdminCreateBooking(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Admin Trek")
	other := env.createTour(t, "Other Trek")
	ctx := context.Background()

	booking, err := env.bookings.AdminCreateBooking(ctx, models.AdminCreateBookingRequest{
		TourID:         tour.ID,
		Date:           futureDate(-3),
		Pax:            4,
		Customer:       testCustomer(1),
		Status:         models.BookingStatusConfirmed,
		PricePerPerson: floatPtr(55.5),
		Notes:          "phone booking",
	}, env.admin)
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, models.BookingSourceAdmin, booking.Source)
	assert.Equal(t, 55.5, booking.PricePerPerson)
	assert.Equal(t, 88.0, booking.AltPricePerPerson)
	assert.Equal(t, 222.0, booking.TotalPrice)
	assert.Equal(t, "phone booking", booking.Notes)

	departure := env.departure(t, booking.DepartureID)
	assert.Equal(t, models.VisibilityPrivate, departure.Visibility)

	joined, err := env.bookings.AdminCreateBooking(ctx, models.AdminCreateBookingRequest{
		DepartureID: booking.DepartureID,
		Pax:         2,
		Customer:    testCustomer(2),
	}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, booking.DepartureID, joined.DepartureID)
	assert.Equal(t, models.BookingStatusPending, joined.Status)

	_, err = env.bookings.AdminCreateBooking(ctx, models.AdminCreateBookingRequest{
		DepartureID: booking.DepartureID,
		TourID:      other.ID,
		Pax:         1,
		Customer:    testCustomer(3),
	}, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeTourMismatch)

	_, err = env.bookings.AdminCreateBooking(ctx, models.AdminCreateBookingRequest{
		TourID:   tour.ID,
		Date:     futureDate(3),
		Pax:      1,
		Customer: testCustomer(4),
		Status:   models.BookingStatusCancelled,
	}, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeInvalidData)

	_, err = env.bookings.AdminCreateBooking(ctx, models.AdminCreateBookingRequest{
		Pax:      1,
		Customer: testCustomer(5),
	}, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeInvalidData)

	assert.Contains(t, env.events.Keys(), EventBookingCreated)
	env.assertLedger(t)
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to models.BookingStatus
		ok       bool
	}{
		{models.BookingStatusPending, models.BookingStatusConfirmed, true},
		{models.BookingStatusPending, models.BookingStatusPaid, true},
		{models.BookingStatusPending, models.BookingStatusCancelled, true},
		{models.BookingStatusConfirmed, models.BookingStatusPaid, true},
		{models.BookingStatusConfirmed, models.BookingStatusPending, false},
		{models.BookingStatusPaid, models.BookingStatusConfirmed, true},
		{models.BookingStatusPaid, models.BookingStatusPending, false},
		{models.BookingStatusPaid, models.BookingStatusCancelledByAdmin, true},
		{models.BookingStatusCancelled, models.BookingStatusCancelledByAdmin, true},
		{models.BookingStatusCancelled, models.BookingStatusPending, false},
		{models.BookingStatusCancelledByAdmin, models.BookingStatusConfirmed, false},
		{models.BookingStatusConfirmed, models.BookingStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := checkTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assertCode(t, err, models.KindInvalidData, models.CodeInvalidStatusTransition)
		})
	}
}

func TestUpdateStatus_CancelReleasesCapacity(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Cancel Trek")
	date := futureDate(14)
	ctx := context.Background()

	first := env.publicBooking(t, tour, 1, 6, models.VisibilityPublic, date)
	second := env.publicBooking(t, tour, 2, 2, models.VisibilityPublic, date)
	require.Equal(t, first.DepartureID, second.DepartureID)
	assert.Equal(t, models.DepartureStatusFull, env.departure(t, first.DepartureID).Status)

	cancelled, err := env.bookings.UpdateStatus(ctx, first.ID, models.UpdateBookingStatusRequest{
		Status: models.BookingStatusCancelled,
		Reason: "customer request",
	}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	departure := env.departure(t, first.DepartureID)
	assert.Equal(t, 2, departure.ReservedSlots)
	assert.Equal(t, 1, departure.TotalBookingCount)
	assert.Equal(t, models.DepartureStatusActive, departure.Status)

	// switching between cancelled variants does not release again
	_, err = env.bookings.UpdateStatus(ctx, first.ID, models.UpdateBookingStatusRequest{
		Status: models.BookingStatusCancelledByAdmin,
	}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, env.departure(t, first.DepartureID).ReservedSlots)

	_, err = env.bookings.UpdateStatus(ctx, first.ID, models.UpdateBookingStatusRequest{
		Status: models.BookingStatusConfirmed,
	}, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeInvalidStatusTransition)

	history := env.booking(t, first.ID).StatusHistory
	require.Len(t, history, 3)
	assert.Equal(t, models.BookingStatusPending, history[0].Status)
	assert.Equal(t, "customer request", history[1].Note)
	assert.Equal(t, actorAdmin, history[2].Actor)

	assert.Contains(t, env.events.Keys(), EventBookingStatusChanged)
	env.assertLedger(t)
}

func TestReinstate(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Reinstate Trek")
	date := futureDate(14)
	ctx := context.Background()

	first := env.publicBooking(t, tour, 1, 6, models.VisibilityPublic, date)
	_, err := env.bookings.UpdateStatus(ctx, first.ID, models.UpdateBookingStatusRequest{Status: models.BookingStatusCancelled}, env.admin)
	require.NoError(t, err)

	_, err = env.bookings.Reinstate(ctx, first.ID, models.ReinstateBookingRequest{Status: models.BookingStatusPaid}, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeInvalidStatusTransition)

	// the freed places are taken while the booking is cancelled
	other := env.publicBooking(t, tour, 2, 4, models.VisibilityPublic, date)
	require.Equal(t, first.DepartureID, other.DepartureID)

	_, err = env.bookings.Reinstate(ctx, first.ID, models.ReinstateBookingRequest{}, env.admin)
	assertCode(t, err, models.KindCapacityExceeded, models.CodeCapacityExceeded)
	assert.Equal(t, models.BookingStatusCancelled, env.booking(t, first.ID).Status)

	_, err = env.bookings.UpdateStatus(ctx, other.ID, models.UpdateBookingStatusRequest{Status: models.BookingStatusCancelled}, env.admin)
	require.NoError(t, err)

	reinstated, err := env.bookings.Reinstate(ctx, first.ID, models.ReinstateBookingRequest{
		Status: models.BookingStatusConfirmed,
		Reason: "paid by transfer",
	}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, reinstated.Status)
	assert.Equal(t, first.TotalPrice, reinstated.TotalPrice)
	assert.Equal(t, 6, env.departure(t, first.DepartureID).ReservedSlots)

	_, err = env.bookings.Reinstate(ctx, first.ID, models.ReinstateBookingRequest{}, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeInvalidStatusTransition)
	env.assertLedger(t)
}

func TestUpdateDetails(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Edit Trek")
	date := futureDate(21)
	ctx := context.Background()

	booking := env.publicBooking(t, tour, 1, 2, models.VisibilityPublic, date)
	env.publicBooking(t, tour, 2, 4, models.VisibilityPublic, date)

	updated, err := env.bookings.UpdateDetails(ctx, booking.ID, models.UpdateBookingDetailsRequest{Pax: intPtr(3)}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Pax)
	assert.Equal(t, 80.0, updated.PricePerPerson)
	assert.Equal(t, 240.0, updated.TotalPrice)
	assert.Equal(t, 7, env.departure(t, booking.DepartureID).ReservedSlots)

	_, err = env.bookings.UpdateDetails(ctx, booking.ID, models.UpdateBookingDetailsRequest{Pax: intPtr(5)}, env.admin)
	assertCode(t, err, models.KindCapacityExceeded, models.CodeCapacityExceeded)
	assert.Equal(t, 3, env.booking(t, booking.ID).Pax)

	newDate := futureDate(22)
	moved, err := env.bookings.UpdateDetails(ctx, booking.ID, models.UpdateBookingDetailsRequest{
		Date:   &newDate,
		Reason: "weather",
	}, env.admin)
	require.NoError(t, err)
	assert.NotEqual(t, booking.DepartureID, moved.DepartureID)
	assert.Equal(t, newDate, moved.DepartureDate.String())
	assert.True(t, moved.IsOriginator)
	assert.Equal(t, 4, env.departure(t, booking.DepartureID).ReservedSlots)
	assert.Equal(t, 3, env.departure(t, moved.DepartureID).ReservedSlots)
	assert.Equal(t, models.VisibilityPublic, env.departure(t, moved.DepartureID).Visibility)
	assert.Contains(t, env.events.Keys(), EventBookingMoved)

	overridden, err := env.bookings.UpdateDetails(ctx, booking.ID, models.UpdateBookingDetailsRequest{PricePerPerson: floatPtr(50)}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, 150.0, overridden.TotalPrice)

	_, err = env.bookings.UpdateDetails(ctx, booking.ID, models.UpdateBookingDetailsRequest{}, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeInvalidData)

	_, err = env.bookings.UpdateStatus(ctx, booking.ID, models.UpdateBookingStatusRequest{Status: models.BookingStatusCancelled}, env.admin)
	require.NoError(t, err)

	_, err = env.bookings.UpdateDetails(ctx, booking.ID, models.UpdateBookingDetailsRequest{Pax: intPtr(1)}, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeBookingCancelled)

	notes := "called back"
	edited, err := env.bookings.UpdateDetails(ctx, booking.ID, models.UpdateBookingDetailsRequest{Notes: &notes}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, notes, edited.Notes)
	env.assertLedger(t)
}

func TestCheckBooking(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Lookup Trek")
	booking := env.publicBooking(t, tour, 1, 2, models.VisibilityPublic, futureDate(3))
	ctx := context.Background()

	check, err := env.bookings.CheckBooking(ctx, strings.ToLower(booking.Reference), "HIKER1@example.com")
	require.NoError(t, err)
	assert.Equal(t, booking.Reference, check.Reference)
	assert.Equal(t, "Hiker 1", check.CustomerName)
	assert.Equal(t, 200.0, check.TotalPrice)

	_, err = env.bookings.CheckBooking(ctx, booking.Reference, "someone@else.com")
	assertCode(t, err, models.KindNotFound, "")

	_, err = env.bookings.CheckBooking(ctx, "TRK-000000-XXXXXX", "")
	assertCode(t, err, models.KindNotFound, "")

	_, err = env.bookings.CheckBooking(ctx, "  ", "")
	assertCode(t, err, models.KindInvalidData, "")
}

func TestListBookings(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "List Trek")
	for i := 1; i <= 3; i++ {
		env.publicBooking(t, tour, i, 1, models.VisibilityPrivate, futureDate(i))
	}

	page, err := env.bookings.ListBookings(context.Background(), models.BookingFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Bookings, 2)

	page, err = env.bookings.ListBookings(context.Background(), models.BookingFilter{Search: "hiker 3", Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 50, page.Limit)
	require.Len(t, page.Bookings, 1)
	assert.Equal(t, "Hiker 3", page.Bookings[0].Customer.Name)
}
