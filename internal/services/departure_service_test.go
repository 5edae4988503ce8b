package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/models"
)

func TestDefaultCapacity(t *testing.T) {
	env := newTestEnv(t)
	tour := &models.Tour{}
	assert.Equal(t, 99, env.departures.DefaultCapacity(tour, models.VisibilityPrivate))
	assert.Equal(t, 8, env.departures.DefaultCapacity(tour, models.VisibilityPublic))

	tour.MaxParticipants = intPtr(12)
	assert.Equal(t, 12, env.departures.DefaultCapacity(tour, models.VisibilityPublic))
	assert.Equal(t, 99, env.departures.DefaultCapacity(tour, models.VisibilityPrivate))
}

func TestListPublicDepartures(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Listing Trek")
	ctx := context.Background()

	env.publicBooking(t, tour, 1, 2, models.VisibilityPublic, futureDate(3))
	env.publicBooking(t, tour, 2, 2, models.VisibilityPublic, futureDate(4))
	env.publicBooking(t, tour, 3, 2, models.VisibilityPrivate, futureDate(4))
	env.publicBooking(t, tour, 4, 8, models.VisibilityPublic, futureDate(5))

	all, err := env.departures.ListPublicDepartures(ctx, tour.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, futureDate(3), all[0].Date.String())
	assert.Equal(t, futureDate(4), all[1].Date.String())

	day, err := env.departures.ListPublicDepartures(ctx, tour.ID, futureDate(4))
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, models.VisibilityPublic, day[0].Visibility)

	past, err := env.departures.ListPublicDepartures(ctx, tour.ID, futureDate(-2))
	require.NoError(t, err)
	assert.Empty(t, past)

	_, err = env.departures.ListPublicDepartures(ctx, tour.ID, "tomorrow")
	assertCode(t, err, models.KindInvalidData, "")
}

func TestUpdateDeparture(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Update Trek")
	date := futureDate(6)
	ctx := context.Background()

	a := env.publicBooking(t, tour, 1, 3, models.VisibilityPublic, date)
	env.publicBooking(t, tour, 2, 2, models.VisibilityPublic, date)
	id := a.DepartureID

	_, err := env.departures.UpdateDeparture(ctx, id, models.UpdateDepartureRequest{MaxCapacity: intPtr(4)}, env.admin)
	assertCode(t, err, models.KindCapacityExceeded, models.CodeCapacityExceeded)

	updated, err := env.departures.UpdateDeparture(ctx, id, models.UpdateDepartureRequest{MaxCapacity: intPtr(5)}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.MaxCapacity)
	assert.Equal(t, models.DepartureStatusFull, updated.Status)

	updated, err = env.departures.UpdateDeparture(ctx, id, models.UpdateDepartureRequest{MaxCapacity: intPtr(10)}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, models.DepartureStatusActive, updated.Status)

	private := models.VisibilityPrivate
	_, err = env.departures.UpdateDeparture(ctx, id, models.UpdateDepartureRequest{Visibility: &private}, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeInvalidData)

	cancelled := models.DepartureStatusCancelled
	_, err = env.departures.UpdateDeparture(ctx, id, models.UpdateDepartureRequest{Status: &cancelled}, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeDepartureNotEmpty)

	_, err = env.departures.UpdateDeparture(ctx, "missing", models.UpdateDepartureRequest{}, env.admin)
	assertCode(t, err, models.KindNotFound, "")
	env.assertLedger(t)
}

func TestUpdateDeparture_CancelEmpty(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Cancel Departure Trek")
	ctx := context.Background()

	departure, err := env.departures.CreateDeparture(ctx, models.CreateDepartureRequest{
		TourID:     tour.ID,
		Date:       futureDate(8),
		Visibility: models.VisibilityPublic,
	}, env.admin)
	require.NoError(t, err)

	cancelled := models.DepartureStatusCancelled
	updated, err := env.departures.UpdateDeparture(ctx, departure.ID, models.UpdateDepartureRequest{Status: &cancelled}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, models.DepartureStatusCancelled, updated.Status)

	_, err = env.bookings.JoinDeparture(ctx, models.JoinDepartureRequest{
		DepartureID: departure.ID,
		Pax:         1,
		Customer:    testCustomer(1),
	}, customerActor(1))
	assertCode(t, err, models.KindInvalidData, models.CodeDepartureClosed)
}

func TestChangeDepartureDate(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Date Trek")
	ctx := context.Background()

	a := env.publicBooking(t, tour, 1, 2, models.VisibilityPublic, futureDate(6))
	b := env.publicBooking(t, tour, 2, 2, models.VisibilityPublic, futureDate(6))

	_, err := env.departures.ChangeDepartureDate(ctx, a.DepartureID, models.ChangeDepartureDateRequest{Date: futureDate(6)}, env.admin)
	assertCode(t, err, models.KindInvalidData, "")

	updated, err := env.departures.ChangeDepartureDate(ctx, a.DepartureID, models.ChangeDepartureDateRequest{
		Date: futureDate(9),
		Note: "snow",
	}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, futureDate(9), updated.Date.String())

	for _, id := range []string{a.ID, b.ID} {
		booking := env.booking(t, id)
		assert.Equal(t, futureDate(9), booking.DepartureDate.String())
		assert.Contains(t, booking.StatusHistory[len(booking.StatusHistory)-1].Note, "snow")
	}
	env.assertLedger(t)
}

func TestChangeDepartureTour(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "First Tour")
	ctx := context.Background()

	pricing := testPricing()
	pricing.Tiers[0].PriceBase = 150
	other, err := env.tours.CreateTour(ctx, models.CreateTourRequest{Name: "Second Tour", Pricing: pricing}, env.admin)
	require.NoError(t, err)

	live := env.publicBooking(t, tour, 1, 2, models.VisibilityPublic, futureDate(6))
	gone := env.publicBooking(t, tour, 2, 1, models.VisibilityPublic, futureDate(6))
	_, err = env.bookings.UpdateStatus(ctx, gone.ID, models.UpdateBookingStatusRequest{Status: models.BookingStatusCancelled}, env.admin)
	require.NoError(t, err)

	_, err = env.departures.ChangeDepartureTour(ctx, live.DepartureID, models.ChangeDepartureTourRequest{TourID: tour.ID}, env.admin)
	assertCode(t, err, models.KindInvalidData, "")

	updated, err := env.departures.ChangeDepartureTour(ctx, live.DepartureID, models.ChangeDepartureTourRequest{TourID: other.ID}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.TourID)
	assert.Equal(t, "Second Tour", updated.TourName)

	repriced := env.booking(t, live.ID)
	assert.Equal(t, other.ID, repriced.TourID)
	assert.Equal(t, 300.0, repriced.TotalPrice)

	untouched := env.booking(t, gone.ID)
	assert.Equal(t, other.ID, untouched.TourID)
	assert.Equal(t, 100.0, untouched.TotalPrice)
	env.assertLedger(t)
}

func TestRepriceDeparture(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Reprice Trek")
	ctx := context.Background()

	booking := env.publicBooking(t, tour, 1, 2, models.VisibilityPublic, futureDate(6))

	pricing := testPricing()
	pricing.Tiers[0].PriceBase = 130
	_, err := env.tours.UpdateTour(ctx, tour.ID, models.UpdateTourRequest{Pricing: &pricing}, env.admin)
	require.NoError(t, err)

	// tour pricing changes do not reach existing departures on their own
	assert.Equal(t, 100.0, env.departure(t, booking.DepartureID).PricingSnapshot.Tiers[0].PriceBase)
	assert.Equal(t, 200.0, env.booking(t, booking.ID).TotalPrice)

	updated, err := env.departures.RepriceDeparture(ctx, booking.DepartureID, models.RepriceDepartureRequest{}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, 130.0, updated.PricingSnapshot.Tiers[0].PriceBase)
	assert.Equal(t, 200.0, env.booking(t, booking.ID).TotalPrice)

	_, err = env.departures.RepriceDeparture(ctx, booking.DepartureID, models.RepriceDepartureRequest{RepriceBookings: true}, env.admin)
	require.NoError(t, err)
	assert.Equal(t, 260.0, env.booking(t, booking.ID).TotalPrice)
}

func TestDeleteDeparture(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Delete Trek")
	ctx := context.Background()

	booking := env.publicBooking(t, tour, 1, 2, models.VisibilityPrivate, futureDate(6))

	err := env.departures.DeleteDeparture(ctx, booking.DepartureID, env.admin)
	assertCode(t, err, models.KindInvalidData, models.CodeDepartureNotEmpty)

	_, err = env.bookings.UpdateStatus(ctx, booking.ID, models.UpdateBookingStatusRequest{Status: models.BookingStatusCancelled}, env.admin)
	require.NoError(t, err)

	// cancellation alone never removes the departure
	env.departure(t, booking.DepartureID)

	require.NoError(t, env.departures.DeleteDeparture(ctx, booking.DepartureID, env.admin))
	_, err = env.departures.GetDeparture(ctx, booking.DepartureID)
	assertCode(t, err, models.KindNotFound, "")

	err = env.departures.DeleteDeparture(ctx, "missing", env.admin)
	assertCode(t, err, models.KindNotFound, "")
}

func TestCompletePastDepartures(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Past Trek")
	ctx := context.Background()

	past, err := env.bookings.AdminCreateBooking(ctx, models.AdminCreateBookingRequest{
		TourID:   tour.ID,
		Date:     futureDate(-2),
		Pax:      2,
		Customer: testCustomer(1),
	}, env.admin)
	require.NoError(t, err)
	upcoming := env.publicBooking(t, tour, 2, 2, models.VisibilityPublic, futureDate(2))

	completed, err := env.departures.CompletePastDepartures(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed)

	assert.Equal(t, models.DepartureStatusCompleted, env.departure(t, past.DepartureID).Status)
	assert.Equal(t, models.DepartureStatusActive, env.departure(t, upcoming.DepartureID).Status)
}

func TestReconcileLedger(t *testing.T) {
	env := newTestEnv(t)
	tour := env.createTour(t, "Drift Trek")
	ctx := context.Background()

	booking := env.publicBooking(t, tour, 1, 3, models.VisibilityPublic, futureDate(6))

	// corrupt the counters behind the ledger's back
	err := env.store.WithTx(ctx, func(tx database.Tx) error {
		if _, err := tx.AdjustReservedSlots(ctx, booking.DepartureID, 2); err != nil {
			return err
		}
		return tx.AdjustBookingCount(ctx, booking.DepartureID, 1)
	})
	require.NoError(t, err)

	drifts, err := env.departures.ReconcileLedger(ctx, false)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, booking.DepartureID, drifts[0].DepartureID)
	assert.Equal(t, 5, drifts[0].ReservedSlots)
	assert.Equal(t, 3, drifts[0].ExpectedReserved)
	assert.Equal(t, 2, drifts[0].BookingCount)
	assert.Equal(t, 1, drifts[0].ExpectedCount)
	assert.False(t, drifts[0].Fixed)

	drifts, err = env.departures.ReconcileLedger(ctx, true)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.True(t, drifts[0].Fixed)
	assert.Empty(t, drifts[0].FixError)

	departure := env.departure(t, booking.DepartureID)
	assert.Equal(t, 3, departure.ReservedSlots)
	assert.Equal(t, 1, departure.TotalBookingCount)

	var repaired bool
	for _, entry := range env.store.AuditLogs() {
		if entry.Action == AuditLedgerRepaired && entry.EntityID == booking.DepartureID {
			repaired = true
			assert.Equal(t, actorSystem, entry.Actor)
		}
	}
	assert.True(t, repaired)
	env.assertLedger(t)
}
