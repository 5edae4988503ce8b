package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/config"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/models"
)

// Empty departure policies
const (
	EmptyDepartureKeep   = "keep"
	EmptyDepartureDelete = "delete"
)

// DepartureService owns departure creation, lookup and administration.
// ResolveOrCreateDeparture is the only find-or-create path.
type DepartureService struct {
	store   database.Store
	pricing *PricingService
	audit   *AuditService
	config  config.BookingConfig
	loc     *time.Location
	logger  *logrus.Logger
}

// NewDepartureService creates a new departure service
func NewDepartureService(
	store database.Store,
	pricing *PricingService,
	audit *AuditService,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *DepartureService {
	return &DepartureService{
		store:   store,
		pricing: pricing,
		audit:   audit,
		config:  cfg,
		loc:     cfg.Location(),
		logger:  logger,
	}
}

// Location returns the time zone that decides which calendar day is today
func (s *DepartureService) Location() *time.Location {
	return s.loc
}

// DefaultCapacity returns the capacity a new departure of the tour gets
func (s *DepartureService) DefaultCapacity(tour *models.Tour, visibility models.DepartureVisibility) int {
	if visibility == models.VisibilityPrivate {
		return s.config.PrivateDepartureCapacity
	}
	if tour != nil && tour.MaxParticipants != nil && *tour.MaxParticipants > 0 {
		return *tour.MaxParticipants
	}
	return s.config.PublicDepartureCapacity
}

// ResolveOrCreateDeparture finds the departure a booking of pax should land on.
// Public requests reuse the earliest created open public departure on the day
// with room, unless forceNew is set. Private requests always get a new departure.
// The returned flag reports whether the departure was created.
func (s *DepartureService) ResolveOrCreateDeparture(
	ctx context.Context,
	tx database.Tx,
	tour *models.Tour,
	date models.Date,
	visibility models.DepartureVisibility,
	pax int,
	forceNew bool,
) (*models.Departure, bool, error) {
	if !visibility.Valid() {
		return nil, false, models.NewInvalidData("visibility must be private or public")
	}

	if visibility == models.VisibilityPublic && !forceNew {
		existing, err := tx.FindJoinableDeparture(ctx, tour.ID, date, pax)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, false, fmt.Errorf("find joinable departure: %w", err)
		}
	}

	departure := newDeparture(tour, date, visibility, s.DefaultCapacity(tour, visibility))
	if err := tx.CreateDeparture(ctx, departure); err != nil {
		return nil, false, fmt.Errorf("create departure: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"departure_id": departure.ID,
		"tour_id":      tour.ID,
		"date":         date.String(),
		"visibility":   visibility,
		"max_capacity": departure.MaxCapacity,
	}).Info("Departure created")

	return departure, true, nil
}

func newDeparture(tour *models.Tour, date models.Date, visibility models.DepartureVisibility, capacity int) *models.Departure {
	return &models.Departure{
		ID:              uuid.NewString(),
		TourID:          tour.ID,
		TourName:        tour.Name,
		Date:            date,
		Visibility:      visibility,
		Status:          models.DepartureStatusActive,
		MaxCapacity:     capacity,
		PricingSnapshot: tour.Pricing,
	}
}

// cleanupEmpty deletes a departure left without any booking when the policy
// asks for it. Departures holding cancelled bookings are kept so the
// bookings can be reinstated.
func (s *DepartureService) cleanupEmpty(ctx context.Context, tx database.Tx, departureID string) (bool, error) {
	if s.config.EmptyDeparturePolicy != EmptyDepartureDelete {
		return false, nil
	}

	bookings, err := tx.ListDepartureBookings(ctx, departureID, false)
	if err != nil {
		return false, fmt.Errorf("list departure bookings: %w", err)
	}
	if len(bookings) > 0 {
		return false, nil
	}

	err = tx.DeleteDeparture(ctx, departureID)
	if errors.Is(err, database.ErrConditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete empty departure: %w", err)
	}

	s.logger.WithField("departure_id", departureID).Info("Empty departure deleted")
	return true, nil
}

// ListPublicDepartures returns joinable public departures from today on.
// date narrows the listing to a single day.
func (s *DepartureService) ListPublicDepartures(ctx context.Context, tourID, date string) ([]models.Departure, error) {
	today := models.Today(s.loc)
	filter := models.DepartureFilter{
		TourID:     tourID,
		From:       &today,
		Status:     []models.DepartureStatus{models.DepartureStatusActive},
		Visibility: models.VisibilityPublic,
	}
	if date != "" {
		day, err := models.ParseDate(date)
		if err != nil {
			return nil, models.NewInvalidData("%v", err)
		}
		if day.Before(today.Time) {
			return []models.Departure{}, nil
		}
		filter.From, filter.To = &day, &day
	}

	var departures []models.Departure
	err := s.store.View(ctx, func(tx database.Tx) error {
		var err error
		departures, err = tx.ListDepartures(ctx, filter)
		return err
	})
	if err != nil {
		return nil, classify(err, "list departures")
	}
	return departures, nil
}

// ListDepartures returns departures for the admin calendar
func (s *DepartureService) ListDepartures(ctx context.Context, filter models.DepartureFilter) ([]models.Departure, error) {
	var departures []models.Departure
	err := s.store.View(ctx, func(tx database.Tx) error {
		var err error
		departures, err = tx.ListDepartures(ctx, filter)
		return err
	})
	if err != nil {
		return nil, classify(err, "list departures")
	}
	return departures, nil
}

// GetDeparture returns a departure with every booking on it
func (s *DepartureService) GetDeparture(ctx context.Context, id string) (*models.DepartureWithBookings, error) {
	var result *models.DepartureWithBookings
	err := s.store.View(ctx, func(tx database.Tx) error {
		departure, err := tx.GetDeparture(ctx, id, false)
		if err != nil {
			return notFound(err, "departure", id)
		}
		bookings, err := tx.ListDepartureBookings(ctx, id, false)
		if err != nil {
			return err
		}
		result = &models.DepartureWithBookings{Departure: *departure, Bookings: bookings}
		return nil
	})
	if err != nil {
		return nil, classify(err, "get departure")
	}
	return result, nil
}

// CreateDeparture creates an empty departure explicitly
func (s *DepartureService) CreateDeparture(ctx context.Context, req models.CreateDepartureRequest, actor Actor) (*models.Departure, error) {
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, models.NewInvalidData("%v", err)
	}

	var departure *models.Departure
	err = s.store.WithTx(ctx, func(tx database.Tx) error {
		tour, err := tx.GetTour(ctx, req.TourID)
		if err != nil {
			return notFound(err, "tour", req.TourID)
		}

		capacity := s.DefaultCapacity(tour, req.Visibility)
		if req.MaxCapacity != nil {
			capacity = *req.MaxCapacity
		}
		departure = newDeparture(tour, date, req.Visibility, capacity)
		if err := tx.CreateDeparture(ctx, departure); err != nil {
			return fmt.Errorf("create departure: %w", err)
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditDepartureCreated,
			EntityType: "departure",
			EntityID:   departure.ID,
			Details:    models.AuditDetails{"tour_id": tour.ID, "date": date.String(), "visibility": req.Visibility},
		})
	})
	if err != nil {
		return nil, classify(err, "create departure")
	}
	return departure, nil
}

// UpdateDeparture changes capacity, status or visibility of a departure
func (s *DepartureService) UpdateDeparture(ctx context.Context, id string, req models.UpdateDepartureRequest, actor Actor) (*models.Departure, error) {
	var departure *models.Departure
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		departure, err = tx.GetDeparture(ctx, id, true)
		if err != nil {
			return notFound(err, "departure", id)
		}
		before := *departure

		if req.MaxCapacity != nil {
			if *req.MaxCapacity < departure.ReservedSlots {
				return models.NewCapacityExceeded("capacity %d is below the %d places already reserved",
					*req.MaxCapacity, departure.ReservedSlots)
			}
			departure.MaxCapacity = *req.MaxCapacity
		}

		if req.Visibility != nil && *req.Visibility != departure.Visibility {
			live, err := liveBookings(ctx, tx, id)
			if err != nil {
				return err
			}
			if len(live) > 1 {
				return models.NewInvalidData("departure is shared by %d bookings; convert bookings individually", len(live))
			}
			departure.Visibility = *req.Visibility
		}

		switch {
		case req.Status == nil:
			departure.Status = models.CapacityStatus(departure.Status, departure.ReservedSlots, departure.MaxCapacity)
		case *req.Status == models.DepartureStatusCancelled:
			if departure.ReservedSlots > 0 {
				return models.NewInvalidDataCode(models.CodeDepartureNotEmpty,
					"departure still holds %d reserved places", departure.ReservedSlots)
			}
			departure.Status = models.DepartureStatusCancelled
		case *req.Status == models.DepartureStatusCompleted:
			departure.Status = models.DepartureStatusCompleted
		default:
			// active and full are derived from the counters
			departure.Status = models.CapacityStatus(models.DepartureStatusActive, departure.ReservedSlots, departure.MaxCapacity)
		}

		if err := tx.UpdateDeparture(ctx, departure); err != nil {
			if errors.Is(err, database.ErrConditionFailed) {
				return models.NewCapacityExceeded("capacity is below the places already reserved")
			}
			return fmt.Errorf("update departure: %w", err)
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditDepartureUpdated,
			EntityType: "departure",
			EntityID:   id,
			Details: models.AuditDetails{
				"max_capacity": []int{before.MaxCapacity, departure.MaxCapacity},
				"status":       []models.DepartureStatus{before.Status, departure.Status},
				"visibility":   []models.DepartureVisibility{before.Visibility, departure.Visibility},
				"note":         req.Note,
			},
		})
	})
	if err != nil {
		return nil, classify(err, "update departure")
	}
	return departure, nil
}

// ChangeDepartureDate moves a departure and all its bookings to another day
func (s *DepartureService) ChangeDepartureDate(ctx context.Context, id string, req models.ChangeDepartureDateRequest, actor Actor) (*models.Departure, error) {
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, models.NewInvalidData("%v", err)
	}

	var departure *models.Departure
	err = s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		departure, err = tx.GetDeparture(ctx, id, true)
		if err != nil {
			return notFound(err, "departure", id)
		}
		if departure.Date.Equal(date) {
			return models.NewInvalidData("departure is already on %s", date)
		}
		previous := departure.Date
		departure.Date = date
		if err := tx.UpdateDeparture(ctx, departure); err != nil {
			return fmt.Errorf("update departure: %w", err)
		}

		note := fmt.Sprintf("Departure moved from %s to %s", previous, date)
		if req.Note != "" {
			note += ": " + req.Note
		}
		bookings, err := tx.ListDepartureBookings(ctx, id, true)
		if err != nil {
			return err
		}
		for i := range bookings {
			booking := &bookings[i]
			booking.DepartureDate = date
			if err := s.saveWithNote(ctx, tx, booking, note, actor); err != nil {
				return err
			}
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditDepartureUpdated,
			EntityType: "departure",
			EntityID:   id,
			Details:    models.AuditDetails{"date": []string{previous.String(), date.String()}, "bookings": len(bookings)},
		})
	})
	if err != nil {
		return nil, classify(err, "change departure date")
	}
	return departure, nil
}

// ChangeDepartureTour re-assigns a departure to another tour, taking the new
// tour's pricing and repricing every live booking on it
func (s *DepartureService) ChangeDepartureTour(ctx context.Context, id string, req models.ChangeDepartureTourRequest, actor Actor) (*models.Departure, error) {
	var departure *models.Departure
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		departure, err = tx.GetDeparture(ctx, id, true)
		if err != nil {
			return notFound(err, "departure", id)
		}
		if departure.TourID == req.TourID {
			return models.NewInvalidData("departure already belongs to tour %s", req.TourID)
		}
		tour, err := tx.GetTour(ctx, req.TourID)
		if err != nil {
			return notFound(err, "tour", req.TourID)
		}

		previousTour := departure.TourID
		departure.TourID = tour.ID
		departure.TourName = tour.Name
		departure.PricingSnapshot = tour.Pricing
		if err := tx.UpdateDeparture(ctx, departure); err != nil {
			return fmt.Errorf("update departure: %w", err)
		}

		note := fmt.Sprintf("Departure moved to tour %s", tour.Name)
		if req.Note != "" {
			note += ": " + req.Note
		}
		bookings, err := tx.ListDepartureBookings(ctx, id, true)
		if err != nil {
			return err
		}
		for i := range bookings {
			booking := &bookings[i]
			booking.TourID = tour.ID
			booking.TourName = tour.Name
			if !booking.Status.IsCancelled() {
				quote, err := s.pricing.Resolve(departure.PricingSnapshot, booking.Pax)
				if err != nil {
					return err
				}
				booking.ApplyQuote(quote)
			}
			if err := s.saveWithNote(ctx, tx, booking, note, actor); err != nil {
				return err
			}
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditDepartureUpdated,
			EntityType: "departure",
			EntityID:   id,
			Details:    models.AuditDetails{"tour_id": []string{previousTour, tour.ID}, "bookings": len(bookings)},
		})
	})
	if err != nil {
		return nil, classify(err, "change departure tour")
	}
	return departure, nil
}

// RepriceDeparture re-snapshots the tour's current pricing onto the departure,
// optionally repricing its live bookings
func (s *DepartureService) RepriceDeparture(ctx context.Context, id string, req models.RepriceDepartureRequest, actor Actor) (*models.Departure, error) {
	var departure *models.Departure
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		departure, err = tx.GetDeparture(ctx, id, true)
		if err != nil {
			return notFound(err, "departure", id)
		}
		tour, err := tx.GetTour(ctx, departure.TourID)
		if err != nil {
			return notFound(err, "tour", departure.TourID)
		}

		departure.PricingSnapshot = tour.Pricing
		if err := tx.UpdateDeparture(ctx, departure); err != nil {
			return fmt.Errorf("update departure: %w", err)
		}

		repriced := 0
		if req.RepriceBookings {
			live, err := liveBookings(ctx, tx, id)
			if err != nil {
				return err
			}
			note := "Repriced from current tour pricing"
			if req.Note != "" {
				note += ": " + req.Note
			}
			for i := range live {
				booking := &live[i]
				quote, err := s.pricing.Resolve(departure.PricingSnapshot, booking.Pax)
				if err != nil {
					return err
				}
				booking.ApplyQuote(quote)
				if err := s.saveWithNote(ctx, tx, booking, note, actor); err != nil {
					return err
				}
				repriced++
			}
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditDepartureRepriced,
			EntityType: "departure",
			EntityID:   id,
			Details:    models.AuditDetails{"repriced_bookings": repriced, "note": req.Note},
		})
	})
	if err != nil {
		return nil, classify(err, "reprice departure")
	}
	return departure, nil
}

// DeleteDeparture removes a departure holding no reserved places
func (s *DepartureService) DeleteDeparture(ctx context.Context, id string, actor Actor) error {
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		departure, err := tx.GetDeparture(ctx, id, true)
		if err != nil {
			return notFound(err, "departure", id)
		}
		if departure.ReservedSlots > 0 {
			return models.NewInvalidDataCode(models.CodeDepartureNotEmpty,
				"departure still holds %d reserved places", departure.ReservedSlots)
		}
		if err := tx.DeleteDeparture(ctx, id); err != nil {
			if errors.Is(err, database.ErrConditionFailed) {
				return models.NewInvalidDataCode(models.CodeDepartureNotEmpty, "departure is not empty")
			}
			return fmt.Errorf("delete departure: %w", err)
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditDepartureDeleted,
			EntityType: "departure",
			EntityID:   id,
			Details:    models.AuditDetails{"tour_id": departure.TourID, "date": departure.Date.String()},
		})
	})
	return classify(err, "delete departure")
}

// CompletePastDepartures marks open departures dated before today as completed
func (s *DepartureService) CompletePastDepartures(ctx context.Context) (int64, error) {
	var completed int64
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		completed, err = tx.CompleteDeparturesBefore(ctx, models.Today(s.loc))
		return err
	})
	if err != nil {
		return 0, classify(err, "complete past departures")
	}
	return completed, nil
}

// LedgerDrift describes a departure whose counters disagree with its bookings
type LedgerDrift struct {
	DepartureID      string      `json:"departure_id"`
	TourName         string      `json:"tour_name"`
	Date             models.Date `json:"date"`
	ReservedSlots    int         `json:"reserved_slots"`
	ExpectedReserved int         `json:"expected_reserved"`
	BookingCount     int         `json:"booking_count"`
	ExpectedCount    int         `json:"expected_count"`
	Fixed            bool        `json:"fixed"`
	FixError         string      `json:"fix_error,omitempty"`
}

// ReconcileLedger compares every departure's counters with the sum of its
// live bookings. With fix set, drift is corrected through the ledger.
func (s *DepartureService) ReconcileLedger(ctx context.Context, fix bool) ([]LedgerDrift, error) {
	var drifts []LedgerDrift

	check := func(tx database.Tx) error {
		drifts = nil
		departures, err := tx.ListDepartures(ctx, models.DepartureFilter{})
		if err != nil {
			return err
		}
		for _, departure := range departures {
			live, err := liveBookings(ctx, tx, departure.ID)
			if err != nil {
				return err
			}
			expected := 0
			for _, b := range live {
				expected += b.Pax
			}
			if expected == departure.ReservedSlots && len(live) == departure.TotalBookingCount {
				continue
			}

			drift := LedgerDrift{
				DepartureID:      departure.ID,
				TourName:         departure.TourName,
				Date:             departure.Date,
				ReservedSlots:    departure.ReservedSlots,
				ExpectedReserved: expected,
				BookingCount:     departure.TotalBookingCount,
				ExpectedCount:    len(live),
			}
			if fix {
				drift.Fixed, drift.FixError = s.repair(ctx, tx, drift)
			}
			drifts = append(drifts, drift)
		}
		return nil
	}

	var err error
	if fix {
		err = s.store.WithTx(ctx, check)
	} else {
		err = s.store.View(ctx, check)
	}
	if err != nil {
		return nil, classify(err, "reconcile ledger")
	}

	for _, d := range drifts {
		s.logger.WithFields(logrus.Fields{
			"departure_id":      d.DepartureID,
			"reserved_slots":    d.ReservedSlots,
			"expected_reserved": d.ExpectedReserved,
			"booking_count":     d.BookingCount,
			"expected_count":    d.ExpectedCount,
			"fixed":             d.Fixed,
		}).Warn("Capacity ledger drift")
	}
	return drifts, nil
}

func (s *DepartureService) repair(ctx context.Context, tx database.Tx, d LedgerDrift) (bool, string) {
	if delta := d.ExpectedReserved - d.ReservedSlots; delta != 0 {
		if _, err := tx.AdjustReservedSlots(ctx, d.DepartureID, delta); err != nil {
			return false, err.Error()
		}
	}
	if delta := d.ExpectedCount - d.BookingCount; delta != 0 {
		if err := tx.AdjustBookingCount(ctx, d.DepartureID, delta); err != nil {
			return false, err.Error()
		}
	}
	if err := s.audit.RecordTx(ctx, tx, SystemActor(), AuditEvent{
		Action:     AuditLedgerRepaired,
		EntityType: "departure",
		EntityID:   d.DepartureID,
		Details: models.AuditDetails{
			"reserved_slots": []int{d.ReservedSlots, d.ExpectedReserved},
			"booking_count":  []int{d.BookingCount, d.ExpectedCount},
		},
	}); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// saveWithNote persists a booking and appends a history entry with its current status
func (s *DepartureService) saveWithNote(ctx context.Context, tx database.Tx, booking *models.Booking, note string, actor Actor) error {
	if err := tx.UpdateBooking(ctx, booking); err != nil {
		return fmt.Errorf("update booking %s: %w", booking.ID, err)
	}
	return appendHistory(ctx, tx, booking, booking.Status, note, actor)
}

// liveBookings returns the non-cancelled bookings of a departure
func liveBookings(ctx context.Context, tx database.Tx, departureID string) ([]models.Booking, error) {
	bookings, err := tx.ListDepartureBookings(ctx, departureID, true)
	if err != nil {
		return nil, fmt.Errorf("list departure bookings: %w", err)
	}
	live := bookings[:0]
	for _, b := range bookings {
		if !b.Status.IsCancelled() {
			live = append(live, b)
		}
	}
	return live, nil
}

// appendHistory records a status history entry on the booking
func appendHistory(ctx context.Context, tx database.Tx, booking *models.Booking, status models.BookingStatus, note string, actor Actor) error {
	entry := models.StatusHistoryEntry{
		BookingID: booking.ID,
		Status:    status,
		Note:      note,
		Actor:     actor.Name,
	}
	if err := tx.AppendStatusHistory(ctx, &entry); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	booking.StatusHistory = append(booking.StatusHistory, entry)
	return nil
}
