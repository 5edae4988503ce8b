package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/models"
)

// TransferService moves bookings between departures: same-tour transfers,
// cross-tour transfers, departure splits and visibility conversions
type TransferService struct {
	store      database.Store
	bookings   *BookingService
	departures *DepartureService
	ledger     *CapacityLedger
	pricing    *PricingService
	audit      *AuditService
	logger     *logrus.Logger
}

// NewTransferService creates a new transfer service
func NewTransferService(
	store database.Store,
	bookings *BookingService,
	departures *DepartureService,
	ledger *CapacityLedger,
	pricing *PricingService,
	audit *AuditService,
	logger *logrus.Logger,
) *TransferService {
	return &TransferService{
		store:      store,
		bookings:   bookings,
		departures: departures,
		ledger:     ledger,
		pricing:    pricing,
		audit:      audit,
		logger:     logger,
	}
}

// TransferBooking moves a live booking to another departure of the same tour,
// given explicitly or resolved from a date
func (s *TransferService) TransferBooking(ctx context.Context, id string, req models.TransferBookingRequest, actor Actor) (*models.Booking, error) {
	if req.DepartureID == "" && req.Date == "" {
		return nil, models.NewInvalidData("departure_id or date is required")
	}
	var date models.Date
	if req.DepartureID == "" {
		var err error
		if date, err = models.ParseDate(req.Date); err != nil {
			return nil, models.NewInvalidData("%v", err)
		}
	}

	var booking *models.Booking
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		booking, err = s.lockLiveBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		source, err := tx.GetDeparture(ctx, booking.DepartureID, true)
		if err != nil {
			return notFound(err, "departure", booking.DepartureID)
		}

		var (
			target  *models.Departure
			created bool
		)
		if req.DepartureID != "" {
			target, err = tx.GetDeparture(ctx, req.DepartureID, true)
			if err != nil {
				return notFound(err, "departure", req.DepartureID)
			}
			if target.TourID != booking.TourID {
				return models.NewInvalidDataCode(models.CodeTourMismatch,
					"departure %s belongs to tour %s, booking is for %s", target.ID, target.TourName, booking.TourName)
			}
		} else {
			tour, err := tx.GetTour(ctx, booking.TourID)
			if err != nil {
				return notFound(err, "tour", booking.TourID)
			}
			target, created, err = s.departures.ResolveOrCreateDeparture(ctx, tx, tour, date, source.Visibility, booking.Pax, false)
			if err != nil {
				return err
			}
		}
		if target.ID == source.ID {
			return models.NewInvalidData("booking is already on departure %s", source.ID)
		}

		quote, err := s.pricing.Resolve(target.PricingSnapshot, booking.Pax)
		if err != nil {
			return err
		}
		if _, err := s.bookings.moveCapacity(ctx, tx, booking, target, booking.Pax); err != nil {
			return err
		}
		booking.ApplyQuote(quote)
		booking.IsOriginator = created

		if err := tx.UpdateBooking(ctx, booking); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		note := fmt.Sprintf("Transferred from departure on %s to %s", source.Date, target.Date)
		if req.Reason != "" {
			note += ": " + req.Reason
		}
		if err := appendHistory(ctx, tx, booking, booking.Status, note, actor); err != nil {
			return err
		}
		if _, err := s.departures.cleanupEmpty(ctx, tx, source.ID); err != nil {
			return err
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditBookingTransferred,
			EntityType: "booking",
			EntityID:   booking.ID,
			Details: models.AuditDetails{
				"from_departure_id": source.ID,
				"to_departure_id":   target.ID,
				"pax":               booking.Pax,
				"reason":            req.Reason,
			},
		})
	})
	if err != nil {
		return nil, classify(err, "transfer booking")
	}

	s.bookings.publish(ctx, EventBookingMoved, booking)
	return booking, nil
}

// TransferBookingToTour cancels the booking and re-creates it on a departure
// of a different tour, linking the new booking back to the original
func (s *TransferService) TransferBookingToTour(ctx context.Context, id string, req models.TransferToTourRequest, actor Actor) (*models.TransferToTourResult, error) {
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, models.NewInvalidData("%v", err)
	}

	var result *models.TransferToTourResult
	err = s.store.WithTx(ctx, func(tx database.Tx) error {
		original, err := s.lockLiveBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if original.TourID == req.TourID {
			return models.NewInvalidData("booking is already on this tour; use a same-tour transfer")
		}
		tour, err := tx.GetTour(ctx, req.TourID)
		if err != nil {
			return notFound(err, "tour", req.TourID)
		}
		source, err := tx.GetDeparture(ctx, original.DepartureID, true)
		if err != nil {
			return notFound(err, "departure", original.DepartureID)
		}
		visibility := req.Visibility
		if visibility == "" {
			visibility = source.Visibility
		}

		// Carry the customer and party over before the original is cancelled.
		var p placement
		if err := copier.Copy(&p, original); err != nil {
			return fmt.Errorf("copy booking: %w", err)
		}

		if _, err := s.ledger.Release(ctx, tx, source.ID, original.Pax); err != nil {
			return err
		}
		if err := s.ledger.AdjustCount(ctx, tx, source.ID, -1); err != nil {
			return err
		}
		original.Status = models.BookingStatusCancelledByAdmin
		if err := tx.UpdateBooking(ctx, original); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		note := fmt.Sprintf("Transferred to tour %s on %s", tour.Name, date)
		if req.Reason != "" {
			note += ": " + req.Reason
		}
		if err := appendHistory(ctx, tx, original, original.Status, note, actor); err != nil {
			return err
		}

		target, created, err := s.departures.ResolveOrCreateDeparture(ctx, tx, tour, date, visibility, original.Pax, false)
		if err != nil {
			return err
		}
		p.Departure = target
		p.Created = created
		p.PriceOverride = nil
		p.TransferInfo = &models.TransferInfo{
			FromBookingID:   original.ID,
			FromReference:   original.Reference,
			FromTourID:      original.TourID,
			FromDepartureID: source.ID,
			Reason:          req.Reason,
			TransferredAt:   time.Now().UTC(),
		}
		p.HistoryNote = fmt.Sprintf("Transferred from booking %s (%s)", original.Reference, original.TourName)

		replacement, err := s.bookings.placeBooking(ctx, tx, p, actor)
		if err != nil {
			return err
		}
		if _, err := s.departures.cleanupEmpty(ctx, tx, source.ID); err != nil {
			return err
		}

		result = &models.TransferToTourResult{Original: original, Created: replacement}
		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditBookingTourTransfer,
			EntityType: "booking",
			EntityID:   original.ID,
			Details: models.AuditDetails{
				"new_booking_id": replacement.ID,
				"from_tour_id":   original.TourID,
				"to_tour_id":     tour.ID,
				"reason":         req.Reason,
			},
		})
	})
	if err != nil {
		return nil, classify(err, "transfer booking to tour")
	}

	s.bookings.publish(ctx, EventBookingStatusChanged, result.Original)
	s.bookings.publish(ctx, EventBookingCreated, result.Created)
	return result, nil
}

// SplitDeparture moves the given live bookings of a departure onto a new
// departure of the same tour, date and pricing snapshot
func (s *TransferService) SplitDeparture(ctx context.Context, departureID string, req models.SplitDepartureRequest, actor Actor) (*models.SplitResult, error) {
	if len(req.BookingIDs) == 0 {
		return nil, models.NewInvalidData("booking_ids must not be empty")
	}
	if req.Visibility != nil && !req.Visibility.Valid() {
		return nil, models.NewInvalidData("visibility must be private or public")
	}

	var result *models.SplitResult
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		source, err := tx.GetDeparture(ctx, departureID, true)
		if err != nil {
			return notFound(err, "departure", departureID)
		}

		all, err := tx.ListDepartureBookings(ctx, departureID, true)
		if err != nil {
			return fmt.Errorf("list departure bookings: %w", err)
		}
		byID := make(map[string]models.Booking, len(all))
		for _, b := range all {
			byID[b.ID] = b
		}

		seen := map[string]bool{}
		moving := make([]models.Booking, 0, len(req.BookingIDs))
		for _, bookingID := range req.BookingIDs {
			if seen[bookingID] {
				continue
			}
			seen[bookingID] = true
			b, ok := byID[bookingID]
			if !ok {
				return models.NewInvalidData("booking %s is not on departure %s", bookingID, departureID)
			}
			if b.Status.IsCancelled() {
				return models.NewInvalidDataCode(models.CodeBookingCancelled, "booking %s is cancelled", b.Reference)
			}
			moving = append(moving, b)
		}

		visibility := source.Visibility
		if req.Visibility != nil {
			visibility = *req.Visibility
		}
		note := "Split into a new departure"
		if req.Note != "" {
			note += ": " + req.Note
		}

		result, err = s.split(ctx, tx, source, moving, visibility, req.MaxCapacity, note, actor)
		if err != nil {
			return err
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditDepartureSplit,
			EntityType: "departure",
			EntityID:   source.ID,
			Details: models.AuditDetails{
				"new_departure_id": result.Created.ID,
				"moved_bookings":   result.MovedCount,
				"moved_pax":        result.MovedPax,
				"source_deleted":   result.SourceGone,
			},
		})
	})
	if err != nil {
		return nil, classify(err, "split departure")
	}
	return result, nil
}

// split validates the move as a whole, then creates the new departure and
// re-points every booking. moving must hold live bookings of source.
func (s *TransferService) split(
	ctx context.Context,
	tx database.Tx,
	source *models.Departure,
	moving []models.Booking,
	visibility models.DepartureVisibility,
	maxCapacity *int,
	note string,
	actor Actor,
) (*models.SplitResult, error) {
	if !source.Status.IsOpen() {
		return nil, models.NewInvalidDataCode(models.CodeDepartureClosed, "departure on %s is %s", source.Date, source.Status)
	}

	movedPax := 0
	for _, b := range moving {
		movedPax += b.Pax
	}

	tour, err := tx.GetTour(ctx, source.TourID)
	if err != nil {
		return nil, notFound(err, "tour", source.TourID)
	}
	capacity := s.departures.DefaultCapacity(tour, visibility)
	if maxCapacity != nil {
		if *maxCapacity < movedPax {
			return nil, models.NewCapacityExceeded("capacity %d cannot hold the %d participants being moved", *maxCapacity, movedPax)
		}
		capacity = *maxCapacity
	} else if capacity < movedPax {
		capacity = movedPax
	}

	created := newDeparture(tour, source.Date, visibility, capacity)
	created.TourName = source.TourName
	created.PricingSnapshot = source.PricingSnapshot
	if err := tx.CreateDeparture(ctx, created); err != nil {
		return nil, fmt.Errorf("create departure: %w", err)
	}

	created, err = s.ledger.Reserve(ctx, tx, created.ID, movedPax)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.AdjustCount(ctx, tx, created.ID, len(moving)); err != nil {
		return nil, err
	}
	source, err = s.ledger.Release(ctx, tx, source.ID, movedPax)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.AdjustCount(ctx, tx, source.ID, -len(moving)); err != nil {
		return nil, err
	}
	created.TotalBookingCount += len(moving)
	source.TotalBookingCount -= len(moving)

	for i := range moving {
		b := &moving[i]
		b.DepartureID = created.ID
		b.IsOriginator = len(moving) == 1
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return nil, fmt.Errorf("update booking %s: %w", b.ID, err)
		}
		if err := appendHistory(ctx, tx, b, b.Status, note, actor); err != nil {
			return nil, err
		}
	}

	gone, err := s.departures.cleanupEmpty(ctx, tx, source.ID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"source_departure_id": source.ID,
		"new_departure_id":    created.ID,
		"moved_bookings":      len(moving),
		"moved_pax":           movedPax,
	}).Info("Departure split")

	return &models.SplitResult{
		Source:     source,
		Created:    created,
		MovedPax:   movedPax,
		MovedCount: len(moving),
		SourceGone: gone,
	}, nil
}

// ConvertBookingVisibility changes the visibility a booking travels with. A
// booking alone on its departure flips the departure in place; a booking
// sharing its departure is split onto a new one.
func (s *TransferService) ConvertBookingVisibility(ctx context.Context, id string, req models.ConvertVisibilityRequest, actor Actor) (*models.Booking, error) {
	if !req.Visibility.Valid() {
		return nil, models.NewInvalidData("visibility must be private or public")
	}

	var booking *models.Booking
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		booking, err = s.lockLiveBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		departure, err := tx.GetDeparture(ctx, booking.DepartureID, true)
		if err != nil {
			return notFound(err, "departure", booking.DepartureID)
		}
		if departure.Visibility == req.Visibility {
			return models.NewInvalidData("departure is already %s", req.Visibility)
		}
		if !departure.Status.IsOpen() {
			return models.NewInvalidDataCode(models.CodeDepartureClosed, "departure on %s is %s", departure.Date, departure.Status)
		}

		all, err := tx.ListDepartureBookings(ctx, departure.ID, true)
		if err != nil {
			return fmt.Errorf("list departure bookings: %w", err)
		}

		note := fmt.Sprintf("Converted to %s", req.Visibility)
		if req.Reason != "" {
			note += ": " + req.Reason
		}

		inPlace := len(all) == 1
		if inPlace {
			tour, err := tx.GetTour(ctx, departure.TourID)
			if err != nil {
				return notFound(err, "tour", departure.TourID)
			}
			capacity := s.departures.DefaultCapacity(tour, req.Visibility)
			if capacity < departure.ReservedSlots {
				capacity = departure.ReservedSlots
			}
			departure.Visibility = req.Visibility
			departure.MaxCapacity = capacity
			departure.Status = models.CapacityStatus(departure.Status, departure.ReservedSlots, capacity)
			if err := tx.UpdateDeparture(ctx, departure); err != nil {
				return fmt.Errorf("update departure: %w", err)
			}
			if err := appendHistory(ctx, tx, booking, booking.Status, note, actor); err != nil {
				return err
			}
		} else {
			result, err := s.split(ctx, tx, departure, []models.Booking{*booking}, req.Visibility, nil, note, actor)
			if err != nil {
				return err
			}
			if booking, err = tx.GetBooking(ctx, booking.ID, false); err != nil {
				return notFound(err, "booking", id)
			}
			departure = result.Created
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditBookingConverted,
			EntityType: "booking",
			EntityID:   booking.ID,
			Details: models.AuditDetails{
				"visibility":   req.Visibility,
				"in_place":     inPlace,
				"departure_id": departure.ID,
			},
		})
	})
	if err != nil {
		return nil, classify(err, "convert booking visibility")
	}

	s.bookings.publish(ctx, EventBookingMoved, booking)
	return booking, nil
}

// lockLiveBooking loads a booking for update and rejects cancelled ones
func (s *TransferService) lockLiveBooking(ctx context.Context, tx database.Tx, id string) (*models.Booking, error) {
	booking, err := tx.GetBooking(ctx, id, true)
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	if booking.Status.IsCancelled() {
		return nil, models.NewInvalidDataCode(models.CodeBookingCancelled, "booking %s is cancelled", booking.Reference)
	}
	return booking, nil
}
