package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/pkg/validator"
)

// BookingService implements the booking lifecycle: creation, joins, status
// transitions, reinstatement and detail edits. Capacity always moves through
// the ledger inside the same transaction as the booking write.
type BookingService struct {
	store       database.Store
	departures  *DepartureService
	ledger      *CapacityLedger
	pricing     *PricingService
	rateLimiter *RateLimitService
	audit       *AuditService
	events      EventPublisher
	validator   *validator.Validator
	phone       *validator.PhoneValidator
	loc         *time.Location
	logger      *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	store database.Store,
	departures *DepartureService,
	ledger *CapacityLedger,
	pricing *PricingService,
	rateLimiter *RateLimitService,
	audit *AuditService,
	events EventPublisher,
	v *validator.Validator,
	logger *logrus.Logger,
) *BookingService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &BookingService{
		store:       store,
		departures:  departures,
		ledger:      ledger,
		pricing:     pricing,
		rateLimiter: rateLimiter,
		audit:       audit,
		events:      events,
		validator:   v,
		phone:       validator.NewPhoneValidator(),
		loc:         departures.loc,
		logger:      logger,
	}
}

// placement describes a new booking on a resolved departure
type placement struct {
	Departure     *models.Departure
	Created       bool
	Pax           int
	Customer      models.CustomerInfo
	Status        models.BookingStatus
	Source        models.BookingSource
	ClientAddress string
	PriceOverride *float64
	Notes         string
	TransferInfo  *models.TransferInfo
	HistoryNote   string
}

// CreateBooking handles a public booking request
func (s *BookingService) CreateBooking(ctx context.Context, req models.CreateBookingRequest, actor Actor) (*models.Booking, error) {
	date, err := s.validateNewBooking(&req.Customer, req.Pax, req.Date, true)
	if err != nil {
		return nil, err
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPrivate
	}
	if !req.Visibility.Valid() {
		return nil, models.NewInvalidData("visibility must be private or public")
	}
	if err := s.checkRateLimit(ctx, actor); err != nil {
		return nil, err
	}

	var booking *models.Booking
	err = s.store.WithTx(ctx, func(tx database.Tx) error {
		tour, err := tx.GetTour(ctx, req.TourID)
		if err != nil {
			return notFound(err, "tour", req.TourID)
		}
		if !tour.IsActive {
			return models.NewInvalidDataCode(models.CodeTourInactive, "tour %s is not available for booking", tour.Name)
		}

		departure, created, err := s.departures.ResolveOrCreateDeparture(ctx, tx, tour, date, req.Visibility, req.Pax, req.CreateNew)
		if err != nil {
			return err
		}

		booking, err = s.placeBooking(ctx, tx, placement{
			Departure:     departure,
			Created:       created,
			Pax:           req.Pax,
			Customer:      req.Customer,
			Status:        models.BookingStatusPending,
			Source:        models.BookingSourcePublic,
			ClientAddress: actor.IPAddress,
			HistoryNote:   "Booking created",
		}, actor)
		return err
	})
	if err != nil {
		return nil, classify(err, "create booking")
	}

	s.afterPublicBooking(ctx, actor, booking)
	return booking, nil
}

// JoinDeparture books pax onto an existing public departure
func (s *BookingService) JoinDeparture(ctx context.Context, req models.JoinDepartureRequest, actor Actor) (*models.Booking, error) {
	if _, err := s.validateNewBooking(&req.Customer, req.Pax, "", true); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, actor); err != nil {
		return nil, err
	}

	var booking *models.Booking
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		departure, err := tx.GetDeparture(ctx, req.DepartureID, true)
		if err != nil {
			return notFound(err, "departure", req.DepartureID)
		}
		if departure.Visibility != models.VisibilityPublic {
			return models.NewInvalidData("departure %s is private and cannot be joined", departure.ID)
		}
		if !departure.Status.IsOpen() || departure.Date.Before(models.Today(s.loc).Time) {
			return models.NewInvalidDataCode(models.CodeDepartureClosed, "departure on %s is no longer open", departure.Date)
		}
		tour, err := tx.GetTour(ctx, departure.TourID)
		if err != nil {
			return notFound(err, "tour", departure.TourID)
		}
		if !tour.IsActive {
			return models.NewInvalidDataCode(models.CodeTourInactive, "tour %s is not available for booking", tour.Name)
		}

		booking, err = s.placeBooking(ctx, tx, placement{
			Departure:     departure,
			Pax:           req.Pax,
			Customer:      req.Customer,
			Status:        models.BookingStatusPending,
			Source:        models.BookingSourcePublic,
			ClientAddress: actor.IPAddress,
			HistoryNote:   "Joined public departure",
		}, actor)
		return err
	})
	if err != nil {
		return nil, classify(err, "join departure")
	}

	s.afterPublicBooking(ctx, actor, booking)
	return booking, nil
}

// AdminCreateBooking creates a booking without throttling. The admin may
// target an explicit departure, choose the initial live status and override
// the per-person price.
func (s *BookingService) AdminCreateBooking(ctx context.Context, req models.AdminCreateBookingRequest, actor Actor) (*models.Booking, error) {
	if req.DepartureID == "" && (req.TourID == "" || req.Date == "") {
		return nil, models.NewInvalidData("either departure_id or tour_id and date are required")
	}
	if _, err := s.validateNewBooking(&req.Customer, req.Pax, "", false); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.BookingStatusPending
	}
	if !status.Valid() || status.IsCancelled() {
		return nil, models.NewInvalidData("initial status must be pending, confirmed or paid")
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
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
		var (
			departure *models.Departure
			created   bool
			err       error
		)
		if req.DepartureID != "" {
			departure, err = tx.GetDeparture(ctx, req.DepartureID, true)
			if err != nil {
				return notFound(err, "departure", req.DepartureID)
			}
			if req.TourID != "" && req.TourID != departure.TourID {
				return models.NewInvalidDataCode(models.CodeTourMismatch,
					"departure %s belongs to another tour", departure.ID)
			}
		} else {
			tour, err := tx.GetTour(ctx, req.TourID)
			if err != nil {
				return notFound(err, "tour", req.TourID)
			}
			departure, created, err = s.departures.ResolveOrCreateDeparture(ctx, tx, tour, date, visibility, req.Pax, req.CreateNew)
			if err != nil {
				return err
			}
		}

		booking, err = s.placeBooking(ctx, tx, placement{
			Departure:     departure,
			Created:       created,
			Pax:           req.Pax,
			Customer:      req.Customer,
			Status:        status,
			Source:        models.BookingSourceAdmin,
			ClientAddress: actor.IPAddress,
			PriceOverride: req.PricePerPerson,
			Notes:         req.Notes,
			HistoryNote:   "Booking created by admin",
		}, actor)
		return err
	})
	if err != nil {
		return nil, classify(err, "create booking")
	}

	s.publish(ctx, EventBookingCreated, booking)
	return booking, nil
}

// placeBooking prices, reserves and writes a new booking on p.Departure.
// It must run inside a transaction.
func (s *BookingService) placeBooking(ctx context.Context, tx database.Tx, p placement, actor Actor) (*models.Booking, error) {
	quote, err := s.pricing.Quote(p.Departure.PricingSnapshot, p.Pax, p.PriceOverride)
	if err != nil {
		return nil, err
	}

	departure, err := s.ledger.Reserve(ctx, tx, p.Departure.ID, p.Pax)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.AdjustCount(ctx, tx, departure.ID, 1); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:            uuid.NewString(),
		Reference:     models.GenerateBookingReference(time.Now()),
		DepartureID:   departure.ID,
		TourID:        departure.TourID,
		TourName:      departure.TourName,
		DepartureDate: departure.Date,
		Customer:      p.Customer,
		Pax:           p.Pax,
		Status:        p.Status,
		IsOriginator:  p.Created,
		ClientAddress: p.ClientAddress,
		Source:        p.Source,
		TransferInfo:  p.TransferInfo,
		Notes:         p.Notes,
	}
	booking.ApplyQuote(quote)

	if err := tx.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	if err := appendHistory(ctx, tx, booking, booking.Status, p.HistoryNote, actor); err != nil {
		return nil, err
	}
	if err := s.audit.RecordTx(ctx, tx, actor, AuditEvent{
		Action:     AuditBookingCreated,
		EntityType: "booking",
		EntityID:   booking.ID,
		Details: models.AuditDetails{
			"reference":    booking.Reference,
			"departure_id": booking.DepartureID,
			"pax":          booking.Pax,
			"status":       booking.Status,
		},
	}); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"reference":      booking.Reference,
		"departure_id":   departure.ID,
		"pax":            booking.Pax,
		"reserved_slots": departure.ReservedSlots,
	}).Info("Booking placed")

	return booking, nil
}

// UpdateStatus applies a status transition. Entering a cancelled state
// releases the booking's pax; leaving one requires Reinstate.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, req models.UpdateBookingStatusRequest, actor Actor) (*models.Booking, error) {
	if !req.Status.Valid() {
		return nil, models.NewInvalidData("unknown status %q", req.Status)
	}

	var booking *models.Booking
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		booking, err = tx.GetBooking(ctx, id, true)
		if err != nil {
			return notFound(err, "booking", id)
		}

		from, to := booking.Status, req.Status
		if err := checkTransition(from, to); err != nil {
			return err
		}

		if to.IsCancelled() && !from.IsCancelled() {
			if _, err := s.ledger.Release(ctx, tx, booking.DepartureID, booking.Pax); err != nil {
				return err
			}
			if err := s.ledger.AdjustCount(ctx, tx, booking.DepartureID, -1); err != nil {
				return err
			}
		}

		booking.Status = to
		if err := tx.UpdateBooking(ctx, booking); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if err := appendHistory(ctx, tx, booking, to, req.Reason, actor); err != nil {
			return err
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditBookingStatusChanged,
			EntityType: "booking",
			EntityID:   booking.ID,
			Details:    models.AuditDetails{"from": from, "to": to, "reason": req.Reason},
		})
	})
	if err != nil {
		return nil, classify(err, "update booking status")
	}

	s.publish(ctx, EventBookingStatusChanged, booking)
	return booking, nil
}

// checkTransition validates a status change handled by UpdateStatus
func checkTransition(from, to models.BookingStatus) error {
	if from == to {
		return models.NewInvalidDataCode(models.CodeInvalidStatusTransition, "booking is already %s", from)
	}

	allowed := false
	switch from {
	case models.BookingStatusPending:
		allowed = true
	case models.BookingStatusConfirmed:
		allowed = to == models.BookingStatusPaid || to.IsCancelled()
	case models.BookingStatusPaid:
		allowed = to == models.BookingStatusConfirmed || to.IsCancelled()
	case models.BookingStatusCancelled, models.BookingStatusCancelledByAdmin:
		if !to.IsCancelled() {
			return models.NewInvalidDataCode(models.CodeInvalidStatusTransition,
				"booking is %s; use reinstate to bring it back", from)
		}
		allowed = true
	}
	if !allowed {
		return models.NewInvalidDataCode(models.CodeInvalidStatusTransition,
			"cannot change status from %s to %s", from, to)
	}
	return nil
}

// Reinstate brings a cancelled booking back onto its departure, re-checking capacity
func (s *BookingService) Reinstate(ctx context.Context, id string, req models.ReinstateBookingRequest, actor Actor) (*models.Booking, error) {
	target := req.Status
	if target == "" {
		target = models.BookingStatusPending
	}
	if target != models.BookingStatusPending && target != models.BookingStatusConfirmed {
		return nil, models.NewInvalidDataCode(models.CodeInvalidStatusTransition,
			"a booking can only be reinstated as pending or confirmed")
	}

	var booking *models.Booking
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		booking, err = tx.GetBooking(ctx, id, true)
		if err != nil {
			return notFound(err, "booking", id)
		}
		if !booking.Status.IsCancelled() {
			return models.NewInvalidDataCode(models.CodeInvalidStatusTransition,
				"only cancelled bookings can be reinstated (booking is %s)", booking.Status)
		}

		if _, err := s.ledger.Reserve(ctx, tx, booking.DepartureID, booking.Pax); err != nil {
			return err
		}
		if err := s.ledger.AdjustCount(ctx, tx, booking.DepartureID, 1); err != nil {
			return err
		}

		from := booking.Status
		booking.Status = target
		if err := tx.UpdateBooking(ctx, booking); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		note := "Reinstated"
		if req.Reason != "" {
			note += ": " + req.Reason
		}
		if err := appendHistory(ctx, tx, booking, target, note, actor); err != nil {
			return err
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditBookingReinstated,
			EntityType: "booking",
			EntityID:   booking.ID,
			Details:    models.AuditDetails{"from": from, "to": target, "reason": req.Reason},
		})
	})
	if err != nil {
		return nil, classify(err, "reinstate booking")
	}

	s.publish(ctx, EventBookingStatusChanged, booking)
	return booking, nil
}

// UpdateDetails applies a partial edit. Tour or date changes move the
// booking to a resolved departure of the same visibility; pax changes
// reserve the difference; prices are re-resolved unless overridden.
func (s *BookingService) UpdateDetails(ctx context.Context, id string, req models.UpdateBookingDetailsRequest, actor Actor) (*models.Booking, error) {
	if req.Customer != nil {
		if err := s.normalizeCustomer(req.Customer); err != nil {
			return nil, err
		}
	}
	if req.Pax != nil && *req.Pax < 1 {
		return nil, models.NewInvalidData("pax must be at least 1")
	}
	var newDate *models.Date
	if req.Date != nil {
		d, err := models.ParseDate(*req.Date)
		if err != nil {
			return nil, models.NewInvalidData("%v", err)
		}
		newDate = &d
	}

	var (
		booking *models.Booking
		moved   bool
	)
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		booking, err = tx.GetBooking(ctx, id, true)
		if err != nil {
			return notFound(err, "booking", id)
		}

		ledgerEdit := req.Pax != nil || req.TourID != nil || req.Date != nil || req.PricePerPerson != nil
		if booking.Status.IsCancelled() && ledgerEdit {
			return models.NewInvalidDataCode(models.CodeBookingCancelled,
				"cancelled bookings only accept customer and notes changes")
		}

		changes := []string{}
		if req.Customer != nil {
			booking.Customer = *req.Customer
			changes = append(changes, "customer")
		}
		if req.Notes != nil {
			booking.Notes = *req.Notes
			changes = append(changes, "notes")
		}

		targetTourID := booking.TourID
		if req.TourID != nil {
			targetTourID = *req.TourID
		}
		targetDate := booking.DepartureDate
		if newDate != nil {
			targetDate = *newDate
		}
		newPax := booking.Pax
		if req.Pax != nil {
			newPax = *req.Pax
		}
		moved = targetTourID != booking.TourID || !targetDate.Equal(booking.DepartureDate)

		var departure *models.Departure
		sourceID := booking.DepartureID
		switch {
		case moved:
			current, err := tx.GetDeparture(ctx, sourceID, true)
			if err != nil {
				return notFound(err, "departure", sourceID)
			}
			tour, err := tx.GetTour(ctx, targetTourID)
			if err != nil {
				return notFound(err, "tour", targetTourID)
			}
			target, created, err := s.departures.ResolveOrCreateDeparture(ctx, tx, tour, targetDate, current.Visibility, newPax, false)
			if err != nil {
				return err
			}
			if departure, err = s.moveCapacity(ctx, tx, booking, target, newPax); err != nil {
				return err
			}
			booking.IsOriginator = created
			changes = append(changes, fmt.Sprintf("moved to %s on %s", tour.Name, targetDate))
		case newPax != booking.Pax:
			if departure, err = s.ledger.Reserve(ctx, tx, sourceID, newPax-booking.Pax); err != nil {
				return err
			}
			changes = append(changes, fmt.Sprintf("pax %d -> %d", booking.Pax, newPax))
		case req.PricePerPerson != nil:
			if departure, err = tx.GetDeparture(ctx, sourceID, false); err != nil {
				return notFound(err, "departure", sourceID)
			}
		}
		booking.Pax = newPax

		if departure != nil {
			quote, err := s.pricing.Quote(departure.PricingSnapshot, newPax, req.PricePerPerson)
			if err != nil {
				return err
			}
			booking.ApplyQuote(quote)
			if req.PricePerPerson != nil {
				changes = append(changes, "price override")
			}
		}

		if len(changes) == 0 {
			return models.NewInvalidData("no changes requested")
		}

		if err := tx.UpdateBooking(ctx, booking); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		note := "Updated: " + strings.Join(changes, ", ")
		if req.Reason != "" {
			note += " (" + req.Reason + ")"
		}
		if err := appendHistory(ctx, tx, booking, booking.Status, note, actor); err != nil {
			return err
		}
		if moved {
			if _, err := s.departures.cleanupEmpty(ctx, tx, sourceID); err != nil {
				return err
			}
		}

		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditBookingUpdated,
			EntityType: "booking",
			EntityID:   booking.ID,
			Details:    models.AuditDetails{"changes": changes, "reason": req.Reason},
		})
	})
	if err != nil {
		return nil, classify(err, "update booking")
	}

	if moved {
		s.publish(ctx, EventBookingMoved, booking)
	}
	return booking, nil
}

// moveCapacity reserves newPax on target, releases the booking's current pax
// from its departure and re-points the booking
func (s *BookingService) moveCapacity(ctx context.Context, tx database.Tx, booking *models.Booking, target *models.Departure, newPax int) (*models.Departure, error) {
	if target.ID == booking.DepartureID {
		return nil, models.NewInvalidData("booking is already on departure %s", target.ID)
	}

	if _, err := s.ledger.Move(ctx, tx, booking.DepartureID, target.ID, booking.Pax); err != nil {
		return nil, err
	}
	departure, err := s.ledger.Reserve(ctx, tx, target.ID, newPax-booking.Pax)
	if err != nil {
		return nil, err
	}

	booking.DepartureID = departure.ID
	booking.TourID = departure.TourID
	booking.TourName = departure.TourName
	booking.DepartureDate = departure.Date
	return departure, nil
}

// GetBooking returns a booking with its status history
func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.store.View(ctx, func(tx database.Tx) error {
		var err error
		booking, err = tx.GetBooking(ctx, id, false)
		if err != nil {
			return notFound(err, "booking", id)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "get booking")
	}
	return booking, nil
}

// CheckBooking is the public lookup by reference. When email is given it
// must match the booking's contact email.
func (s *BookingService) CheckBooking(ctx context.Context, reference, email string) (*models.BookingCheckResponse, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return nil, models.NewInvalidData("reference is required")
	}

	var booking *models.Booking
	err := s.store.View(ctx, func(tx database.Tx) error {
		var err error
		booking, err = tx.GetBookingByReference(ctx, reference)
		if err != nil {
			return notFound(err, "booking", reference)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "check booking")
	}

	if email != "" && !strings.EqualFold(strings.TrimSpace(email), booking.Customer.Email) {
		return nil, models.NewNotFound("booking", reference)
	}

	return &models.BookingCheckResponse{
		Reference:     booking.Reference,
		TourName:      booking.TourName,
		DepartureDate: booking.DepartureDate,
		Pax:           booking.Pax,
		Status:        booking.Status,
		TotalPrice:    booking.TotalPrice,
		Currency:      booking.Currency,
		CustomerName:  booking.Customer.Name,
	}, nil
}

// ListBookings returns a filtered page of bookings
func (s *BookingService) ListBookings(ctx context.Context, filter models.BookingFilter) (*models.BookingListResponse, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var (
		bookings []models.Booking
		total    int
	)
	err := s.store.View(ctx, func(tx database.Tx) error {
		var err error
		bookings, total, err = tx.ListBookings(ctx, filter)
		return err
	})
	if err != nil {
		return nil, classify(err, "list bookings")
	}

	return &models.BookingListResponse{
		Bookings: bookings,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

// validateNewBooking checks the shared fields of a booking request and
// normalizes the customer. date is optional; when given it is parsed and,
// for public requests, must not be in the past.
func (s *BookingService) validateNewBooking(customer *models.CustomerInfo, pax int, date string, public bool) (models.Date, error) {
	if pax < 1 {
		return models.Date{}, models.NewInvalidData("pax must be at least 1")
	}
	if err := s.normalizeCustomer(customer); err != nil {
		return models.Date{}, err
	}
	if date == "" {
		return models.Date{}, nil
	}

	day, err := models.ParseDate(date)
	if err != nil {
		return models.Date{}, models.NewInvalidData("%v", err)
	}
	if public && day.Before(models.Today(s.loc).Time) {
		return models.Date{}, models.NewInvalidData("date %s is in the past", day)
	}
	return day, nil
}

func (s *BookingService) normalizeCustomer(customer *models.CustomerInfo) error {
	customer.Name = strings.TrimSpace(customer.Name)
	customer.DocumentID = strings.TrimSpace(customer.DocumentID)
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))

	phone, err := s.phone.Normalize(customer.Phone)
	if err != nil {
		return models.NewInvalidData("customer.phone: %v", err)
	}
	customer.Phone = phone

	if err := s.validator.Struct(customer); err != nil {
		return models.NewInvalidData("invalid customer: %v", err)
	}
	return nil
}

// checkRateLimit consults the limiter for public requests. Store failures
// are logged and let the request through.
func (s *BookingService) checkRateLimit(ctx context.Context, actor Actor) error {
	if s.rateLimiter == nil {
		return nil
	}

	err := s.rateLimiter.Check(ctx, actor.IPAddress)
	if err == nil {
		return nil
	}

	var limitErr *RateLimitError
	if errors.As(err, &limitErr) {
		s.logger.WithFields(logrus.Fields{
			"client_address": actor.IPAddress,
			"limit_type":     limitErr.Type,
			"retry_after":    limitErr.RetryAfter,
		}).Warn("Booking rate limit exceeded")
		s.audit.LogRateLimitViolation(ctx, actor, limitErr)
		return models.NewRateLimited(limitErr.Message, limitErr)
	}

	s.logger.WithError(err).WithField("client_address", actor.IPAddress).
		Error("Rate limit check failed, allowing request")
	return nil
}

func (s *BookingService) afterPublicBooking(ctx context.Context, actor Actor, booking *models.Booking) {
	if s.rateLimiter != nil {
		if err := s.rateLimiter.Record(ctx, actor.IPAddress); err != nil {
			s.logger.WithError(err).WithField("client_address", actor.IPAddress).
				Error("Failed to record booking attempt")
		}
	}
	s.publish(ctx, EventBookingCreated, booking)
}

// publish sends a booking event after commit; delivery failures are logged only
func (s *BookingService) publish(ctx context.Context, key string, booking *models.Booking) {
	if err := s.events.PublishJSON(ctx, key, newBookingEvent(booking)); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":      key,
			"booking_id": booking.ID,
		}).Warn("Failed to publish booking event")
	}
}
