package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/internal/utils"
)

// Audit actions
const (
	AuditBookingCreated       = "booking_created"
	AuditBookingStatusChanged = "booking_status_changed"
	AuditBookingReinstated    = "booking_reinstated"
	AuditBookingUpdated       = "booking_updated"
	AuditBookingTransferred   = "booking_transferred"
	AuditBookingTourTransfer  = "booking_transferred_to_tour"
	AuditBookingConverted     = "booking_visibility_converted"
	AuditDepartureCreated     = "departure_created"
	AuditDepartureUpdated     = "departure_updated"
	AuditDepartureSplit       = "departure_split"
	AuditDepartureDeleted     = "departure_deleted"
	AuditDepartureRepriced    = "departure_repriced"
	AuditLedgerRepaired       = "ledger_repaired"
	AuditTourCreated          = "tour_created"
	AuditTourUpdated          = "tour_updated"
	AuditAdminLogin           = "admin_login"
	AuditRateLimitViolation   = "rate_limit_violation"
)

// AuditService handles audit logging for operator and security events
type AuditService struct {
	store  database.Store
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store database.Store, logger *logrus.Logger) *AuditService {
	return &AuditService{
		store:  store,
		logger: logger,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	Action     string
	EntityType string // tour, departure, booking, rate_limit, session
	EntityID   string
	Details    models.AuditDetails
}

// RecordTx writes the event inside an existing unit of work so it commits
// or rolls back together with the change it describes
func (s *AuditService) RecordTx(ctx context.Context, tx database.Tx, actor Actor, event AuditEvent) error {
	return tx.InsertAuditLog(ctx, s.entry(actor, event))
}

// Record writes the event in its own transaction. Failures are logged, not returned
// to the caller's request, since the audited action already happened.
func (s *AuditService) Record(ctx context.Context, actor Actor, event AuditEvent) {
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		return tx.InsertAuditLog(ctx, s.entry(actor, event))
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":    event.Action,
			"entity_id": event.EntityID,
		}).Error("Failed to write audit log")
	}
}

// LogRateLimitViolation logs a blocked public booking attempt
func (s *AuditService) LogRateLimitViolation(ctx context.Context, actor Actor, limitErr *RateLimitError) {
	s.Record(ctx, actor, AuditEvent{
		Action:     AuditRateLimitViolation,
		EntityType: "rate_limit",
		EntityID:   actor.IPAddress,
		Details: models.AuditDetails{
			"limit_type":  limitErr.Type,
			"retry_after": limitErr.RetryAfter.UTC().Format(time.RFC3339),
		},
	})
}

// LogAdminLogin logs an admin session exchange attempt
func (s *AuditService) LogAdminLogin(ctx context.Context, actor Actor, success bool) {
	s.Record(ctx, actor, AuditEvent{
		Action:     AuditAdminLogin,
		EntityType: "session",
		Details:    models.AuditDetails{"success": success},
	})
}

func (s *AuditService) entry(actor Actor, event AuditEvent) *models.AuditLog {
	details := models.AuditDetails{}
	for k, v := range event.Details {
		details[k] = v
	}
	if actor.UserAgent != "" {
		details["device_info"] = utils.ParseUserAgent(actor.UserAgent)
	}

	return &models.AuditLog{
		Actor:      actor.Name,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		Details:    details,
	}
}
