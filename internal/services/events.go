package services

import (
	"context"
	"time"

	"github.com/trekops/booking-backend/internal/models"
)

// Booking event routing keys
const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingMoved         = "booking.moved"
)

// EventPublisher delivers domain events after a transaction commits.
// Implemented by pkg/mq.Publisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// NoopPublisher discards events
type NoopPublisher struct{}

// PublishJSON implements EventPublisher
func (NoopPublisher) PublishJSON(context.Context, string, any) error { return nil }

// BookingEvent is the payload of booking events
type BookingEvent struct {
	BookingID     string               `json:"booking_id"`
	Reference     string               `json:"reference"`
	TourID        string               `json:"tour_id"`
	DepartureID   string               `json:"departure_id"`
	DepartureDate models.Date          `json:"departure_date"`
	Pax           int                  `json:"pax"`
	Status        models.BookingStatus `json:"status"`
	Source        models.BookingSource `json:"source"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func newBookingEvent(b *models.Booking) BookingEvent {
	return BookingEvent{
		BookingID:     b.ID,
		Reference:     b.Reference,
		TourID:        b.TourID,
		DepartureID:   b.DepartureID,
		DepartureDate: b.DepartureDate,
		Pax:           b.Pax,
		Status:        b.Status,
		Source:        b.Source,
		OccurredAt:    time.Now().UTC(),
	}
}
