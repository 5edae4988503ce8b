package database

import (
	"context"
	"errors"

	"github.com/trekops/booking-backend/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConditionFailed is returned when a guarded update matched no row
	ErrConditionFailed = errors.New("update condition not met")

	// ErrDuplicate is returned on a unique constraint violation
	ErrDuplicate = errors.New("duplicate record")

	// ErrDuplicateReference is returned when a generated booking reference collides
	ErrDuplicateReference = errors.New("duplicate booking reference")

	// ErrTxRetriesExhausted is returned when a transaction kept conflicting
	ErrTxRetriesExhausted = errors.New("transaction retries exhausted")
)

// Store runs units of work against the booking data
type Store interface {
	// WithTx runs fn in a serializable transaction, retrying on conflicts.
	// fn may run more than once and must not have side effects outside tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn for reads only; writes made through tx are not persisted.
	View(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of operations available inside a unit of work
type Tx interface {
	TourRepository
	DepartureRepository
	BookingRepository
	AuditRepository
}

// TourRepository handles tour persistence
type TourRepository interface {
	GetTour(ctx context.Context, id string) (*models.Tour, error)
	ListTours(ctx context.Context, activeOnly bool) ([]models.Tour, error)
	CreateTour(ctx context.Context, tour *models.Tour) error
	UpdateTour(ctx context.Context, tour *models.Tour) error
}

// DepartureRepository handles departure persistence and the capacity counters
type DepartureRepository interface {
	// GetDeparture loads a departure, locking the row when forUpdate is set
	GetDeparture(ctx context.Context, id string, forUpdate bool) (*models.Departure, error)

	// FindJoinableDeparture returns the earliest created open public departure
	// of the tour on date with room for pax, or ErrNotFound
	FindJoinableDeparture(ctx context.Context, tourID string, date models.Date, pax int) (*models.Departure, error)

	ListDepartures(ctx context.Context, filter models.DepartureFilter) ([]models.Departure, error)
	CreateDeparture(ctx context.Context, departure *models.Departure) error

	// UpdateDeparture writes the non-ledger fields of a departure
	UpdateDeparture(ctx context.Context, departure *models.Departure) error

	// AdjustReservedSlots applies delta to reserved_slots only while
	// 0 <= reserved_slots+delta <= max_capacity and, for positive deltas,
	// the departure is open. Returns ErrConditionFailed when the guard fails.
	AdjustReservedSlots(ctx context.Context, id string, delta int) (*models.Departure, error)

	AdjustBookingCount(ctx context.Context, id string, delta int) error
	DeleteDeparture(ctx context.Context, id string) error

	// CompleteDeparturesBefore marks open departures dated before day as completed
	CompleteDeparturesBefore(ctx context.Context, day models.Date) (int64, error)
}

// BookingRepository handles booking persistence and history
type BookingRepository interface {
	GetBooking(ctx context.Context, id string, forUpdate bool) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)

	// ListDepartureBookings returns every booking on a departure, any status
	ListDepartureBookings(ctx context.Context, departureID string, forUpdate bool) ([]models.Booking, error)

	CreateBooking(ctx context.Context, booking *models.Booking) error
	UpdateBooking(ctx context.Context, booking *models.Booking) error

	// AppendStatusHistory inserts a history entry; entries are never updated
	AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
}

// AuditRepository stores audit events
type AuditRepository interface {
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
}
