package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/trekops/booking-backend/internal/models"
)

const bookingColumns = `id, reference, departure_id, tour_id, tour_name, departure_date, customer, pax,
	price_per_person, alt_price_per_person, currency, alt_currency, total_price, status,
	is_originator, client_address, source, transfer_info, notes, created_at, updated_at`

const bookingReferenceConstraint = "bookings_reference_key"

// GetBooking retrieves a booking and its status history
func (t *pgTx) GetBooking(ctx context.Context, id string, forUpdate bool) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return t.getBooking(ctx, query, id)
}

// GetBookingByReference retrieves a booking by its public reference
func (t *pgTx) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = $1`
	return t.getBooking(ctx, query, reference)
}

func (t *pgTx) getBooking(ctx context.Context, query string, arg interface{}) (*models.Booking, error) {
	var booking models.Booking
	if err := t.q.GetContext(ctx, &booking, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	history := []models.StatusHistoryEntry{}
	historyQuery := `
		SELECT id, booking_id, status, note, actor, created_at
		FROM booking_status_history
		WHERE booking_id = $1
		ORDER BY created_at ASC, id ASC
	`
	if err := t.q.SelectContext(ctx, &history, historyQuery, booking.ID); err != nil {
		return nil, fmt.Errorf("failed to get booking status history: %w", err)
	}
	booking.StatusHistory = history

	return &booking, nil
}

// ListBookings returns a filtered page of bookings and the total match count
func (t *pgTx) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	conditions := []string{}
	args := []interface{}{}

	addCondition := func(format string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, strings.ReplaceAll(format, "$?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.TourID != "" {
		addCondition("tour_id = $?", filter.TourID)
	}
	if filter.DepartureID != "" {
		addCondition("departure_id = $?", filter.DepartureID)
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		addCondition("status = ANY($?)", pq.Array(statuses))
	}
	if filter.From != nil {
		addCondition("departure_date >= $?", *filter.From)
	}
	if filter.To != nil {
		addCondition("departure_date <= $?", *filter.To)
	}
	if filter.Search != "" {
		addCondition("(reference ILIKE $? OR customer->>'name' ILIKE $? OR customer->>'email' ILIKE $?)",
			"%"+filter.Search+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = ` WHERE ` + strings.Join(conditions, " AND ")
	}

	var total int
	if err := t.q.GetContext(ctx, &total, `SELECT COUNT(*) FROM bookings`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	bookings := []models.Booking{}
	if err := t.q.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}

// ListDepartureBookings returns all bookings referencing a departure
func (t *pgTx) ListDepartureBookings(ctx context.Context, departureID string, forUpdate bool) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE departure_id = $1 ORDER BY created_at ASC`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	bookings := []models.Booking{}
	if err := t.q.SelectContext(ctx, &bookings, query, departureID); err != nil {
		return nil, fmt.Errorf("failed to list departure bookings: %w", err)
	}
	return bookings, nil
}

// CreateBooking inserts a booking
func (t *pgTx) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, reference, departure_id, tour_id, tour_name, departure_date, customer, pax,
			price_per_person, alt_price_per_person, currency, alt_currency, total_price, status,
			is_originator, client_address, source, transfer_info, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := t.q.QueryRowxContext(ctx, query,
		booking.ID, booking.Reference, booking.DepartureID, booking.TourID, booking.TourName,
		booking.DepartureDate, booking.Customer, booking.Pax,
		booking.PricePerPerson, booking.AltPricePerPerson, booking.Currency, booking.AltCurrency,
		booking.TotalPrice, booking.Status, booking.IsOriginator, booking.ClientAddress,
		booking.Source, booking.TransferInfo, booking.Notes,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == bookingReferenceConstraint {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// UpdateBooking writes all mutable booking fields
func (t *pgTx) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET departure_id = $2, tour_id = $3, tour_name = $4, departure_date = $5, customer = $6,
			pax = $7, price_per_person = $8, alt_price_per_person = $9, currency = $10,
			alt_currency = $11, total_price = $12, status = $13, transfer_info = $14, notes = $15,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := t.q.QueryRowxContext(ctx, query,
		booking.ID, booking.DepartureID, booking.TourID, booking.TourName, booking.DepartureDate,
		booking.Customer, booking.Pax, booking.PricePerPerson, booking.AltPricePerPerson,
		booking.Currency, booking.AltCurrency, booking.TotalPrice, booking.Status,
		booking.TransferInfo, booking.Notes,
	).Scan(&booking.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update booking: %w", err)
	}
	return nil
}

// AppendStatusHistory inserts a status history entry
func (t *pgTx) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	query := `
		INSERT INTO booking_status_history (booking_id, status, note, actor, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := t.q.QueryRowxContext(ctx, query, entry.BookingID, entry.Status, entry.Note, entry.Actor).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}
