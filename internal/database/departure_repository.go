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

const departureColumns = `id, tour_id, tour_name, departure_date, visibility, status, max_capacity,
	reserved_slots, pricing_snapshot, total_booking_count, created_at, updated_at`

// GetDeparture retrieves a departure by ID
func (t *pgTx) GetDeparture(ctx context.Context, id string, forUpdate bool) (*models.Departure, error) {
	query := `SELECT ` + departureColumns + ` FROM departures WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var departure models.Departure
	if err := t.q.GetContext(ctx, &departure, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get departure: %w", err)
	}
	return &departure, nil
}

// FindJoinableDeparture finds the earliest created public departure with room
func (t *pgTx) FindJoinableDeparture(ctx context.Context, tourID string, date models.Date, pax int) (*models.Departure, error) {
	query := `
		SELECT ` + departureColumns + `
		FROM departures
		WHERE tour_id = $1
		  AND departure_date = $2
		  AND visibility = 'public'
		  AND status = 'active'
		  AND max_capacity - reserved_slots >= $3
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE
	`

	var departure models.Departure
	if err := t.q.GetContext(ctx, &departure, query, tourID, date, pax); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find joinable departure: %w", err)
	}
	return &departure, nil
}

// ListDepartures lists departures matching the filter ordered by date
func (t *pgTx) ListDepartures(ctx context.Context, filter models.DepartureFilter) ([]models.Departure, error) {
	conditions := []string{}
	args := []interface{}{}

	addCondition := func(format string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if filter.TourID != "" {
		addCondition("tour_id = $%d", filter.TourID)
	}
	if filter.From != nil {
		addCondition("departure_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		addCondition("departure_date <= $%d", *filter.To)
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		addCondition("status = ANY($%d)", pq.Array(statuses))
	}
	if filter.Visibility != "" {
		addCondition("visibility = $%d", string(filter.Visibility))
	}

	query := `SELECT ` + departureColumns + ` FROM departures`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY departure_date ASC, created_at ASC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	departures := []models.Departure{}
	if err := t.q.SelectContext(ctx, &departures, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list departures: %w", err)
	}
	return departures, nil
}

// CreateDeparture inserts a departure
func (t *pgTx) CreateDeparture(ctx context.Context, departure *models.Departure) error {
	query := `
		INSERT INTO departures (
			id, tour_id, tour_name, departure_date, visibility, status, max_capacity,
			reserved_slots, pricing_snapshot, total_booking_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := t.q.QueryRowxContext(ctx, query,
		departure.ID, departure.TourID, departure.TourName, departure.Date,
		departure.Visibility, departure.Status, departure.MaxCapacity,
		departure.ReservedSlots, departure.PricingSnapshot, departure.TotalBookingCount,
	).Scan(&departure.CreatedAt, &departure.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create departure: %w", err)
	}
	return nil
}

// UpdateDeparture writes the non-ledger fields of a departure
func (t *pgTx) UpdateDeparture(ctx context.Context, departure *models.Departure) error {
	query := `
		UPDATE departures
		SET tour_id = $2, tour_name = $3, departure_date = $4, visibility = $5,
			status = $6, max_capacity = $7, pricing_snapshot = $8, updated_at = NOW()
		WHERE id = $1 AND reserved_slots <= $7
		RETURNING updated_at
	`

	err := t.q.QueryRowxContext(ctx, query,
		departure.ID, departure.TourID, departure.TourName, departure.Date,
		departure.Visibility, departure.Status, departure.MaxCapacity, departure.PricingSnapshot,
	).Scan(&departure.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConditionFailed
		}
		return fmt.Errorf("failed to update departure: %w", err)
	}
	return nil
}

// AdjustReservedSlots applies a bounded delta in a single conditional update.
// The same statement flips open departures between active and full.
func (t *pgTx) AdjustReservedSlots(ctx context.Context, id string, delta int) (*models.Departure, error) {
	query := `
		UPDATE departures
		SET reserved_slots = reserved_slots + $2,
			status = CASE
				WHEN status IN ('active', 'full') AND reserved_slots + $2 >= max_capacity THEN 'full'
				WHEN status IN ('active', 'full') THEN 'active'
				ELSE status
			END,
			updated_at = NOW()
		WHERE id = $1
		  AND reserved_slots + $2 >= 0
		  AND reserved_slots + $2 <= max_capacity
		  AND ($2 <= 0 OR status IN ('active', 'full'))
		RETURNING ` + departureColumns

	var departure models.Departure
	if err := t.q.GetContext(ctx, &departure, query, id, delta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("failed to adjust reserved slots: %w", err)
	}
	return &departure, nil
}

// AdjustBookingCount applies a delta to the live booking counter
func (t *pgTx) AdjustBookingCount(ctx context.Context, id string, delta int) error {
	query := `
		UPDATE departures
		SET total_booking_count = total_booking_count + $2, updated_at = NOW()
		WHERE id = $1 AND total_booking_count + $2 >= 0
	`

	result, err := t.q.ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust booking count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

// DeleteDeparture removes a departure that holds no reserved slots
func (t *pgTx) DeleteDeparture(ctx context.Context, id string) error {
	result, err := t.q.ExecContext(ctx, `DELETE FROM departures WHERE id = $1 AND reserved_slots = 0`, id)
	if err != nil {
		return fmt.Errorf("failed to delete departure: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

// CompleteDeparturesBefore closes open departures whose date has passed
func (t *pgTx) CompleteDeparturesBefore(ctx context.Context, day models.Date) (int64, error) {
	query := `
		UPDATE departures
		SET status = 'completed', updated_at = NOW()
		WHERE departure_date < $1 AND status IN ('active', 'full')
	`

	result, err := t.q.ExecContext(ctx, query, day)
	if err != nil {
		return 0, fmt.Errorf("failed to complete departures: %w", err)
	}
	return result.RowsAffected()
}
