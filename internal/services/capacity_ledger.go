package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/models"
)

// CapacityLedger is the only writer of a departure's reserved slots and
// booking count. Every call runs inside the caller's transaction.
type CapacityLedger struct {
	logger *logrus.Logger
}

// NewCapacityLedger creates a new capacity ledger
func NewCapacityLedger(logger *logrus.Logger) *CapacityLedger {
	return &CapacityLedger{logger: logger}
}

// Reserve applies delta to the departure's reserved slots as one conditional
// update. Positive deltas need an open departure with room; negative deltas
// may never take the counter below zero.
func (l *CapacityLedger) Reserve(ctx context.Context, tx database.Tx, departureID string, delta int) (*models.Departure, error) {
	if delta == 0 {
		departure, err := tx.GetDeparture(ctx, departureID, false)
		if err != nil {
			return nil, notFound(err, "departure", departureID)
		}
		return departure, nil
	}

	departure, err := tx.AdjustReservedSlots(ctx, departureID, delta)
	if err == nil {
		l.logger.WithFields(logrus.Fields{
			"departure_id":   departureID,
			"delta":          delta,
			"reserved_slots": departure.ReservedSlots,
			"max_capacity":   departure.MaxCapacity,
			"status":         departure.Status,
		}).Debug("Capacity adjusted")
		return departure, nil
	}
	if !errors.Is(err, database.ErrConditionFailed) {
		return nil, fmt.Errorf("adjust reserved slots on %s: %w", departureID, err)
	}

	// The guard failed; read the row to say why.
	current, getErr := tx.GetDeparture(ctx, departureID, false)
	if getErr != nil {
		if errors.Is(getErr, database.ErrNotFound) {
			if delta > 0 {
				return nil, models.NewInvalidDataCode(models.CodeDepartureClosed, "departure %s no longer exists", departureID)
			}
			return nil, models.NewNotFound("departure", departureID)
		}
		return nil, fmt.Errorf("load departure %s: %w", departureID, getErr)
	}

	if delta > 0 {
		if !current.Status.IsOpen() {
			return nil, models.NewInvalidDataCode(models.CodeDepartureClosed,
				"departure on %s is %s", current.Date, current.Status)
		}
		return nil, models.NewCapacityExceeded("only %d of %d places left on departure %s, %d requested",
			current.AvailableSlots(), current.MaxCapacity, current.Date, delta)
	}

	return nil, models.NewInternal("capacity ledger underflow",
		fmt.Errorf("departure %s: releasing %d with %d reserved", departureID, -delta, current.ReservedSlots))
}

// Release returns pax to the departure
func (l *CapacityLedger) Release(ctx context.Context, tx database.Tx, departureID string, pax int) (*models.Departure, error) {
	return l.Reserve(ctx, tx, departureID, -pax)
}

// AdjustCount moves the departure's live booking count
func (l *CapacityLedger) AdjustCount(ctx context.Context, tx database.Tx, departureID string, delta int) error {
	if delta == 0 {
		return nil
	}
	err := tx.AdjustBookingCount(ctx, departureID, delta)
	if errors.Is(err, database.ErrConditionFailed) {
		return models.NewInternal("booking count underflow",
			fmt.Errorf("departure %s: count delta %d", departureID, delta))
	}
	if err != nil {
		return fmt.Errorf("adjust booking count on %s: %w", departureID, err)
	}
	return nil
}

// Move transfers pax and one booking count from one departure to another.
// The target is reserved first so a full target leaves the source untouched.
func (l *CapacityLedger) Move(ctx context.Context, tx database.Tx, fromID, toID string, pax int) (*models.Departure, error) {
	target, err := l.Reserve(ctx, tx, toID, pax)
	if err != nil {
		return nil, err
	}
	if err := l.AdjustCount(ctx, tx, toID, 1); err != nil {
		return nil, err
	}
	if _, err := l.Release(ctx, tx, fromID, pax); err != nil {
		return nil, err
	}
	if err := l.AdjustCount(ctx, tx, fromID, -1); err != nil {
		return nil, err
	}
	return target, nil
}
