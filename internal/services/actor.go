package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/models"
)

// Actor identifies who performed an operation, for history and audit entries
type Actor struct {
	Name      string
	IPAddress string
	UserAgent string
}

const (
	actorAdmin    = "admin"
	actorCustomer = "customer"
	actorSystem   = "system"
)

// AdminActor is the shared-secret administrator
func AdminActor(ip, userAgent string) Actor {
	return Actor{Name: actorAdmin, IPAddress: ip, UserAgent: userAgent}
}

// CustomerActor is an anonymous public client
func CustomerActor(ip, userAgent string) Actor {
	return Actor{Name: actorCustomer, IPAddress: ip, UserAgent: userAgent}
}

// SystemActor is used by scheduled jobs and CLIs
func SystemActor() Actor {
	return Actor{Name: actorSystem}
}

// classify turns whatever a unit of work returned into an *models.AppError.
// Domain errors pass through; anything else becomes Internal.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := models.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewInternal(op+": request timed out", err)
	}
	if errors.Is(err, database.ErrTxRetriesExhausted) {
		return models.NewInternal(op+": too much contention, please retry", err)
	}
	return models.NewInternal(op+" failed", err)
}

// notFound maps database.ErrNotFound to a NotFound error and wraps anything else
func notFound(err error, entity, id string) error {
	if errors.Is(err, database.ErrNotFound) {
		return models.NewNotFound(entity, id)
	}
	return fmt.Errorf("load %s %s: %w", entity, id, err)
}
