package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/trekops/booking-backend/internal/models"
)

// pgTx implements Tx over either a transaction or the pool
type pgTx struct {
	q queryer
}

const tourColumns = `id, slug, name, name_alt, description, description_alt, highlights,
	pricing, max_participants, is_active, created_at, updated_at`

// GetTour retrieves a tour by ID
func (t *pgTx) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours WHERE id = $1`

	var tour models.Tour
	if err := t.q.GetContext(ctx, &tour, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	return &tour, nil
}

// ListTours lists tours ordered by name
func (t *pgTx) ListTours(ctx context.Context, activeOnly bool) ([]models.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	tours := []models.Tour{}
	if err := t.q.SelectContext(ctx, &tours, query); err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	return tours, nil
}

// CreateTour inserts a tour
func (t *pgTx) CreateTour(ctx context.Context, tour *models.Tour) error {
	query := `
		INSERT INTO tours (
			id, slug, name, name_alt, description, description_alt, highlights,
			pricing, max_participants, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := t.q.QueryRowxContext(ctx, query,
		tour.ID, tour.Slug, tour.Name, tour.NameAlt, tour.Description, tour.DescriptionAlt,
		tour.Highlights, tour.Pricing, tour.MaxParticipants, tour.IsActive,
	).Scan(&tour.CreatedAt, &tour.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create tour: %w", err)
	}
	return nil
}

// UpdateTour writes all mutable tour fields
func (t *pgTx) UpdateTour(ctx context.Context, tour *models.Tour) error {
	query := `
		UPDATE tours
		SET slug = $2, name = $3, name_alt = $4, description = $5, description_alt = $6,
			highlights = $7, pricing = $8, max_participants = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := t.q.QueryRowxContext(ctx, query,
		tour.ID, tour.Slug, tour.Name, tour.NameAlt, tour.Description, tour.DescriptionAlt,
		tour.Highlights, tour.Pricing, tour.MaxParticipants, tour.IsActive,
	).Scan(&tour.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update tour: %w", err)
	}
	return nil
}

// InsertAuditLog records an audit event
func (t *pgTx) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (actor, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err := t.q.QueryRowxContext(ctx, query,
		entry.Actor, entry.Action, entry.EntityType, entry.EntityID,
		entry.IPAddress, entry.UserAgent, entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
