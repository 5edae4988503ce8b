package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/models"
)

// TourService manages the tour catalog
type TourService struct {
	store   database.Store
	pricing *PricingService
	audit   *AuditService
	logger  *logrus.Logger
}

// NewTourService creates a new tour service
func NewTourService(store database.Store, pricing *PricingService, audit *AuditService, logger *logrus.Logger) *TourService {
	return &TourService{
		store:   store,
		pricing: pricing,
		audit:   audit,
		logger:  logger,
	}
}

// ListTours returns the catalog, optionally only active tours
func (s *TourService) ListTours(ctx context.Context, activeOnly bool) ([]models.Tour, error) {
	var tours []models.Tour
	err := s.store.View(ctx, func(tx database.Tx) error {
		var err error
		tours, err = tx.ListTours(ctx, activeOnly)
		return err
	})
	if err != nil {
		return nil, classify(err, "list tours")
	}
	return tours, nil
}

// GetTour returns a tour; public lookups do not see inactive tours
func (s *TourService) GetTour(ctx context.Context, id string, public bool) (*models.Tour, error) {
	var tour *models.Tour
	err := s.store.View(ctx, func(tx database.Tx) error {
		var err error
		tour, err = tx.GetTour(ctx, id)
		if err != nil {
			return notFound(err, "tour", id)
		}
		if public && !tour.IsActive {
			return models.NewNotFound("tour", id)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "get tour")
	}
	return tour, nil
}

// CreateTour adds a tour to the catalog
func (s *TourService) CreateTour(ctx context.Context, req models.CreateTourRequest, actor Actor) (*models.Tour, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, models.NewInvalidData("name is required")
	}
	if err := s.pricing.ValidateTable(&req.Pricing); err != nil {
		return nil, err
	}

	tour := &models.Tour{
		ID:              uuid.NewString(),
		Name:            name,
		NameAlt:         req.NameAlt,
		Description:     req.Description,
		DescriptionAlt:  req.DescriptionAlt,
		Highlights:      models.StringArray(req.Highlights),
		Pricing:         req.Pricing,
		MaxParticipants: req.MaxParticipants,
		IsActive:        true,
	}
	if req.IsActive != nil {
		tour.IsActive = *req.IsActive
	}
	if tour.Highlights == nil {
		tour.Highlights = models.StringArray{}
	}

	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		if tour.Slug, err = uniqueSlug(ctx, tx, tour.Name, tour.ID); err != nil {
			return err
		}
		if err := tx.CreateTour(ctx, tour); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return models.NewInvalidDataCode("DUPLICATE_TOUR", "a tour with slug %q already exists", tour.Slug)
			}
			return fmt.Errorf("create tour: %w", err)
		}
		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditTourCreated,
			EntityType: "tour",
			EntityID:   tour.ID,
			Details:    models.AuditDetails{"name": tour.Name, "slug": tour.Slug},
		})
	})
	if err != nil {
		return nil, classify(err, "create tour")
	}

	s.logger.WithFields(logrus.Fields{"tour_id": tour.ID, "slug": tour.Slug}).Info("Tour created")
	return tour, nil
}

// UpdateTour applies a partial update. Pricing changes only affect
// departures created afterwards or explicitly repriced.
func (s *TourService) UpdateTour(ctx context.Context, id string, req models.UpdateTourRequest, actor Actor) (*models.Tour, error) {
	if req.Pricing != nil {
		if err := s.pricing.ValidateTable(req.Pricing); err != nil {
			return nil, err
		}
	}

	var tour *models.Tour
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		tour, err = tx.GetTour(ctx, id)
		if err != nil {
			return notFound(err, "tour", id)
		}

		changed := []string{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return models.NewInvalidData("name must not be empty")
			}
			tour.Name = name
			if tour.Slug, err = uniqueSlug(ctx, tx, name, tour.ID); err != nil {
				return err
			}
			changed = append(changed, "name")
		}
		if req.NameAlt != nil {
			tour.NameAlt = *req.NameAlt
			changed = append(changed, "name_alt")
		}
		if req.Description != nil {
			tour.Description = *req.Description
			changed = append(changed, "description")
		}
		if req.DescriptionAlt != nil {
			tour.DescriptionAlt = *req.DescriptionAlt
			changed = append(changed, "description_alt")
		}
		if req.Highlights != nil {
			tour.Highlights = models.StringArray(req.Highlights)
			changed = append(changed, "highlights")
		}
		if req.Pricing != nil {
			tour.Pricing = *req.Pricing
			changed = append(changed, "pricing")
		}
		if req.MaxParticipants != nil {
			tour.MaxParticipants = req.MaxParticipants
			changed = append(changed, "max_participants")
		}
		if req.IsActive != nil {
			tour.IsActive = *req.IsActive
			changed = append(changed, "is_active")
		}

		if err := tx.UpdateTour(ctx, tour); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return models.NewInvalidDataCode("DUPLICATE_TOUR", "a tour with slug %q already exists", tour.Slug)
			}
			return fmt.Errorf("update tour: %w", err)
		}
		return s.audit.RecordTx(ctx, tx, actor, AuditEvent{
			Action:     AuditTourUpdated,
			EntityType: "tour",
			EntityID:   tour.ID,
			Details:    models.AuditDetails{"fields": changed},
		})
	})
	if err != nil {
		return nil, classify(err, "update tour")
	}
	return tour, nil
}

// DeactivateTour hides a tour from the public catalog. Existing departures
// and bookings are untouched.
func (s *TourService) DeactivateTour(ctx context.Context, id string, actor Actor) (*models.Tour, error) {
	inactive := false
	return s.UpdateTour(ctx, id, models.UpdateTourRequest{IsActive: &inactive}, actor)
}

// uniqueSlug derives the slug from name, suffixing part of the id when
// another tour already uses it
func uniqueSlug(ctx context.Context, tx database.Tx, name, id string) (string, error) {
	base := slug.Make(name)
	tours, err := tx.ListTours(ctx, false)
	if err != nil {
		return "", fmt.Errorf("list tours: %w", err)
	}
	for _, t := range tours {
		if t.Slug == base && t.ID != id {
			return slug.Make(name + " " + id[:8]), nil
		}
	}
	return base, nil
}
