package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/internal/services"
)

// TourHandler serves the tour catalog to the public site and the admin panel
type TourHandler struct {
	tourService *services.TourService
	logger      *logrus.Logger
}

// NewTourHandler creates a new tour handler
func NewTourHandler(tourService *services.TourService, logger *logrus.Logger) *TourHandler {
	return &TourHandler{
		tourService: tourService,
		logger:      logger,
	}
}

// ListTours handles GET /api/v1/tours (active tours only)
func (h *TourHandler) ListTours(c *gin.Context) {
	tours, err := h.tourService.ListTours(c.Request.Context(), true)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tours": tours})
}

// GetTour handles GET /api/v1/tours/:id
func (h *TourHandler) GetTour(c *gin.Context) {
	tour, err := h.tourService.GetTour(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

// AdminListTours handles GET /api/v1/admin/tours, including inactive tours
func (h *TourHandler) AdminListTours(c *gin.Context) {
	tours, err := h.tourService.ListTours(c.Request.Context(), false)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tours": tours})
}

// CreateTour handles POST /api/v1/admin/tours
func (h *TourHandler) CreateTour(c *gin.Context) {
	var req models.CreateTourRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	tour, err := h.tourService.CreateTour(c.Request.Context(), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, tour)
}

// UpdateTour handles PUT /api/v1/admin/tours/:id
func (h *TourHandler) UpdateTour(c *gin.Context) {
	var req models.UpdateTourRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	tour, err := h.tourService.UpdateTour(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

// DeleteTour handles DELETE /api/v1/admin/tours/:id. Tours are only
// deactivated; their departures and bookings stay intact.
func (h *TourHandler) DeleteTour(c *gin.Context) {
	tour, err := h.tourService.DeactivateTour(c.Request.Context(), c.Param("id"), adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}
