package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/internal/services"
)

// DepartureHandler handles departure listing and administration
type DepartureHandler struct {
	departureService *services.DepartureService
	transferService  *services.TransferService
	logger           *logrus.Logger
}

// NewDepartureHandler creates a new departure handler
func NewDepartureHandler(
	departureService *services.DepartureService,
	transferService *services.TransferService,
	logger *logrus.Logger,
) *DepartureHandler {
	return &DepartureHandler{
		departureService: departureService,
		transferService:  transferService,
		logger:           logger,
	}
}

// ListPublicDepartures handles GET /api/v1/departures/public?tour_id=&date=
func (h *DepartureHandler) ListPublicDepartures(c *gin.Context) {
	tourID := c.Query("tour_id")
	if tourID == "" {
		respondError(c, h.logger, models.NewInvalidData("tour_id is required"))
		return
	}

	departures, err := h.departureService.ListPublicDepartures(c.Request.Context(), tourID, c.Query("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departures": departures})
}

// ListDepartures handles GET /api/v1/admin/departures
// Query: tour_id, from, to, status (comma separated), visibility, limit, offset
func (h *DepartureHandler) ListDepartures(c *gin.Context) {
	filter, err := departureFilterFromQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	departures, err := h.departureService.ListDepartures(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departures": departures})
}

func departureFilterFromQuery(c *gin.Context) (models.DepartureFilter, error) {
	filter := models.DepartureFilter{TourID: c.Query("tour_id")}

	var err error
	if filter.From, err = queryDate(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		return filter, err
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := models.DepartureStatus(strings.TrimSpace(s))
			switch status {
			case models.DepartureStatusActive, models.DepartureStatusFull,
				models.DepartureStatusCompleted, models.DepartureStatusCancelled:
				filter.Status = append(filter.Status, status)
			default:
				return filter, models.NewInvalidData("unknown departure status %q", s)
			}
		}
	}
	if raw := c.Query("visibility"); raw != "" {
		filter.Visibility = models.DepartureVisibility(raw)
		if !filter.Visibility.Valid() {
			return filter, models.NewInvalidData("unknown visibility %q", raw)
		}
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

// GetDeparture handles GET /api/v1/admin/departures/:id
func (h *DepartureHandler) GetDeparture(c *gin.Context) {
	departure, err := h.departureService.GetDeparture(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, departure)
}

// CreateDeparture handles POST /api/v1/admin/departures
func (h *DepartureHandler) CreateDeparture(c *gin.Context) {
	var req models.CreateDepartureRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	departure, err := h.departureService.CreateDeparture(c.Request.Context(), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, departure)
}

// UpdateDeparture handles PUT /api/v1/admin/departures/:id
func (h *DepartureHandler) UpdateDeparture(c *gin.Context) {
	var req models.UpdateDepartureRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	departure, err := h.departureService.UpdateDeparture(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, departure)
}

// ChangeDate handles PUT /api/v1/admin/departures/:id/date
func (h *DepartureHandler) ChangeDate(c *gin.Context) {
	var req models.ChangeDepartureDateRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	departure, err := h.departureService.ChangeDepartureDate(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, departure)
}

// ChangeTour handles PUT /api/v1/admin/departures/:id/tour
func (h *DepartureHandler) ChangeTour(c *gin.Context) {
	var req models.ChangeDepartureTourRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	departure, err := h.departureService.ChangeDepartureTour(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, departure)
}

// Split handles POST /api/v1/admin/departures/:id/split
func (h *DepartureHandler) Split(c *gin.Context) {
	var req models.SplitDepartureRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.transferService.SplitDeparture(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reprice handles POST /api/v1/admin/departures/:id/reprice
func (h *DepartureHandler) Reprice(c *gin.Context) {
	var req models.RepriceDepartureRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, h.logger, &req) {
		return
	}

	departure, err := h.departureService.RepriceDeparture(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, departure)
}

// DeleteDeparture handles DELETE /api/v1/admin/departures/:id
func (h *DepartureHandler) DeleteDeparture(c *gin.Context) {
	if err := h.departureService.DeleteDeparture(c.Request.Context(), c.Param("id"), adminActor(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Departure deleted"})
}
