package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/internal/services"
)

// AdminBookingHandler handles booking administration
type AdminBookingHandler struct {
	bookingService  *services.BookingService
	transferService *services.TransferService
	logger          *logrus.Logger
}

// NewAdminBookingHandler creates a new admin booking handler
func NewAdminBookingHandler(
	bookingService *services.BookingService,
	transferService *services.TransferService,
	logger *logrus.Logger,
) *AdminBookingHandler {
	return &AdminBookingHandler{
		bookingService:  bookingService,
		transferService: transferService,
		logger:          logger,
	}
}

// ListBookings handles GET /api/v1/admin/bookings
// Query: tour_id, departure_id, status (comma separated), from, to, q, limit, offset
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	filter := models.BookingFilter{
		TourID:      c.Query("tour_id"),
		DepartureID: c.Query("departure_id"),
		Search:      strings.TrimSpace(c.Query("q")),
	}

	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := models.BookingStatus(strings.TrimSpace(s))
			if !status.Valid() {
				respondError(c, h.logger, models.NewInvalidData("unknown booking status %q", s))
				return
			}
			filter.Status = append(filter.Status, status)
		}
	}

	var err error
	if filter.From, err = queryDate(c, "from"); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.bookingService.ListBookings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetBooking handles GET /api/v1/admin/bookings/:id
func (h *AdminBookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CreateBooking handles POST /api/v1/admin/bookings
func (h *AdminBookingHandler) CreateBooking(c *gin.Context) {
	var req models.AdminCreateBookingRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	booking, err := h.bookingService.AdminCreateBooking(c.Request.Context(), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// UpdateStatus handles PUT /api/v1/admin/bookings/:id/status
func (h *AdminBookingHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateBookingStatusRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	booking, err := h.bookingService.UpdateStatus(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Reinstate handles POST /api/v1/admin/bookings/:id/reinstate
func (h *AdminBookingHandler) Reinstate(c *gin.Context) {
	var req models.ReinstateBookingRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, h.logger, &req) {
		return
	}

	booking, err := h.bookingService.Reinstate(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// UpdateDetails handles PUT /api/v1/admin/bookings/:id/details
func (h *AdminBookingHandler) UpdateDetails(c *gin.Context) {
	var req models.UpdateBookingDetailsRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	booking, err := h.bookingService.UpdateDetails(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Transfer handles POST /api/v1/admin/bookings/:id/transfer
func (h *AdminBookingHandler) Transfer(c *gin.Context) {
	var req models.TransferBookingRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	booking, err := h.transferService.TransferBooking(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// TransferToTour handles POST /api/v1/admin/bookings/:id/transfer-to-tour
func (h *AdminBookingHandler) TransferToTour(c *gin.Context) {
	var req models.TransferToTourRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.transferService.TransferBookingToTour(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ConvertType handles POST /api/v1/admin/bookings/:id/convert-type
func (h *AdminBookingHandler) ConvertType(c *gin.Context) {
	var req models.ConvertVisibilityRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	booking, err := h.transferService.ConvertBookingVisibility(c.Request.Context(), c.Param("id"), req, adminActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}
