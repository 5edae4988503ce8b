package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/internal/services"
)

// BookingHandler handles public booking requests
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), req, customerActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// JoinDeparture handles POST /api/v1/bookings/join
func (h *BookingHandler) JoinDeparture(c *gin.Context) {
	var req models.JoinDepartureRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	booking, err := h.bookingService.JoinDeparture(c.Request.Context(), req, customerActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// CheckBooking handles GET /api/v1/bookings/check?reference=&email=
// email is optional; when given a mismatch is reported as not found.
func (h *BookingHandler) CheckBooking(c *gin.Context) {
	reference := c.Query("reference")
	email := c.Query("email")
	if reference == "" {
		respondError(c, h.logger, models.NewInvalidData("reference is required"))
		return
	}

	result, err := h.bookingService.CheckBooking(c.Request.Context(), reference, email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
