package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/middleware"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/internal/services"
)

// AdminSessionRequest exchanges the shared secret for a bearer token
type AdminSessionRequest struct {
	Secret string `json:"secret"`
}

// AdminAuthHandler handles admin session requests
type AdminAuthHandler struct {
	adminAuthService *services.AdminAuthService
	logger           *logrus.Logger
}

// NewAdminAuthHandler creates a new admin auth handler
func NewAdminAuthHandler(adminAuthService *services.AdminAuthService, logger *logrus.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{
		adminAuthService: adminAuthService,
		logger:           logger,
	}
}

// Login handles POST /api/v1/admin/session
// The secret is read from the body, falling back to the X-Admin-Secret header.
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req AdminSessionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, h.logger, &req) {
		return
	}
	if req.Secret == "" {
		req.Secret = c.GetHeader(middleware.AdminSecretHeader)
	}
	if req.Secret == "" {
		respondError(c, h.logger, models.NewInvalidData("secret is required"))
		return
	}

	actor := adminActor(c)
	session, err := h.adminAuthService.Login(c.Request.Context(), req.Secret, actor)
	if err != nil {
		h.logger.WithField("ip_address", actor.IPAddress).Warn("Admin login failed")
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ip_address": actor.IPAddress,
		"expires_at": session.ExpiresAt,
	}).Info("Admin session issued")

	c.JSON(http.StatusOK, session)
}
