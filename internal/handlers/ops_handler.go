package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/services"
)

// OpsHandler exposes health and scheduled job controls
type OpsHandler struct {
	store       database.Store
	cronService *services.CronService
	version     string
	logger      *logrus.Logger
}

// NewOpsHandler creates a new ops handler
func NewOpsHandler(store database.Store, cronService *services.CronService, version string, logger *logrus.Logger) *OpsHandler {
	return &OpsHandler{
		store:       store,
		cronService: cronService,
		version:     version,
		logger:      logger,
	}
}

// Health handles GET /health
func (h *OpsHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "healthy",
		"version":   h.version,
		"timestamp": time.Now().Unix(),
	})
}

// CronStatus handles GET /api/v1/admin/cron/status
func (h *OpsHandler) CronStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cronService.GetJobStatus())
}

// EvictRateLimits handles POST /api/v1/admin/cron/evict-rate-limits
func (h *OpsHandler) EvictRateLimits(c *gin.Context) {
	removed, err := h.cronService.RunEvictRateLimitsNow()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit eviction completed", "removed": removed})
}

// CompleteDepartures handles POST /api/v1/admin/cron/complete-departures
func (h *OpsHandler) CompleteDepartures(c *gin.Context) {
	completed, err := h.cronService.RunCompleteDeparturesNow()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Departure completion finished", "completed": completed})
}
