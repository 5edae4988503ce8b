package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/internal/services"
	"github.com/trekops/booking-backend/internal/utils"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   models.ErrorKind `json:"error"`
	Message string           `json:"message"`
	Code    string           `json:"code"`
}

// respondError writes err as an ErrorResponse. Anything that is not an
// AppError is logged and reported as an internal error without detail.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	appErr, ok := models.AsAppError(err)
	if !ok {
		appErr = models.NewInternal("internal server error", err)
	}

	status := appErr.HTTPStatus()
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"code":   appErr.Code,
		}).WithError(err).Error("Request failed")
		message = "internal server error"
	}

	var limitErr *services.RateLimitError
	if errors.As(err, &limitErr) {
		seconds := int(math.Ceil(time.Until(limitErr.RetryAfter).Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   appErr.Kind,
		Message: message,
		Code:    appErr.Code,
	})
}

// bindJSON binds the request body, answering 400 INVALID_DATA on failure
func bindJSON(c *gin.Context, logger *logrus.Logger, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, logger, models.NewInvalidData("Invalid request body: %v", err))
		return false
	}
	return true
}

// queryInt reads an optional non-negative integer query parameter
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.NewInvalidData("%s must be a non-negative integer", name)
	}
	return n, nil
}

// queryDate reads an optional YYYY-MM-DD query parameter
func queryDate(c *gin.Context, name string) (*models.Date, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	day, err := models.ParseDate(raw)
	if err != nil {
		return nil, models.NewInvalidData("%s: %v", name, err)
	}
	return &day, nil
}

func adminActor(c *gin.Context) services.Actor {
	return services.AdminActor(utils.GetClientAddress(c), utils.GetUserAgent(c))
}

func customerActor(c *gin.Context) services.Actor {
	return services.CustomerActor(utils.GetClientAddress(c), utils.GetUserAgent(c))
}
