package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/trekops/booking-backend/internal/config"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/middleware"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/internal/services"
	"github.com/trekops/booking-backend/pkg/jwt"
	"github.com/trekops/booking-backend/pkg/validator"
)

const testAdminSecret = "test-admin-secret"

type testServer struct {
	router *gin.Engine
	store  *database.MemoryStore
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := database.NewMemoryStore()
	v := validator.New()
	pricing := services.NewPricingService(v)
	audit := services.NewAuditService(store, logger)
	ledger := services.NewCapacityLedger(logger)
	limiter := services.NewRateLimitService(services.NewMemoryRateLimitStore(), services.DefaultRateLimitConfig())

	departures := services.NewDepartureService(store, pricing, audit, config.BookingConfig{
		PublicDepartureCapacity:  8,
		PrivateDepartureCapacity: 99,
		EmptyDeparturePolicy:     services.EmptyDepartureKeep,
		Timezone:                 "UTC",
	}, logger)
	bookings := services.NewBookingService(store, departures, ledger, pricing, limiter, audit, nil, v, logger)
	transfers := services.NewTransferService(store, bookings, departures, ledger, pricing, audit, logger)
	tours := services.NewTourService(store, pricing, audit, logger)
	cron := services.NewCronService(limiter, departures, logger)
	adminAuth := services.NewAdminAuthService(
		config.AdminConfig{Secret: testAdminSecret},
		jwt.NewService("test-signing-secret", time.Hour),
		audit,
	)

	router := gin.New()
	RegisterRoutes(router, Handlers{
		Bookings:      NewBookingHandler(bookings, logger),
		AdminBookings: NewAdminBookingHandler(bookings, transfers, logger),
		Tours:         NewTourHandler(tours, logger),
		Departures:    NewDepartureHandler(departures, transfers, logger),
		AdminAuth:     NewAdminAuthHandler(adminAuth, logger),
		Ops:           NewOpsHandler(store, cron, "test", logger),
	}, middleware.AdminAuth(adminAuth))

	return &testServer{router: router, store: store}
}

// do sends a JSON request. Admin requests carry the shared secret.
func (s *testServer) do(t *testing.T, method, path string, body interface{}, admin bool, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(middleware.AdminSecretHeader, testAdminSecret)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	decode(t, w, &resp)
	return resp
}

func (s *testServer) createTour(t *testing.T, name string) models.Tour {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/admin/tours", gin.H{
		"name": name,
		"pricing": gin.H{
			"currency":     "EUR",
			"alt_currency": "USD",
			"tiers": []gin.H{
				{"min_pax": 1, "max_pax": 2, "price_base": 100, "price_alt": 110},
				{"min_pax": 3, "max_pax": 12, "price_base": 80, "price_alt": 88},
			},
		},
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tour models.Tour
	decode(t, w, &tour)
	return tour
}

// book creates a public booking from its own client address
func (s *testServer) book(t *testing.T, tourID string, n, pax int, visibility string) models.Booking {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/bookings", bookingBody(tourID, n, pax, visibility), false,
		"X-Real-IP", clientIP(n))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var booking models.Booking
	decode(t, w, &booking)
	return booking
}

func bookingBody(tourID string, n, pax int, visibility string) gin.H {
	return gin.H{
		"tour_id":    tourID,
		"date":       futureDate(14),
		"pax":        pax,
		"visibility": visibility,
		"customer":   customerBody(n),
	}
}

func customerBody(n int) gin.H {
	return gin.H{
		"name":        fmt.Sprintf("Hiker %d", n),
		"document_id": fmt.Sprintf("X%07d", n),
		"phone":       fmt.Sprintf("+34 600 000 %03d", n),
		"email":       fmt.Sprintf("hiker%d@example.com", n),
	}
}

func clientIP(n int) string {
	return fmt.Sprintf("203.0.113.%d", n)
}

func futureDate(days int) string {
	return models.Today(time.UTC).AddDate(0, 0, days).Format(models.DateLayout)
}
