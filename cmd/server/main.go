package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/config"
	"github.com/trekops/booking-backend/internal/database"
	"github.com/trekops/booking-backend/internal/handlers"
	"github.com/trekops/booking-backend/internal/middleware"
	"github.com/trekops/booking-backend/internal/services"
	"github.com/trekops/booking-backend/pkg/jwt"
	"github.com/trekops/booking-backend/pkg/mq"
	"github.com/trekops/booking-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting trek booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize storage
	store, db := openStore(cfg, logger)
	defer store.Close()

	rateLimitStore := openRateLimitStore(cfg, db, logger)

	var events services.EventPublisher = services.NoopPublisher{}
	if cfg.AMQP.URL != "" {
		publisher, err := mq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
		events = publisher
		logger.WithField("exchange", cfg.AMQP.Exchange).Info("Booking events enabled")
	}

	// Initialize services
	logger.Info("Initializing services...")
	v := validator.New()
	pricingService := services.NewPricingService(v)
	auditService := services.NewAuditService(store, logger)
	ledger := services.NewCapacityLedger(logger)
	rateLimitService := services.NewRateLimitService(rateLimitStore, services.RateLimitConfig{
		MinSpacing: cfg.RateLimit.MinSpacing,
		HourlyCap:  cfg.RateLimit.HourlyCap,
		DailyCap:   cfg.RateLimit.DailyCap,
	})

	tourService := services.NewTourService(store, pricingService, auditService, logger)
	departureService := services.NewDepartureService(store, pricingService, auditService, cfg.Booking, logger)
	bookingService := services.NewBookingService(
		store,
		departureService,
		ledger,
		pricingService,
		rateLimitService,
		auditService,
		events,
		v,
		logger,
	)
	transferService := services.NewTransferService(
		store,
		bookingService,
		departureService,
		ledger,
		pricingService,
		auditService,
		logger,
	)

	jwtService := jwt.NewService(cfg.Admin.TokenSecret, cfg.Admin.TokenExpiry)
	adminAuthService := services.NewAdminAuthService(cfg.Admin, jwtService, auditService)

	// Initialize and start cron service
	cronService := services.NewCronService(rateLimitService, departureService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started")

	logger.Info("Services initialized")

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: !allowsAnyOrigin(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	handlers.RegisterRoutes(router, handlers.Handlers{
		Bookings:      handlers.NewBookingHandler(bookingService, logger),
		AdminBookings: handlers.NewAdminBookingHandler(bookingService, transferService, logger),
		Tours:         handlers.NewTourHandler(tourService, logger),
		Departures:    handlers.NewDepartureHandler(departureService, transferService, logger),
		AdminAuth:     handlers.NewAdminAuthHandler(adminAuthService, logger),
		Ops:           handlers.NewOpsHandler(store, cronService, version, logger),
	}, middleware.AdminAuth(adminAuthService))

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop cron service
	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// openStore returns the configured store and, for Postgres, the pool behind it
func openStore(cfg *config.Config, logger *logrus.Logger) (database.Store, *sqlx.DB) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		return database.NewMemoryStore(), nil
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Info("Database schema applied")
	}

	return database.NewPostgresStore(db, cfg.Database.TxMaxRetries, logger), db
}

// openRateLimitStore picks the rate limit backend. Without an explicit
// choice Postgres deployments use the table and memory deployments memory.
func openRateLimitStore(cfg *config.Config, db *sqlx.DB, logger *logrus.Logger) services.RateLimitStore {
	kind := cfg.RateLimit.Store
	if kind == "" {
		kind = "sql"
		if db == nil {
			kind = "memory"
		}
	}

	switch kind {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := services.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		logger.Info("Rate limiting backed by Redis")
		return services.NewRedisRateLimitStore(client)
	case "sql":
		if db == nil {
			logger.Fatal("RATE_LIMIT_STORE=sql requires a Postgres database driver")
		}
		return services.NewSQLRateLimitStore(db)
	default:
		logger.Warn("Rate limiting kept in process memory")
		return services.NewMemoryRateLimitStore()
	}
}

func allowsAnyOrigin(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
