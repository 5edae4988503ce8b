package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Admin authentication configuration
	Admin AdminConfig

	// Booking and departure policy
	Booking BookingConfig

	// Public booking rate limiting
	RateLimit RateLimitConfig

	// Redis (optional rate limit backend)
	Redis RedisConfig

	// AMQP (optional booking event publisher)
	AMQP AMQPConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	Environment    string        `envconfig:"ENVIRONMENT" default:"development"` // development, staging, production
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver             string        `envconfig:"DATABASE_DRIVER" default:"pgx"` // pgx, postgres, memory
	URL                string        `envconfig:"DATABASE_URL"`
	MaxConnections     int           `envconfig:"DATABASE_MAX_CONNECTIONS" default:"10"`
	MaxIdleConnections int           `envconfig:"DATABASE_MAX_IDLE_CONNECTIONS" default:"5"`
	ConnMaxLifetime    time.Duration `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"5m"`
	AutoMigrate        bool          `envconfig:"DATABASE_AUTO_MIGRATE" default:"false"`
	TxMaxRetries       int           `envconfig:"DATABASE_TX_MAX_RETRIES" default:"5"`
}

// AdminConfig holds the shared-secret admin configuration
type AdminConfig struct {
	Secret      string        `envconfig:"ADMIN_SECRET"`
	SecretHash  string        `envconfig:"ADMIN_SECRET_HASH"` // bcrypt hash, preferred over ADMIN_SECRET
	TokenSecret string        `envconfig:"JWT_SECRET"`
	TokenExpiry time.Duration `envconfig:"JWT_ADMIN_TOKEN_EXPIRY" default:"8h"`
}

// BookingConfig holds departure defaults and policies
type BookingConfig struct {
	PublicDepartureCapacity  int    `envconfig:"PUBLIC_DEPARTURE_CAPACITY" default:"8"`
	PrivateDepartureCapacity int    `envconfig:"PRIVATE_DEPARTURE_CAPACITY" default:"99"`
	EmptyDeparturePolicy     string `envconfig:"EMPTY_DEPARTURE_POLICY" default:"keep"` // keep, delete
	Timezone                 string `envconfig:"BOOKING_TIMEZONE" default:"UTC"`
}

// RateLimitConfig holds public booking throttling configuration
type RateLimitConfig struct {
	Store      string        `envconfig:"RATE_LIMIT_STORE"` // sql, redis, memory; empty selects from the database driver
	MinSpacing time.Duration `envconfig:"RATE_LIMIT_MIN_SPACING" default:"30s"`
	HourlyCap  int           `envconfig:"RATE_LIMIT_HOURLY_CAP" default:"5"`
	DailyCap   int           `envconfig:"RATE_LIMIT_DAILY_CAP" default:"10"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URL string `envconfig:"REDIS_URL"`
}

// AMQPConfig holds RabbitMQ configuration for booking events
type AMQPConfig struct {
	URL      string `envconfig:"AMQP_URL"`
	Exchange string `envconfig:"AMQP_EXCHANGE" default:"trek.bookings"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	AllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Content-Type,Authorization,X-Admin-Secret"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{}

	// Each section is processed without a prefix so env names stay flat
	sections := []interface{}{
		&config.Server,
		&config.Database,
		&config.Admin,
		&config.Booking,
		&config.RateLimit,
		&config.Redis,
		&config.AMQP,
		&config.CORS,
	}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to process configuration: %w", err)
		}
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "pgx", "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for driver %q", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of pgx, postgres, memory (got %q)", c.Database.Driver)
	}

	if c.Admin.Secret == "" && c.Admin.SecretHash == "" {
		return fmt.Errorf("ADMIN_SECRET or ADMIN_SECRET_HASH is required")
	}

	if c.Admin.TokenSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Booking.PublicDepartureCapacity < 1 || c.Booking.PrivateDepartureCapacity < 1 {
		return fmt.Errorf("departure capacities must be positive")
	}

	if c.Booking.EmptyDeparturePolicy != "keep" && c.Booking.EmptyDeparturePolicy != "delete" {
		return fmt.Errorf("EMPTY_DEPARTURE_POLICY must be keep or delete (got %q)", c.Booking.EmptyDeparturePolicy)
	}

	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid BOOKING_TIMEZONE: %w", err)
	}

	if c.RateLimit.HourlyCap < 1 || c.RateLimit.DailyCap < 1 {
		return fmt.Errorf("rate limit caps must be positive")
	}

	switch c.RateLimit.Store {
	case "", "sql", "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_STORE must be one of sql, redis, memory (got %q)", c.RateLimit.Store)
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Location returns the time zone used to determine "today" for bookings
func (c *BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
