package database

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"
	"github.com/trekops/booking-backend/internal/config"
)

var passwordPattern = regexp.MustCompile(`(postgres(?:ql)?://[^:]+:)([^@]+)(@.+)`)

// maskPassword masks the password in a database URL for safe logging
func maskPassword(url string) string {
	return passwordPattern.ReplaceAllString(url, "${1}****${3}")
}

// NewConnection opens a pooled sqlx connection using the configured driver.
// "pgx" goes through pgx's database/sql adapter, "postgres" through lib/pq.
func NewConnection(cfg config.DatabaseConfig, logger *logrus.Logger) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	logger.WithFields(logrus.Fields{
		"driver": cfg.Driver,
		"url":    maskPassword(cfg.URL),
	}).Info("Opening database connection")

	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Driver {
	case "postgres":
		db, err = sqlx.Connect("postgres", cfg.URL)
	default:
		var pgxConfig *pgx.ConnConfig
		pgxConfig, err = pgx.ParseConfig(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database URL: %w", err)
		}

		// Transaction-mode poolers (PgBouncer/Supavisor on 6543) reject named prepared statements
		if strings.Contains(cfg.URL, ":6543") {
			pgxConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
			logger.Info("Detected transaction pooler, using simple protocol")
		}

		connStr := stdlib.RegisterConnConfig(pgxConfig)
		db, err = sqlx.Connect("pgx", connStr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
