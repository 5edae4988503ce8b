package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgreSQL error codes the store reacts to
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// PostgresStore implements Store on top of sqlx
type PostgresStore struct {
	db         *sqlx.DB
	maxRetries int
	logger     *logrus.Logger
}

// NewPostgresStore creates a new Postgres-backed store
func NewPostgresStore(db *sqlx.DB, maxRetries int, logger *logrus.Logger) *PostgresStore {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &PostgresStore{
		db:         db,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// DB exposes the underlying connection pool
func (s *PostgresStore) DB() *sqlx.DB {
	return s.db
}

// WithTx runs fn at SERIALIZABLE isolation and retries serialization
// failures, deadlocks and booking reference collisions.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		lastErr = err
		s.logger.WithFields(logrus.Fields{
			"attempt":     attempt,
			"max_retries": s.maxRetries,
		}).WithError(err).Warn("Transaction conflict, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff(attempt)):
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrTxRetriesExhausted, s.maxRetries, lastErr)
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// View runs fn directly against the pool without a transaction
func (s *PostgresStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return fn(&pgTx{q: s.db})
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func retryBackoff(attempt int) time.Duration {
	base := time.Duration(10*(1<<uint(attempt))) * time.Millisecond
	return base + time.Duration(rand.Int63n(int64(base)))
}

// isRetryable reports whether a failed transaction may succeed when re-run
func isRetryable(err error) bool {
	if errors.Is(err, ErrDuplicateReference) {
		return true
	}
	code := sqlState(err)
	return code == pgSerializationFailure || code == pgDeadlockDetected
}

// sqlState extracts the SQLSTATE from either driver's error type
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// constraintName extracts the violated constraint from either driver's error type
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return sqlState(err) == pgUniqueViolation
}
