// internal/infrastructure/database/transaction.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrConflict is returned by a transaction callback when a guarded write
// observed a concurrent change. The runner re-invokes the callback.
var ErrConflict = errors.New("transaction conflict")

// Postgres SQLSTATE codes that mean "retry the whole transaction"
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// TxFunc is the unit of work run inside a transaction. It must only use tx.
type TxFunc func(tx *gorm.DB) error

// Transactor runs callbacks atomically, re-running them on conflict.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn TxFunc) error
}

// TxManager implements Transactor on top of gorm transactions
type TxManager struct {
	db          *gorm.DB
	maxAttempts int
	backoff     time.Duration
	logger      *logrus.Logger
}

// NewTxManager creates a transaction manager
func NewTxManager(db *gorm.DB, maxAttempts int, backoff time.Duration, logger *logrus.Logger) *TxManager {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TxManager{
		db:          db,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
	}
}

// RunInTransaction commits fn's writes atomically. A conflict rolls back and
// re-runs fn with a fresh transaction until maxAttempts is reached.
func (m *TxManager) RunInTransaction(ctx context.Context, fn TxFunc) error {
	var err error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx)
		})
		if err == nil || !IsRetryable(err) {
			return err
		}

		m.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Debug("Transaction conflict, retrying")

		if attempt == m.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.backoff * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("transaction aborted after %d attempts: %w", m.maxAttempts, err)
}

// IsRetryable reports whether err means the transaction lost a race
func IsRetryable(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}
