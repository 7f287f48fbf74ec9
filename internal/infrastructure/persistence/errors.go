package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/orderflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// PostgreSQL error codes that mean "another transaction got there first"
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// translateError maps driver and GORM errors onto domain errors.
// Lock timeouts, deadlocks and serialization failures become retryable
// conflicts; a missing row becomes ErrNotFound.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.NewConflictError("Timed out waiting for a row lock; retry the request")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
			return shared.NewConflictError(
				fmt.Sprintf("Concurrent modification (%s); retry the request", pgErr.Code))
		case pgUniqueViolation:
			return shared.NewPolicyViolation("DUPLICATE_VALUE",
				fmt.Sprintf("Duplicate value violates %s", pgErr.ConstraintName))
		}
	}
	return err
}
