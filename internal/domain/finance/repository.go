package finance

import (
	"context"

	"github.com/google/uuid"
)

// PaymentTransactionRepository defines persistence for payment transactions
type PaymentTransactionRepository interface {
	// FindByID finds a payment within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*PaymentTransaction, error)

	// FindByIDForUpdate loads and row-locks a payment
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PaymentTransaction, error)

	// FindActiveByOrder lists active, non-reversal payments of an order, oldest first
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentTransaction, error)

	// FindByOrder lists every transaction of an order including reversals, oldest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentTransaction, error)

	// Create inserts a payment or reversal entry
	Create(ctx context.Context, payment *PaymentTransaction) error

	// UpdateStatus writes payment_status, reversed_at and reversed_by
	UpdateStatus(ctx context.Context, payment *PaymentTransaction) error
}

// PaymentReversalLogRepository stores the reversal audit log
type PaymentReversalLogRepository interface {
	// Create appends a log row
	Create(ctx context.Context, log *PaymentReversalLog) error

	// FindByID finds a log row within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*PaymentReversalLog, error)

	// FindByOrder lists log rows of an order, newest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentReversalLog, error)

	// UpdateStatus advances status and error_message; no other column is written
	UpdateStatus(ctx context.Context, log *PaymentReversalLog) error
}
