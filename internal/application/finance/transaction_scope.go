package finance

import (
	"context"

	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/trade"
)

// Store provides the repositories the payment ledger and reversal engine need,
// all bound to one database transaction
type Store interface {
	// Orders returns the order repository; the ledger only adjusts paid_amount through it
	Orders() trade.OrderRepository

	// Payments returns the payment transaction repository
	Payments() finance.PaymentTransactionRepository

	// ReversalLogs returns the reversal audit log repository
	ReversalLogs() finance.PaymentReversalLogRepository

	// Savepoint runs fn in a nested transaction. An error from fn rolls back
	// only fn's writes; the surrounding transaction stays usable.
	Savepoint(ctx context.Context, fn func(Store) error) error
}

// TransactionScope runs a unit of work inside a database transaction.
// If fn returns an error the transaction is rolled back, otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(Store) error) error
}
