package trade

import (
	"context"

	financeapp "github.com/orderflow/backend/internal/application/finance"
	inventoryapp "github.com/orderflow/backend/internal/application/inventory"
	"github.com/orderflow/backend/internal/domain/trade"
)

// Store gives the status service every repository a transition touches.
// All of them share one database transaction, so status, inventory, payments
// and history commit or roll back together.
type Store interface {
	financeapp.Store
	inventoryapp.Store

	// Histories returns the append-only status history repository
	Histories() trade.StatusHistoryRepository
}

// TransactionScope runs a unit of work inside a database transaction.
// If fn returns an error the transaction is rolled back, otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(Store) error) error
}
