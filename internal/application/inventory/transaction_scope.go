package inventory

import (
	"context"

	"github.com/orderflow/backend/internal/domain/inventory"
)

// Store provides the inventory repositories bound to the caller's database
// transaction. The applier never opens a transaction of its own: every stock
// change it makes commits or rolls back with the status change that caused it.
type Store interface {
	// Items returns the stock item repository scoped to the current transaction
	Items() inventory.ItemRepository

	// Movements returns the movement log repository scoped to the current transaction
	Movements() inventory.MovementRepository
}

// TransactionScope runs a unit of work inside a database transaction.
// If fn returns an error the transaction is rolled back, otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(Store) error) error
}
