package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRepository defines persistence for orders
type OrderRepository interface {
	// FindByID finds an order with its items within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)

	// FindByIDForUpdate loads the order and holds a row lock on it until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)

	// Create inserts a new order and its items
	Create(ctx context.Context, order *Order) error

	// Save updates the lifecycle columns of an order (status, inventory status,
	// post-delivery action, damaged flags). paid_amount is not written here.
	Save(ctx context.Context, order *Order) error

	// AdjustPaidAmount atomically adds delta to paid_amount, never letting it
	// drop below zero. It returns the new value and whether clamping happened.
	AdjustPaidAmount(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, bool, error)
}

// StatusHistoryRepository is the append-only store of status changes.
// There is intentionally no update or delete.
type StatusHistoryRepository interface {
	// Append inserts a history row into the table of its order type
	Append(ctx context.Context, entry *StatusHistory) error

	// FindByOrder lists the history of an order, newest first
	FindByOrder(ctx context.Context, orderType OrderType, orderID uuid.UUID) ([]StatusHistory, error)
}
