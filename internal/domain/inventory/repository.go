package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemRepository defines persistence for stock items
type ItemRepository interface {
	// FindByID finds an item within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Item, error)

	// FindByIDsForUpdate loads and row-locks the given items.
	// Locks are acquired in ascending id order so two orders touching the same
	// items cannot deadlock.
	FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Item, error)

	// Save creates or updates an item
	Save(ctx context.Context, item *Item) error

	// AdjustStock atomically adds delta to current_stock and returns the new balance.
	// It fails with an insufficient inventory error instead of going below zero.
	AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

// MovementRepository persists the stock movement log
type MovementRepository interface {
	// Create appends a movement
	Create(ctx context.Context, movement *Movement) error

	// FindByOrder lists movements of an order, oldest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Movement, error)
}
