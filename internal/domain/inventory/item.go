package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Item is a stock-keeping item with its on-hand quantity.
// Master data for items is maintained elsewhere; this context only reads
// identity fields and mutates CurrentStock.
type Item struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	SKU          string
	Name         string
	CurrentStock decimal.Decimal
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewItem creates an item with an opening balance
func NewItem(tenantID uuid.UUID, sku, name string, openingStock decimal.Decimal) (*Item, error) {
	if sku == "" {
		return nil, shared.NewValidationError("INVALID_SKU", "SKU cannot be empty")
	}
	if openingStock.IsNegative() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Opening stock cannot be negative")
	}
	now := time.Now()
	return &Item{
		ID:           uuid.New(),
		TenantID:     tenantID,
		SKU:          sku,
		Name:         name,
		CurrentStock: openingStock,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanMove reports whether quantity can be moved in direction d without going negative
func (i *Item) CanMove(d Direction, quantity decimal.Decimal) bool {
	_, err := NextStock(i.CurrentStock, d, quantity)
	return err == nil
}
