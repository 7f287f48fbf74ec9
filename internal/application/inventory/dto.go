package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// CreateItemRequest represents a request to register a stock item with an opening balance
type CreateItemRequest struct {
	SKU          string          `json:"sku" binding:"required,min=1,max=100"`
	Name         string          `json:"name" binding:"max=200"`
	OpeningStock decimal.Decimal `json:"opening_stock" binding:"decimal_gte0"`
}

// ItemResponse represents a stock item in API responses
type ItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	Version      int             `json:"version"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToItemResponse converts a domain Item to ItemResponse
func ToItemResponse(item *inventory.Item) ItemResponse {
	return ItemResponse{
		ID:           item.ID,
		SKU:          item.SKU,
		Name:         item.Name,
		CurrentStock: item.CurrentStock,
		Version:      item.Version,
		UpdatedAt:    item.UpdatedAt,
	}
}

// MovementResponse represents a stock movement in API responses
type MovementResponse struct {
	ID           uuid.UUID       `json:"id"`
	ItemID       uuid.UUID       `json:"item_id"`
	Direction    string          `json:"direction"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       string          `json:"reason"`
	PerformedBy  *uuid.UUID      `json:"performed_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ToMovementResponse converts a domain Movement to MovementResponse
func ToMovementResponse(m *inventory.Movement) MovementResponse {
	return MovementResponse{
		ID:           m.ID,
		ItemID:       m.ItemID,
		Direction:    m.Direction.String(),
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Reason:       string(m.Reason),
		PerformedBy:  m.PerformedBy,
		CreatedAt:    m.CreatedAt,
	}
}
