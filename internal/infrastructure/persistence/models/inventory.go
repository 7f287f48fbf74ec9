package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// InventoryItemModel is the persistence model for a stock item
type InventoryItemModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU          string          `gorm:"column:sku;type:varchar(100);not null"`
	Name         string          `gorm:"type:varchar(200)"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Version      int             `gorm:"not null;default:1"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// ToDomain converts the persistence model to a domain Item
func (m *InventoryItemModel) ToDomain() *inventory.Item {
	return &inventory.Item{
		ID:           m.ID,
		TenantID:     m.TenantID,
		SKU:          m.SKU,
		Name:         m.Name,
		CurrentStock: m.CurrentStock,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// InventoryItemModelFromDomain creates a persistence model from a domain Item
func InventoryItemModelFromDomain(i *inventory.Item) *InventoryItemModel {
	return &InventoryItemModel{
		ID:           i.ID,
		TenantID:     i.TenantID,
		SKU:          i.SKU,
		Name:         i.Name,
		CurrentStock: i.CurrentStock,
		Version:      i.Version,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

// InventoryMovementModel is the persistence model for a stock movement
type InventoryMovementModel struct {
	ID           uuid.UUID                `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID                `gorm:"type:uuid;not null;index"`
	OrderID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	ItemID       uuid.UUID                `gorm:"type:uuid;not null;index"`
	Direction    inventory.Direction      `gorm:"type:varchar(10);not null"`
	Quantity     decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	BalanceAfter decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Reason       inventory.MovementReason `gorm:"type:varchar(30);not null"`
	PerformedBy  *uuid.UUID               `gorm:"type:uuid"`
	CreatedAt    time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryMovementModel) TableName() string {
	return "inventory_movements"
}

// ToDomain converts the persistence model to a domain Movement
func (m *InventoryMovementModel) ToDomain() inventory.Movement {
	return inventory.Movement{
		ID:           m.ID,
		TenantID:     m.TenantID,
		OrderID:      m.OrderID,
		ItemID:       m.ItemID,
		Direction:    m.Direction,
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Reason:       m.Reason,
		PerformedBy:  m.PerformedBy,
		CreatedAt:    m.CreatedAt,
	}
}

// InventoryMovementModelFromDomain creates a persistence model from a domain Movement
func InventoryMovementModelFromDomain(mv *inventory.Movement) *InventoryMovementModel {
	return &InventoryMovementModel{
		ID:           mv.ID,
		TenantID:     mv.TenantID,
		OrderID:      mv.OrderID,
		ItemID:       mv.ItemID,
		Direction:    mv.Direction,
		Quantity:     mv.Quantity,
		BalanceAfter: mv.BalanceAfter,
		Reason:       mv.Reason,
		PerformedBy:  mv.PerformedBy,
		CreatedAt:    mv.CreatedAt,
	}
}

// AllModels lists every model for schema migration in tests and tooling.
// History models are migrated separately per table.
func AllModels() []any {
	return []any{
		&OrderModel{},
		&OrderItemModel{},
		&PaymentTransactionModel{},
		&PaymentReversalLogModel{},
		&InventoryItemModel{},
		&InventoryMovementModel{},
	}
}
