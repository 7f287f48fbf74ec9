package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
// Sale and purchase orders share the table and are told apart by OrderType.
type OrderModel struct {
	TenantRootModel
	OrderType            trade.OrderType       `gorm:"type:varchar(20);not null;index"`
	Code                 string                `gorm:"type:varchar(50);not null;index"`
	CounterpartyID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	GrandTotal           decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount           decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Status               trade.OrderStatus     `gorm:"type:varchar(20);not null;index"`
	InventoryStatus      trade.InventoryStatus `gorm:"type:varchar(30);not null;default:'pending'"`
	InventoryAppliedAt   *time.Time
	InventoryRestoredAt  *time.Time
	PostDeliveryAction   *trade.OrderStatus `gorm:"type:varchar(20)"`
	PostDeliveryActionAt *time.Time
	Items                []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *trade.Order {
	order := &trade.Order{
		TenantAggregateRoot:  m.root(),
		Type:                 m.OrderType,
		Code:                 m.Code,
		CounterpartyID:       m.CounterpartyID,
		GrandTotal:           m.GrandTotal,
		PaidAmount:           m.PaidAmount,
		Status:               m.Status,
		InventoryStatus:      m.InventoryStatus,
		InventoryAppliedAt:   m.InventoryAppliedAt,
		InventoryRestoredAt:  m.InventoryRestoredAt,
		PostDeliveryAction:   m.PostDeliveryAction,
		PostDeliveryActionAt: m.PostDeliveryActionAt,
		Items:                make([]trade.OrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		order.Items[i] = item.ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.TenantRootModel = tenantRootModel(o.TenantAggregateRoot)
	m.OrderType = o.Type
	m.Code = o.Code
	m.CounterpartyID = o.CounterpartyID
	m.GrandTotal = o.GrandTotal
	m.PaidAmount = o.PaidAmount
	m.Status = o.Status
	m.InventoryStatus = o.InventoryStatus
	m.InventoryAppliedAt = o.InventoryAppliedAt
	m.InventoryRestoredAt = o.InventoryRestoredAt
	m.PostDeliveryAction = o.PostDeliveryAction
	m.PostDeliveryActionAt = o.PostDeliveryActionAt
	m.Items = make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		m.Items[i].FromDomain(item)
	}
}

// OrderModelFromDomain creates a persistence model from a domain Order
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsDamaged bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *OrderItemModel) ToDomain() trade.OrderItem {
	return trade.OrderItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ItemID:    m.ItemID,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		IsDamaged: m.IsDamaged,
	}
}

// FromDomain populates the persistence model from a domain OrderItem
func (m *OrderItemModel) FromDomain(i trade.OrderItem) {
	m.ID = i.ID
	m.OrderID = i.OrderID
	m.ItemID = i.ItemID
	m.Quantity = i.Quantity
	m.UnitPrice = i.UnitPrice
	m.IsDamaged = i.IsDamaged
}

// StatusHistoryModel is the persistence model for a status history row.
// The same shape backs one table per order type; the repository picks the
// table with StatusHistoryTable.
type StatusHistoryModel struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key"`
	TenantID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	OrderID        uuid.UUID          `gorm:"type:uuid;not null;index"`
	PreviousStatus *trade.OrderStatus `gorm:"type:varchar(20)"`
	NewStatus      trade.OrderStatus  `gorm:"type:varchar(20);not null"`
	Notes          string             `gorm:"type:text"`
	ProofImage     *string            `gorm:"type:varchar(500)"`
	Signature      *string            `gorm:"type:varchar(500)"`
	Latitude       *float64
	Longitude      *float64
	ChangedBy      *uuid.UUID `gorm:"type:uuid"`
	ChangedByName  string     `gorm:"type:varchar(200)"`
	ChangedAt      time.Time  `gorm:"not null;index"`
}

// StatusHistoryTable returns the history table of an order type
func StatusHistoryTable(orderType trade.OrderType) string {
	if orderType == trade.OrderTypePurchase {
		return "purchase_order_status_histories"
	}
	return "sale_order_status_histories"
}

// ToDomain converts the persistence model to a domain StatusHistory
func (m *StatusHistoryModel) ToDomain(orderType trade.OrderType) trade.StatusHistory {
	return trade.StatusHistory{
		ID:             m.ID,
		TenantID:       m.TenantID,
		OrderID:        m.OrderID,
		OrderType:      orderType,
		PreviousStatus: m.PreviousStatus,
		NewStatus:      m.NewStatus,
		Notes:          m.Notes,
		ProofImage:     derefString(m.ProofImage),
		Signature:      derefString(m.Signature),
		Latitude:       m.Latitude,
		Longitude:      m.Longitude,
		ChangedBy:      m.ChangedBy,
		ChangedByName:  m.ChangedByName,
		ChangedAt:      m.ChangedAt,
	}
}

// StatusHistoryModelFromDomain creates a persistence model from a domain StatusHistory
func StatusHistoryModelFromDomain(h *trade.StatusHistory) *StatusHistoryModel {
	return &StatusHistoryModel{
		ID:             h.ID,
		TenantID:       h.TenantID,
		OrderID:        h.OrderID,
		PreviousStatus: h.PreviousStatus,
		NewStatus:      h.NewStatus,
		Notes:          h.Notes,
		ProofImage:     stringPtr(h.ProofImage),
		Signature:      stringPtr(h.Signature),
		Latitude:       h.Latitude,
		Longitude:      h.Longitude,
		ChangedBy:      h.ChangedBy,
		ChangedByName:  h.ChangedByName,
		ChangedAt:      h.ChangedAt,
	}
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
