package trade

import (
	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
)

// OrderCreatedEvent is raised when a new order is created
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID       `json:"order_id"`
	OrderType  OrderType       `json:"order_type"`
	Code       string          `json:"code"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(order *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, order.ID, order.TenantID),
		OrderID:         order.ID,
		OrderType:       order.Type,
		Code:            order.Code,
		GrandTotal:      order.GrandTotal,
	}
}

// OrderStatusChangedEvent is raised for every committed status change
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID            uuid.UUID    `json:"order_id"`
	OrderType          OrderType    `json:"order_type"`
	Code               string       `json:"code"`
	PreviousStatus     OrderStatus  `json:"previous_status"`
	NewStatus          OrderStatus  `json:"new_status"`
	PostDeliveryAction *OrderStatus `json:"post_delivery_action,omitempty"`
	ChangedBy          uuid.UUID    `json:"changed_by"`
	ChangedByRole      shared.Role  `json:"changed_by_role"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(order *Order, previous OrderStatus, actor shared.Actor) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, order.ID, order.TenantID),
		OrderID:            order.ID,
		OrderType:          order.Type,
		Code:               order.Code,
		PreviousStatus:     previous,
		NewStatus:          order.Status,
		PostDeliveryAction: order.PostDeliveryAction,
		ChangedBy:          actor.ID,
		ChangedByRole:      actor.Role,
	}
}
