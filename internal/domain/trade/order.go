package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeOrder is the aggregate type used in domain events
const AggregateTypeOrder = "Order"

// OrderItem is a line of an order
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ItemID    uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	// IsDamaged marks returned goods that must not go back into stock
	IsDamaged bool
}

// Amount returns quantity * unit price
func (i OrderItem) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Order is a sale or purchase order. Its status, inventory status and paid
// amount change only through the status service and the payment ledger.
type Order struct {
	shared.TenantAggregateRoot
	Type                 OrderType
	Code                 string
	CounterpartyID       uuid.UUID
	GrandTotal           decimal.Decimal
	PaidAmount           decimal.Decimal
	Status               OrderStatus
	InventoryStatus      InventoryStatus
	InventoryAppliedAt   *time.Time
	InventoryRestoredAt  *time.Time
	PostDeliveryAction   *OrderStatus
	PostDeliveryActionAt *time.Time
	Items                []OrderItem
}

// NewOrder creates an order in the initial status of its lifecycle.
// The grand total is the sum of the line amounts.
func NewOrder(tenantID uuid.UUID, orderType OrderType, code string, counterpartyID uuid.UUID) (*Order, error) {
	lifecycle, ok := LifecycleFor(orderType)
	if !ok {
		return nil, shared.NewValidationError("INVALID_ORDER_TYPE", fmt.Sprintf("Unknown order type %q", orderType))
	}
	if code == "" {
		return nil, shared.NewValidationError("INVALID_CODE", "Order code cannot be empty")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_COUNTERPARTY", "Counterparty cannot be empty")
	}

	order := &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Type:                orderType,
		Code:                code,
		CounterpartyID:      counterpartyID,
		GrandTotal:          decimal.Zero,
		PaidAmount:          decimal.Zero,
		Status:              lifecycle.Initial(),
		InventoryStatus:     InventoryPending,
		Items:               make([]OrderItem, 0),
	}
	order.Raise(NewOrderCreatedEvent(order))
	return order, nil
}

// AddItem appends a line and recalculates the grand total
func (o *Order) AddItem(itemID uuid.UUID, quantity, unitPrice decimal.Decimal) (*OrderItem, error) {
	if o.Status != o.Lifecycle().Initial() {
		return nil, shared.NewPolicyViolation("ORDER_LOCKED", "Items can only be added to pending orders")
	}
	if itemID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ITEM", "Item cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PRICE", "Unit price cannot be negative")
	}

	line := OrderItem{
		ID:        uuid.New(),
		OrderID:   o.ID,
		ItemID:    itemID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	o.Items = append(o.Items, line)
	o.GrandTotal = o.GrandTotal.Add(line.Amount())
	return &o.Items[len(o.Items)-1], nil
}

// Lifecycle returns the lifecycle this order follows
func (o *Order) Lifecycle() Lifecycle {
	l, _ := LifecycleFor(o.Type)
	return l
}

// Balance returns grand_total - paid_amount
func (o *Order) Balance() decimal.Decimal {
	return o.GrandTotal.Sub(o.PaidAmount)
}

// IsPaidInFull reports whether the order passes the payment gate
func (o *Order) IsPaidInFull() bool {
	return IsPaidInFull(o.PaidAmount, o.GrandTotal)
}

// CanCollectPayment reports whether new payments may be recorded
func (o *Order) CanCollectPayment() error {
	if o.Status.IsClosing() {
		return shared.NewPolicyViolation(CodeOrderClosed,
			fmt.Sprintf("Cannot collect payment for a %s order", o.Status))
	}
	return nil
}

// CheckTransition runs the transition validator against the order's current state
func (o *Order) CheckTransition(to OrderStatus, evidence Evidence, role shared.Role) error {
	return ValidateTransition(TransitionCheck{
		Lifecycle:  o.Lifecycle(),
		From:       o.Status,
		To:         to,
		Evidence:   evidence,
		PaidAmount: o.PaidAmount,
		GrandTotal: o.GrandTotal,
		Role:       role,
	})
}

// ChangeStatus moves the order to status `to` and returns the previous status.
// The caller must have validated the change with CheckTransition.
func (o *Order) ChangeStatus(to OrderStatus, actor shared.Actor, at time.Time) OrderStatus {
	previous := o.Status
	lifecycle := o.Lifecycle()

	if lifecycle.IsPostDeliveryAction(previous, to) {
		action := to
		o.PostDeliveryAction = &action
		o.PostDeliveryActionAt = &at
	}
	o.Status = to
	o.UpdatedAt = at
	o.IncrementVersion()

	o.Raise(NewOrderStatusChangedEvent(o, previous, actor))
	return previous
}

// IsInventoryApplied reports whether the stock movement for this order is done
func (o *Order) IsInventoryApplied() bool {
	return o.Lifecycle().IsInventoryApplied(o.InventoryStatus)
}

// MarkInventoryReady advances pending inventory to ready_for_deduction/addition
func (o *Order) MarkInventoryReady() {
	if o.InventoryStatus == InventoryPending {
		o.InventoryStatus = o.Lifecycle().InventoryReady
	}
}

// MarkInventoryApplied records that stock moved for this order
func (o *Order) MarkInventoryApplied(at time.Time) {
	o.InventoryStatus = o.Lifecycle().InventoryApplied
	o.InventoryAppliedAt = &at
}

// MarkInventoryRestored records the one permitted backward inventory move,
// allowed only after a post-delivery action
func (o *Order) MarkInventoryRestored(at time.Time) error {
	if o.PostDeliveryAction == nil {
		return shared.NewPolicyViolation("RESTORE_NOT_ALLOWED",
			"Stock can only be restored after a post-delivery cancel or return")
	}
	if !o.IsInventoryApplied() {
		return shared.NewPolicyViolation("RESTORE_NOT_ALLOWED",
			fmt.Sprintf("Inventory is %s; nothing to restore", o.InventoryStatus))
	}
	if o.InventoryRestoredAt != nil {
		return shared.NewPolicyViolation("RESTORE_NOT_ALLOWED", "Stock has already been restored for this order")
	}
	o.InventoryStatus = InventoryPending
	o.InventoryRestoredAt = &at
	return nil
}

// MarkDamaged flags the lines for the given items as damaged
func (o *Order) MarkDamaged(itemIDs []uuid.UUID) {
	damaged := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		damaged[id] = true
	}
	for i := range o.Items {
		if damaged[o.Items[i].ItemID] {
			o.Items[i].IsDamaged = true
		}
	}
}
