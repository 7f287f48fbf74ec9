package trade

import (
	"github.com/orderflow/backend/internal/domain/inventory"
)

// OrderType selects which of the two parallel lifecycles an order follows
type OrderType string

const (
	// OrderTypeSale covers sale orders and retail invoices
	OrderTypeSale OrderType = "sale"
	// OrderTypePurchase covers purchase orders and supplier bills
	OrderTypePurchase OrderType = "purchase"
)

// IsValid checks if the order type is known
func (t OrderType) IsValid() bool {
	return t == OrderTypeSale || t == OrderTypePurchase
}

// String returns the string representation of OrderType
func (t OrderType) String() string {
	return string(t)
}

// OrderStatus is a lifecycle status label
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusCancelled  OrderStatus = "Cancelled"
	StatusReturned   OrderStatus = "Returned"

	// Sale side
	StatusCompleted OrderStatus = "Completed"
	StatusDelivery  OrderStatus = "Delivery"
	StatusPOD       OrderStatus = "POD"

	// Purchase side
	StatusOrdered OrderStatus = "Ordered"
	StatusShipped OrderStatus = "Shipped"
	StatusROG     OrderStatus = "ROG"
)

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsClosing reports whether s is one of the two exits (Cancelled, Returned)
func (s OrderStatus) IsClosing() bool {
	return s == StatusCancelled || s == StatusReturned
}

// InventoryStatus tracks whether an order's stock movement has been applied
type InventoryStatus string

const (
	InventoryPending           InventoryStatus = "pending"
	InventoryReadyForDeduction InventoryStatus = "ready_for_deduction"
	InventoryDeducted          InventoryStatus = "deducted"
	InventoryReadyForAddition  InventoryStatus = "ready_for_addition"
	InventoryAdded             InventoryStatus = "added"
)

// Lifecycle describes one order lifecycle. Sale and purchase orders share the
// same rules and differ only in the labels and the stock direction held here.
type Lifecycle struct {
	Type OrderType
	// Flow is the forward progression; the first entry is the initial status
	// and the last entry is the delivered/received status.
	Flow      []OrderStatus
	InTransit OrderStatus
	Delivered OrderStatus

	Direction        inventory.Direction
	InventoryReady   InventoryStatus
	InventoryApplied InventoryStatus
}

// SaleLifecycle is Pending → Processing → Completed → Delivery → POD
var SaleLifecycle = Lifecycle{
	Type:             OrderTypeSale,
	Flow:             []OrderStatus{StatusPending, StatusProcessing, StatusCompleted, StatusDelivery, StatusPOD},
	InTransit:        StatusDelivery,
	Delivered:        StatusPOD,
	Direction:        inventory.DirectionDeduct,
	InventoryReady:   InventoryReadyForDeduction,
	InventoryApplied: InventoryDeducted,
}

// PurchaseLifecycle is Pending → Processing → Ordered → Shipped → ROG
var PurchaseLifecycle = Lifecycle{
	Type:             OrderTypePurchase,
	Flow:             []OrderStatus{StatusPending, StatusProcessing, StatusOrdered, StatusShipped, StatusROG},
	InTransit:        StatusShipped,
	Delivered:        StatusROG,
	Direction:        inventory.DirectionAdd,
	InventoryReady:   InventoryReadyForAddition,
	InventoryApplied: InventoryAdded,
}

// LifecycleFor returns the lifecycle of an order type
func LifecycleFor(t OrderType) (Lifecycle, bool) {
	switch t {
	case OrderTypeSale:
		return SaleLifecycle, true
	case OrderTypePurchase:
		return PurchaseLifecycle, true
	}
	return Lifecycle{}, false
}

// Initial returns the status new orders start in
func (l Lifecycle) Initial() OrderStatus {
	return l.Flow[0]
}

// Contains reports whether s is a status of this lifecycle
func (l Lifecycle) Contains(s OrderStatus) bool {
	if s.IsClosing() {
		return true
	}
	return l.position(s) >= 0
}

// IsTerminal reports whether normal forward flow has ended at s
func (l Lifecycle) IsTerminal(s OrderStatus) bool {
	return s == l.Delivered || s.IsClosing()
}

// IsPostDeliveryAction reports whether moving from → to cancels or returns an
// order that was already delivered/received
func (l Lifecycle) IsPostDeliveryAction(from, to OrderStatus) bool {
	return from == l.Delivered && to.IsClosing()
}

// IsPreDispatch reports whether s comes before the in-transit status.
// Delivery staff may not move orders back into these statuses.
func (l Lifecycle) IsPreDispatch(s OrderStatus) bool {
	pos := l.position(s)
	return pos >= 0 && pos < l.position(l.InTransit)
}

// IsInventoryApplied reports whether status marks the stock movement as done
func (l Lifecycle) IsInventoryApplied(status InventoryStatus) bool {
	return status == l.InventoryApplied
}

func (l Lifecycle) position(s OrderStatus) int {
	for i, st := range l.Flow {
		if st == s {
			return i
		}
	}
	return -1
}
