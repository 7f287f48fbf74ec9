package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementReason says why stock moved
type MovementReason string

const (
	// ReasonOrderApplied is the delivery/receipt movement of an order
	ReasonOrderApplied MovementReason = "order_applied"
	// ReasonOrderRestored is an explicitly requested undo after a post-delivery action
	ReasonOrderRestored MovementReason = "order_restored"
)

// Movement is the audit row written for every stock change made on behalf of an order
type Movement struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	OrderID      uuid.UUID
	ItemID       uuid.UUID
	Direction    Direction
	Quantity     decimal.Decimal
	BalanceAfter decimal.Decimal
	Reason       MovementReason
	PerformedBy  *uuid.UUID
	CreatedAt    time.Time
}

// NewMovement creates a movement record
func NewMovement(tenantID, orderID, itemID uuid.UUID, d Direction, quantity, balanceAfter decimal.Decimal, reason MovementReason, performedBy *uuid.UUID) *Movement {
	return &Movement{
		ID:           uuid.New(),
		TenantID:     tenantID,
		OrderID:      orderID,
		ItemID:       itemID,
		Direction:    d,
		Quantity:     quantity,
		BalanceAfter: balanceAfter,
		Reason:       reason,
		PerformedBy:  performedBy,
		CreatedAt:    time.Now(),
	}
}
