package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
)

// StatusHistory is one committed status change of an order. Rows are only
// ever appended.
type StatusHistory struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	OrderID        uuid.UUID
	OrderType      OrderType
	PreviousStatus *OrderStatus
	NewStatus      OrderStatus
	Notes          string
	ProofImage     string
	Signature      string
	Latitude       *float64
	Longitude      *float64
	ChangedBy      *uuid.UUID
	ChangedByName  string
	ChangedAt      time.Time
}

// NewStatusHistory builds the audit row for a transition. previous is nil for
// the row seeded at order creation.
func NewStatusHistory(order *Order, previous *OrderStatus, evidence Evidence, actor shared.Actor, at time.Time) *StatusHistory {
	return &StatusHistory{
		ID:             uuid.New(),
		TenantID:       order.TenantID,
		OrderID:        order.ID,
		OrderType:      order.Type,
		PreviousStatus: previous,
		NewStatus:      order.Status,
		Notes:          evidence.Notes,
		ProofImage:     evidence.ProofImage,
		Signature:      evidence.Signature,
		Latitude:       evidence.Latitude,
		Longitude:      evidence.Longitude,
		ChangedBy:      actor.IDPtr(),
		ChangedByName:  actor.Name,
		ChangedAt:      at,
	}
}
