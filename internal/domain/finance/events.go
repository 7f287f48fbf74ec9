package finance

import (
	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypePayment = "PaymentTransaction"

// Event type constants
const (
	EventTypePaymentCollected = "PaymentCollected"
	EventTypePaymentsReversed = "PaymentsReversed"
)

// PaymentCollectedEvent is raised after a payment is committed
type PaymentCollectedEvent struct {
	shared.BaseDomainEvent
	PaymentID  uuid.UUID       `json:"payment_id"`
	OrderID    uuid.UUID       `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// NewPaymentCollectedEvent creates a new PaymentCollectedEvent
func NewPaymentCollectedEvent(p *PaymentTransaction, newBalance decimal.Decimal) *PaymentCollectedEvent {
	return &PaymentCollectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCollected, AggregateTypePayment, p.ID, p.TenantID),
		PaymentID:       p.ID,
		OrderID:         p.OrderID,
		Amount:          p.Amount,
		NewBalance:      newBalance,
	}
}

// PaymentsReversedEvent is raised after the reversal engine ran for an order
type PaymentsReversedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	Reason        string          `json:"reason"`
	TotalReversed decimal.Decimal `json:"total_reversed"`
	ReversedCount int             `json:"reversed_count"`
	FailedCount   int             `json:"failed_count"`
}

// NewPaymentsReversedEvent creates a new PaymentsReversedEvent
func NewPaymentsReversedEvent(tenantID, orderID uuid.UUID, reason string, total decimal.Decimal, reversed, failed int) *PaymentsReversedEvent {
	return &PaymentsReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentsReversed, AggregateTypePayment, orderID, tenantID),
		OrderID:         orderID,
		Reason:          reason,
		TotalReversed:   total,
		ReversedCount:   reversed,
		FailedCount:     failed,
	}
}
