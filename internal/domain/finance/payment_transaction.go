package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the state of a payment transaction
type PaymentStatus string

const (
	PaymentStatusActive          PaymentStatus = "active"
	PaymentStatusPendingReversal PaymentStatus = "pending_reversal"
	PaymentStatusReversed        PaymentStatus = "reversed"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// Error codes for payment operations
const (
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodePaymentAlreadyReversed = "PAYMENT_ALREADY_REVERSED"
	CodeNotReversible          = "PAYMENT_NOT_REVERSIBLE"
)

// PaymentTransaction is money received for (or paid on) an order, or the
// reversal of such a payment. Rows are never deleted.
type PaymentTransaction struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	OrderID           uuid.UUID
	Amount            decimal.Decimal
	PaymentTypeID     *uuid.UUID
	TransactionDate   time.Time
	Note              string
	ReferenceNumber   string
	IsReversal        bool
	OriginalPaymentID *uuid.UUID
	ReversalReason    string
	ReversedAt        *time.Time
	ReversedBy        *uuid.UUID
	PaymentStatus     PaymentStatus
	CreatedBy         *uuid.UUID
	CreatedAt         time.Time
}

// NewPayment creates an active payment
func NewPayment(tenantID, orderID uuid.UUID, amount decimal.Decimal, paymentTypeID *uuid.UUID, reference, note string, createdBy *uuid.UUID) (*PaymentTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError(CodeInvalidAmount, "Payment amount must be positive")
	}
	now := time.Now()
	return &PaymentTransaction{
		ID:              uuid.New(),
		TenantID:        tenantID,
		OrderID:         orderID,
		Amount:          amount,
		PaymentTypeID:   paymentTypeID,
		TransactionDate: now,
		Note:            note,
		ReferenceNumber: reference,
		PaymentStatus:   PaymentStatusActive,
		CreatedBy:       createdBy,
		CreatedAt:       now,
	}, nil
}

// IsActive reports whether the payment still counts toward the paid amount
func (p *PaymentTransaction) IsActive() bool {
	return !p.IsReversal && p.PaymentStatus == PaymentStatusActive
}

// BeginReversal moves an active payment to pending_reversal
func (p *PaymentTransaction) BeginReversal() error {
	if p.IsReversal {
		return shared.NewPolicyViolation(CodeNotReversible, "A reversal entry cannot itself be reversed")
	}
	switch p.PaymentStatus {
	case PaymentStatusActive:
		p.PaymentStatus = PaymentStatusPendingReversal
		return nil
	case PaymentStatusReversed:
		return shared.NewPolicyViolation(CodePaymentAlreadyReversed,
			fmt.Sprintf("Payment %s has already been reversed", p.ID))
	}
	return shared.NewPolicyViolation(CodeNotReversible,
		fmt.Sprintf("Payment %s is %s", p.ID, p.PaymentStatus))
}

// NewReversal creates the entry negating this payment. The entry carries the
// same amount as the original and links back to it.
func (p *PaymentTransaction) NewReversal(reason string, actor shared.Actor, at time.Time) *PaymentTransaction {
	originalID := p.ID
	return &PaymentTransaction{
		ID:                uuid.New(),
		TenantID:          p.TenantID,
		OrderID:           p.OrderID,
		Amount:            p.Amount,
		PaymentTypeID:     p.PaymentTypeID,
		TransactionDate:   at,
		Note:              fmt.Sprintf("Reversal of payment %s", p.ID),
		ReferenceNumber:   p.ReferenceNumber,
		IsReversal:        true,
		OriginalPaymentID: &originalID,
		ReversalReason:    reason,
		PaymentStatus:     PaymentStatusReversed,
		CreatedBy:         actor.IDPtr(),
		CreatedAt:         at,
	}
}

// CompleteReversal marks a pending_reversal payment as reversed
func (p *PaymentTransaction) CompleteReversal(actor shared.Actor, at time.Time) error {
	if p.PaymentStatus != PaymentStatusPendingReversal {
		return shared.NewPolicyViolation(CodeNotReversible,
			fmt.Sprintf("Payment %s is %s, expected %s", p.ID, p.PaymentStatus, PaymentStatusPendingReversal))
	}
	p.PaymentStatus = PaymentStatusReversed
	p.ReversedAt = &at
	p.ReversedBy = actor.IDPtr()
	return nil
}
