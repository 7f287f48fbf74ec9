package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ========================================
// Payment collection DTOs
// ========================================

// CollectPaymentCommand records a payment against an order
type CollectPaymentCommand struct {
	TenantID        uuid.UUID
	OrderID         uuid.UUID
	Amount          decimal.Decimal
	PaymentTypeID   *uuid.UUID
	ReferenceNumber string
	Note            string
	// IdempotencyKey, when set, makes a retried request a DUPLICATE_REQUEST instead of a second payment
	IdempotencyKey string
	Actor          shared.Actor
}

// CollectPaymentResult is returned after a payment is committed
type CollectPaymentResult struct {
	PaymentID  uuid.UUID       `json:"payment_id"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// PaymentHistoryEntry is one row of an order's payment history
type PaymentHistoryEntry struct {
	ID                uuid.UUID       `json:"id"`
	TransactionDate   time.Time       `json:"transaction_date"`
	Amount            decimal.Decimal `json:"amount"`
	Type              string          `json:"type"`
	PaymentTypeID     *uuid.UUID      `json:"payment_type_id,omitempty"`
	ReferenceNumber   string          `json:"reference_number,omitempty"`
	Note              string          `json:"note,omitempty"`
	IsReversal        bool            `json:"is_reversal"`
	OriginalPaymentID *uuid.UUID      `json:"original_payment_id,omitempty"`
	PaymentStatus     string          `json:"payment_status"`
}

// Payment history entry types
const (
	EntryTypePayment  = "payment"
	EntryTypeReversal = "reversal"
)

// ToPaymentHistoryEntry converts a domain payment to a history entry
func ToPaymentHistoryEntry(p *finance.PaymentTransaction) PaymentHistoryEntry {
	entryType := EntryTypePayment
	if p.IsReversal {
		entryType = EntryTypeReversal
	}
	return PaymentHistoryEntry{
		ID:                p.ID,
		TransactionDate:   p.TransactionDate,
		Amount:            p.Amount,
		Type:              entryType,
		PaymentTypeID:     p.PaymentTypeID,
		ReferenceNumber:   p.ReferenceNumber,
		Note:              p.Note,
		IsReversal:        p.IsReversal,
		OriginalPaymentID: p.OriginalPaymentID,
		PaymentStatus:     p.PaymentStatus.String(),
	}
}

// PaymentHistoryResponse lists the payments of an order with its balance
type PaymentHistoryResponse struct {
	OrderID    uuid.UUID             `json:"order_id"`
	GrandTotal decimal.Decimal       `json:"grand_total"`
	PaidAmount decimal.Decimal       `json:"paid_amount"`
	Balance    decimal.Decimal       `json:"balance"`
	Entries    []PaymentHistoryEntry `json:"entries"`
}

// ========================================
// Reversal DTOs
// ========================================

// ReversalEntry is the outcome for one payment in a reversal run
type ReversalEntry struct {
	PaymentID         uuid.UUID       `json:"payment_id"`
	ReversalPaymentID *uuid.UUID      `json:"reversal_payment_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	Error             string          `json:"error,omitempty"`
	Clamped           bool            `json:"clamped,omitempty"`
}

// ReversalSummary aggregates a reversal run over an order's payments
type ReversalSummary struct {
	OrderID       uuid.UUID       `json:"order_id"`
	Reason        string          `json:"reason"`
	TotalReversed decimal.Decimal `json:"total_reversed"`
	ReversedCount int             `json:"reversed_count"`
	FailedCount   int             `json:"failed_count"`
	// EngineError is set when the run failed as a whole and nothing was reversed
	EngineError string          `json:"engine_error,omitempty"`
	Entries     []ReversalEntry `json:"entries"`
}

// HasFailures reports whether any payment could not be reversed
func (s *ReversalSummary) HasFailures() bool {
	return s != nil && (s.FailedCount > 0 || s.EngineError != "")
}

// FailedPaymentIDs lists the payments that could not be reversed
func (s *ReversalSummary) FailedPaymentIDs() []string {
	ids := make([]string, 0, s.FailedCount)
	for _, e := range s.Entries {
		if e.Status == string(finance.LogStatusFailed) {
			ids = append(ids, e.PaymentID.String())
		}
	}
	return ids
}

// ReversalLogResponse is the API view of a reversal log row
type ReversalLogResponse struct {
	ID                  uuid.UUID       `json:"id"`
	OrderID             uuid.UUID       `json:"order_id"`
	OriginalPaymentID   *uuid.UUID      `json:"original_payment_id,omitempty"`
	ReversalPaymentID   *uuid.UUID      `json:"reversal_payment_id,omitempty"`
	ActionType          string          `json:"action_type"`
	PreviousOrderStatus string          `json:"previous_order_status"`
	NewOrderStatus      string          `json:"new_order_status"`
	AmountInvolved      decimal.Decimal `json:"amount_involved"`
	ActionReason        string          `json:"action_reason"`
	ActionDetails       map[string]any  `json:"action_details,omitempty"`
	PerformedBy         *uuid.UUID      `json:"performed_by,omitempty"`
	PerformedAt         time.Time       `json:"performed_at"`
	Status              string          `json:"status"`
	ErrorMessage        string          `json:"error_message,omitempty"`
}

// ToReversalLogResponse converts a domain log row to a response
func ToReversalLogResponse(l *finance.PaymentReversalLog) ReversalLogResponse {
	return ReversalLogResponse{
		ID:                  l.ID,
		OrderID:             l.OrderID,
		OriginalPaymentID:   l.OriginalPaymentID,
		ReversalPaymentID:   l.ReversalPaymentID,
		ActionType:          string(l.ActionType),
		PreviousOrderStatus: l.PreviousOrderStatus,
		NewOrderStatus:      l.NewOrderStatus,
		AmountInvolved:      l.AmountInvolved,
		ActionReason:        l.ActionReason,
		ActionDetails:       l.ActionDetails,
		PerformedBy:         l.PerformedBy,
		PerformedAt:         l.PerformedAt,
		Status:              string(l.Status),
		ErrorMessage:        l.ErrorMessage,
	}
}
