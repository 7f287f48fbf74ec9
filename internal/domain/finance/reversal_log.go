package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ActionType is the kind of decision recorded in the reversal log
type ActionType string

const (
	ActionAutomaticReversal ActionType = "automatic_reversal"
	ActionManualReversal    ActionType = "manual_reversal"
	ActionPaymentFlagged    ActionType = "payment_flagged"
	ActionReviewRequested   ActionType = "review_requested"
	ActionReviewCompleted   ActionType = "review_completed"
	ActionPartialRefund     ActionType = "partial_refund"
	ActionStoreCreditIssued ActionType = "store_credit_issued"
)

// LogStatus is the processing state of a reversal log row
type LogStatus string

const (
	LogStatusPending   LogStatus = "pending"
	LogStatusCompleted LogStatus = "completed"
	LogStatusFailed    LogStatus = "failed"
	LogStatusCancelled LogStatus = "cancelled"
)

// IsTerminal reports whether the row can no longer change
func (s LogStatus) IsTerminal() bool {
	return s != LogStatusPending
}

// DetailPartialReversalMismatch is set in ActionDetails when paid_amount had
// to be clamped at zero
const DetailPartialReversalMismatch = "partial_reversal_mismatch"

// PaymentReversalLog is the append-only audit of every reversal decision.
// Only Status and ErrorMessage may advance, from pending to a terminal value.
type PaymentReversalLog struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	OrderID             uuid.UUID
	OriginalPaymentID   *uuid.UUID
	ReversalPaymentID   *uuid.UUID
	ActionType          ActionType
	PreviousOrderStatus string
	NewOrderStatus      string
	AmountInvolved      decimal.Decimal
	ActionReason        string
	ActionDetails       map[string]any
	PerformedBy         *uuid.UUID
	PerformedAt         time.Time
	Status              LogStatus
	ErrorMessage        string
}

// NewReversalLog creates a log row in the given status
func NewReversalLog(tenantID, orderID uuid.UUID, action ActionType, previousStatus, newStatus string, amount decimal.Decimal, reason string, actor shared.Actor, status LogStatus) *PaymentReversalLog {
	return &PaymentReversalLog{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		OrderID:             orderID,
		ActionType:          action,
		PreviousOrderStatus: previousStatus,
		NewOrderStatus:      newStatus,
		AmountInvolved:      amount,
		ActionReason:        reason,
		ActionDetails:       make(map[string]any),
		PerformedBy:         actor.IDPtr(),
		PerformedAt:         time.Now(),
		Status:              status,
	}
}

// ForPayment links the row to the original payment and, when known, its reversal entry
func (l *PaymentReversalLog) ForPayment(original uuid.UUID, reversal *uuid.UUID) *PaymentReversalLog {
	l.OriginalPaymentID = &original
	l.ReversalPaymentID = reversal
	return l
}

// WithDetail adds a structured detail
func (l *PaymentReversalLog) WithDetail(key string, value any) *PaymentReversalLog {
	if l.ActionDetails == nil {
		l.ActionDetails = make(map[string]any)
	}
	l.ActionDetails[key] = value
	return l
}

// Fail marks the row failed with the cause
func (l *PaymentReversalLog) Fail(err error) {
	l.Status = LogStatusFailed
	l.ErrorMessage = err.Error()
}

// Resolve advances a pending row to a terminal status
func (l *PaymentReversalLog) Resolve(status LogStatus) error {
	if l.Status.IsTerminal() {
		return shared.NewPolicyViolation("LOG_ALREADY_RESOLVED",
			fmt.Sprintf("Reversal log %s is already %s", l.ID, l.Status))
	}
	if !status.IsTerminal() {
		return shared.NewValidationError(shared.CodeInvalidInput, "Target status must be terminal")
	}
	l.Status = status
	return nil
}
