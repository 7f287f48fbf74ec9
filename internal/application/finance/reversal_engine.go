package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Error codes raised by the reversal engine
const (
	CodeReasonRequired   = "REASON_REQUIRED"
	CodeNotReviewRequest = "NOT_A_REVIEW_REQUEST"
)

// ReversalEngine reverses payments of an order. The automatic path runs
// inside the caller's transaction with one savepoint per payment, so a single
// bad payment never blocks the others. Manual operations open their own
// transaction through the scope.
type ReversalEngine struct {
	scope   TransactionScope
	metrics Metrics
	logger  *zap.Logger
}

// NewReversalEngine creates a new ReversalEngine
func NewReversalEngine(scope TransactionScope, metrics Metrics, logger *zap.Logger) *ReversalEngine {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReversalEngine{
		scope:   scope,
		metrics: metrics,
		logger:  logger,
	}
}

// reversalRequest carries what one payment reversal needs besides the payment
type reversalRequest struct {
	action   finance.ActionType
	previous string
	next     string
	reason   string
	actor    shared.Actor
	// skipInactive makes a payment that is no longer active a silent no-op
	// instead of an error
	skipInactive bool
}

// ReverseAll reverses every active payment of order, oldest first.
// A payment whose reversal fails is rolled back to its savepoint, logged as
// failed and counted; the loop continues. With no active payments the result
// is an empty summary.
func (e *ReversalEngine) ReverseAll(ctx context.Context, store Store, order *trade.Order, previous, to trade.OrderStatus, actor shared.Actor) (*ReversalSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_reversal", "reverse_all",
		telemetry.OrderID(order.ID), telemetry.Reason(string(to)))
	defer span.End()

	summary := &ReversalSummary{
		OrderID:       order.ID,
		Reason:        string(to),
		TotalReversed: decimal.Zero,
		Entries:       make([]ReversalEntry, 0),
	}

	payments, err := store.Payments().FindActiveByOrder(ctx, order.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return summary, fmt.Errorf("list active payments: %w", err)
	}

	req := reversalRequest{
		action:       finance.ActionAutomaticReversal,
		previous:     string(previous),
		next:         string(to),
		reason:       string(to),
		actor:        actor,
		skipInactive: true,
	}
	for i := range payments {
		payment := payments[i]
		entry, err := e.reverseOne(ctx, store, payment.ID, req)
		if err != nil {
			e.recordFailure(ctx, store, &payment, req, err)
			summary.FailedCount++
			summary.Entries = append(summary.Entries, ReversalEntry{
				PaymentID: payment.ID,
				Amount:    payment.Amount,
				Status:    string(finance.LogStatusFailed),
				Error:     err.Error(),
			})
			continue
		}
		if entry == nil {
			continue
		}
		summary.ReversedCount++
		summary.TotalReversed = summary.TotalReversed.Add(entry.Amount)
		summary.Entries = append(summary.Entries, *entry)
	}

	e.metrics.RecordPaymentReversals(ctx, order.TenantID, string(to), summary.ReversedCount, summary.FailedCount)
	e.logger.Info("payments reversed",
		zap.String("order_id", order.ID.String()),
		zap.String("reason", string(to)),
		zap.String("total_reversed", summary.TotalReversed.String()),
		zap.Int("reversed", summary.ReversedCount),
		zap.Int("failed", summary.FailedCount),
	)
	return summary, nil
}

// reverseOne reverses a single payment inside its own savepoint.
// It returns nil, nil when the payment is no longer active and skipInactive is set.
func (e *ReversalEngine) reverseOne(ctx context.Context, store Store, paymentID uuid.UUID, req reversalRequest) (*ReversalEntry, error) {
	var entry *ReversalEntry
	err := store.Savepoint(ctx, func(tx Store) error {
		payment, err := tx.Payments().FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if !payment.IsActive() && req.skipInactive {
			e.logger.Debug("payment no longer active, skipping",
				zap.String("payment_id", paymentID.String()),
				zap.String("payment_status", payment.PaymentStatus.String()),
			)
			return nil
		}
		if err := payment.BeginReversal(); err != nil {
			return err
		}
		if err := tx.Payments().UpdateStatus(ctx, payment); err != nil {
			return fmt.Errorf("mark payment pending reversal: %w", err)
		}

		now := time.Now()
		reversal := payment.NewReversal(req.reason, req.actor, now)
		if err := tx.Payments().Create(ctx, reversal); err != nil {
			return fmt.Errorf("create reversal entry: %w", err)
		}

		paid, clamped, err := tx.Orders().AdjustPaidAmount(ctx, payment.OrderID, payment.Amount.Neg())
		if err != nil {
			return fmt.Errorf("adjust paid amount: %w", err)
		}

		if err := payment.CompleteReversal(req.actor, now); err != nil {
			return err
		}
		if err := tx.Payments().UpdateStatus(ctx, payment); err != nil {
			return fmt.Errorf("mark payment reversed: %w", err)
		}

		log := finance.NewReversalLog(payment.TenantID, payment.OrderID, req.action,
			req.previous, req.next, payment.Amount, req.reason, req.actor, finance.LogStatusCompleted).
			ForPayment(payment.ID, &reversal.ID).
			WithDetail("paid_amount_after", paid.String())
		if clamped {
			log.WithDetail(finance.DetailPartialReversalMismatch, true)
			e.logger.Warn("paid amount clamped at zero during reversal",
				zap.String("order_id", payment.OrderID.String()),
				zap.String("payment_id", payment.ID.String()),
				zap.String("amount", payment.Amount.String()),
			)
		}
		if err := tx.ReversalLogs().Create(ctx, log); err != nil {
			return fmt.Errorf("write reversal log: %w", err)
		}

		reversalID := reversal.ID
		entry = &ReversalEntry{
			PaymentID:         payment.ID,
			ReversalPaymentID: &reversalID,
			Amount:            payment.Amount,
			Status:            string(finance.LogStatusCompleted),
			Clamped:           clamped,
		}
		return nil
	})
	return entry, err
}

// recordFailure writes a failed log row outside the rolled-back savepoint.
// If even that fails the error is only logged; the caller carries on.
func (e *ReversalEngine) recordFailure(ctx context.Context, store Store, payment *finance.PaymentTransaction, req reversalRequest, cause error) {
	e.logger.Error("payment reversal failed",
		zap.String("order_id", payment.OrderID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.Error(cause),
	)
	log := finance.NewReversalLog(payment.TenantID, payment.OrderID, req.action,
		req.previous, req.next, payment.Amount, req.reason, req.actor, finance.LogStatusPending).
		ForPayment(payment.ID, nil)
	log.Fail(cause)
	if err := store.ReversalLogs().Create(ctx, log); err != nil {
		e.logger.Error("failed to record reversal failure",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
}

// RecordEngineFailure logs a reversal run that could not start at all, such
// as when the payments of the order could not be listed
func (e *ReversalEngine) RecordEngineFailure(ctx context.Context, store Store, order *trade.Order, previous, to trade.OrderStatus, actor shared.Actor, cause error) {
	e.logger.Error("payment reversal engine failed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(to)),
		zap.Error(cause),
	)
	log := finance.NewReversalLog(order.TenantID, order.ID, finance.ActionAutomaticReversal,
		string(previous), string(to), order.PaidAmount, string(to), actor, finance.LogStatusPending)
	log.Fail(cause)
	if err := store.ReversalLogs().Create(ctx, log); err != nil {
		e.logger.Error("failed to record reversal engine failure",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

// RequestReview appends the pending review_requested row that flags an order
// for manual follow-up after a partial reversal
func (e *ReversalEngine) RequestReview(ctx context.Context, store Store, order *trade.Order, previous, to trade.OrderStatus, summary *ReversalSummary, actor shared.Actor) (*finance.PaymentReversalLog, error) {
	failedAmount := decimal.Zero
	for _, entry := range summary.Entries {
		if entry.Status == string(finance.LogStatusFailed) {
			failedAmount = failedAmount.Add(entry.Amount)
		}
	}
	log := finance.NewReversalLog(order.TenantID, order.ID, finance.ActionReviewRequested,
		string(previous), string(to), failedAmount,
		fmt.Sprintf("%d payment(s) could not be reversed", summary.FailedCount), actor, finance.LogStatusPending).
		WithDetail("failed_payment_ids", summary.FailedPaymentIDs()).
		WithDetail("reversed_count", summary.ReversedCount).
		WithDetail("failed_count", summary.FailedCount)
	if err := store.ReversalLogs().Create(ctx, log); err != nil {
		return nil, fmt.Errorf("write review request: %w", err)
	}
	return log, nil
}

// ReversePayment manually reverses a single payment. Reversing a payment that
// is already reversed fails with PAYMENT_ALREADY_REVERSED.
func (e *ReversalEngine) ReversePayment(ctx context.Context, tenantID, paymentID uuid.UUID, reason string, actor shared.Actor) (*ReversalEntry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_reversal", "reverse_payment", telemetry.PaymentID(paymentID))
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewValidationError(CodeReasonRequired, "A reason is required to reverse a payment")
	}

	var entry *ReversalEntry
	err := e.scope.Execute(ctx, func(store Store) error {
		payment, err := store.Payments().FindByID(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		// Lock the order first, the same order the status service takes locks in
		order, err := store.Orders().FindByIDForUpdate(ctx, tenantID, payment.OrderID)
		if err != nil {
			return err
		}
		entry, err = e.reverseOne(ctx, store, paymentID, reversalRequest{
			action:   finance.ActionManualReversal,
			previous: string(order.Status),
			next:     string(order.Status),
			reason:   reason,
			actor:    actor,
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	e.metrics.RecordPaymentReversals(ctx, tenantID, reason, 1, 0)
	e.logger.Info("payment reversed manually",
		zap.String("payment_id", paymentID.String()),
		zap.String("reason", reason),
	)
	return entry, nil
}

// FlagPayment records a suspicious payment for review without moving money
func (e *ReversalEngine) FlagPayment(ctx context.Context, tenantID, paymentID uuid.UUID, reason string, actor shared.Actor) (*ReversalLogResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewValidationError(CodeReasonRequired, "A reason is required to flag a payment")
	}

	var response ReversalLogResponse
	err := e.scope.Execute(ctx, func(store Store) error {
		payment, err := store.Payments().FindByID(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		order, err := store.Orders().FindByID(ctx, tenantID, payment.OrderID)
		if err != nil {
			return err
		}
		log := finance.NewReversalLog(tenantID, payment.OrderID, finance.ActionPaymentFlagged,
			string(order.Status), string(order.Status), payment.Amount, reason, actor, finance.LogStatusCompleted).
			ForPayment(payment.ID, nil).
			WithDetail("payment_status", payment.PaymentStatus.String())
		if err := store.ReversalLogs().Create(ctx, log); err != nil {
			return err
		}
		response = ToReversalLogResponse(log)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("payment flagged",
		zap.String("payment_id", paymentID.String()),
		zap.String("reason", reason),
	)
	return &response, nil
}

// CompleteReview closes a pending review request and appends a
// review_completed row carrying the resolution
func (e *ReversalEngine) CompleteReview(ctx context.Context, tenantID, logID uuid.UUID, resolution string, actor shared.Actor) (*ReversalLogResponse, error) {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, shared.NewValidationError(CodeReasonRequired, "A resolution is required to complete a review")
	}

	var response ReversalLogResponse
	err := e.scope.Execute(ctx, func(store Store) error {
		request, err := store.ReversalLogs().FindByID(ctx, tenantID, logID)
		if err != nil {
			return err
		}
		if request.ActionType != finance.ActionReviewRequested {
			return shared.NewPolicyViolation(CodeNotReviewRequest,
				fmt.Sprintf("Reversal log %s is a %s entry", logID, request.ActionType))
		}
		if err := request.Resolve(finance.LogStatusCompleted); err != nil {
			return err
		}
		if err := store.ReversalLogs().UpdateStatus(ctx, request); err != nil {
			return err
		}

		done := finance.NewReversalLog(tenantID, request.OrderID, finance.ActionReviewCompleted,
			request.PreviousOrderStatus, request.NewOrderStatus, request.AmountInvolved,
			resolution, actor, finance.LogStatusCompleted).
			WithDetail("review_log_id", request.ID.String())
		if err := store.ReversalLogs().Create(ctx, done); err != nil {
			return err
		}
		response = ToReversalLogResponse(done)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// ListReversalLogs returns the reversal audit of an order, newest first
func (e *ReversalEngine) ListReversalLogs(ctx context.Context, tenantID, orderID uuid.UUID) ([]ReversalLogResponse, error) {
	var responses []ReversalLogResponse
	err := e.scope.Execute(ctx, func(store Store) error {
		if _, err := store.Orders().FindByID(ctx, tenantID, orderID); err != nil {
			return err
		}
		logs, err := store.ReversalLogs().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		responses = make([]ReversalLogResponse, len(logs))
		for i := range logs {
			responses[i] = ToReversalLogResponse(&logs[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}
