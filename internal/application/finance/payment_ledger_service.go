package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// idempotencyKeyPrefix namespaces payment request keys in the idempotency store
const idempotencyKeyPrefix = "payment:collect:"

// PaymentLedgerService records payments against orders and reports balances
type PaymentLedgerService struct {
	scope          TransactionScope
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	events         shared.EventPublisher
	metrics        Metrics
	logger         *zap.Logger
}

// PaymentLedgerConfig holds the optional collaborators of the ledger service
type PaymentLedgerConfig struct {
	// IdempotencyStore is consulted when a command carries an IdempotencyKey; nil disables the check
	IdempotencyStore shared.IdempotencyStore
	IdempotencyTTL   time.Duration
	EventPublisher   shared.EventPublisher
	Metrics          Metrics
	Logger           *zap.Logger
}

// NewPaymentLedgerService creates a new PaymentLedgerService
func NewPaymentLedgerService(scope TransactionScope, cfg PaymentLedgerConfig) *PaymentLedgerService {
	s := &PaymentLedgerService{
		scope:          scope,
		idempotency:    cfg.IdempotencyStore,
		idempotencyTTL: cfg.IdempotencyTTL,
		events:         cfg.EventPublisher,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
	}
	if s.idempotencyTTL <= 0 {
		s.idempotencyTTL = shared.DefaultIdempotencyTTL
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// CollectPayment records a payment and raises paid_amount by its amount.
// Overpayment is accepted; closed (cancelled or returned) orders are not.
func (s *PaymentLedgerService) CollectPayment(ctx context.Context, cmd CollectPaymentCommand) (*CollectPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_ledger", "collect_payment",
		telemetry.OrderID(cmd.OrderID), telemetry.Amount(cmd.Amount))
	defer span.End()

	key := ""
	if cmd.IdempotencyKey != "" && s.idempotency != nil {
		key = idempotencyKeyPrefix + cmd.TenantID.String() + ":" + cmd.IdempotencyKey
		won, err := s.idempotency.Claim(ctx, key, s.idempotencyTTL)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if !won {
			return nil, s.duplicateRequest(ctx, key, cmd)
		}
	}

	result, payment, err := s.collect(ctx, cmd)
	if err != nil {
		if key != "" {
			if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
				s.logger.Warn("failed to release idempotency key",
					zap.String("key", key), zap.Error(releaseErr))
			}
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if key != "" {
		if err := s.idempotency.Complete(ctx, key, result.PaymentID.String(), s.idempotencyTTL); err != nil {
			// the key stays claimed, so a retry is still rejected
			s.logger.Warn("failed to store idempotency result",
				zap.String("key", key), zap.Error(err))
		}
	}

	s.metrics.RecordPaymentCollected(ctx, cmd.TenantID)
	s.logger.Info("payment collected",
		zap.String("order_id", cmd.OrderID.String()),
		zap.String("payment_id", result.PaymentID.String()),
		zap.String("amount", cmd.Amount.String()),
		zap.String("new_balance", result.NewBalance.String()),
	)
	if s.events != nil {
		event := finance.NewPaymentCollectedEvent(payment, result.NewBalance)
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish payment collected event",
				zap.String("payment_id", payment.ID.String()), zap.Error(err))
		}
	}
	return result, nil
}

// duplicateRequest names the payment an earlier request with the same key
// recorded, when that request has finished
func (s *PaymentLedgerService) duplicateRequest(ctx context.Context, key string, cmd CollectPaymentCommand) error {
	fields := []zap.Field{
		zap.String("order_id", cmd.OrderID.String()),
		zap.String("idempotency_key", cmd.IdempotencyKey),
	}
	paymentID, done, err := s.idempotency.Result(ctx, key)
	if err != nil || !done {
		s.logger.Info("duplicate payment request rejected", fields...)
		return shared.ErrDuplicateRequest
	}
	s.logger.Info("duplicate payment request rejected", append(fields, zap.String("payment_id", paymentID))...)
	return shared.NewPolicyViolation(shared.CodeDuplicateRequest,
		fmt.Sprintf("Request with this idempotency key was already recorded as payment %s", paymentID))
}

func (s *PaymentLedgerService) collect(ctx context.Context, cmd CollectPaymentCommand) (*CollectPaymentResult, *finance.PaymentTransaction, error) {
	var (
		result  *CollectPaymentResult
		payment *finance.PaymentTransaction
	)
	err := s.scope.Execute(ctx, func(store Store) error {
		order, err := store.Orders().FindByIDForUpdate(ctx, cmd.TenantID, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := order.CanCollectPayment(); err != nil {
			return err
		}

		payment, err = finance.NewPayment(cmd.TenantID, order.ID, cmd.Amount, cmd.PaymentTypeID,
			cmd.ReferenceNumber, cmd.Note, cmd.Actor.IDPtr())
		if err != nil {
			return err
		}
		if err := store.Payments().Create(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		paid, _, err := store.Orders().AdjustPaidAmount(ctx, order.ID, payment.Amount)
		if err != nil {
			return fmt.Errorf("adjust paid amount: %w", err)
		}
		result = &CollectPaymentResult{
			PaymentID:  payment.ID,
			PaidAmount: paid,
			NewBalance: finance.Balance(order.GrandTotal, paid),
		}
		return nil
	})
	return result, payment, err
}

// GetPaymentHistory lists every payment and reversal of an order, oldest first
func (s *PaymentLedgerService) GetPaymentHistory(ctx context.Context, tenantID, orderID uuid.UUID) (*PaymentHistoryResponse, error) {
	var response *PaymentHistoryResponse
	err := s.scope.Execute(ctx, func(store Store) error {
		order, err := store.Orders().FindByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		payments, err := store.Payments().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		response = &PaymentHistoryResponse{
			OrderID:    order.ID,
			GrandTotal: order.GrandTotal,
			PaidAmount: order.PaidAmount,
			Balance:    order.Balance(),
			Entries:    make([]PaymentHistoryEntry, len(payments)),
		}
		for i := range payments {
			response.Entries[i] = ToPaymentHistoryEntry(&payments[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}
