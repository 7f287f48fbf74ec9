package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	financeapp "github.com/orderflow/backend/internal/application/finance"
	inventoryapp "github.com/orderflow/backend/internal/application/inventory"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/logger"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CodeRestoreNotAllowed rejects a stock restore on a transition that is not a post-delivery action
const CodeRestoreNotAllowed = "RESTORE_NOT_ALLOWED"

// OrderStatusService moves orders through their lifecycle. Each transition is
// one database transaction holding a row lock on the order: validation,
// inventory, payment reversal, the status change and its history row commit
// together. Payment reversal is best-effort; its failures are logged and
// surfaced as a warning but never block the status change.
type OrderStatusService struct {
	scope     TransactionScope
	applier   *inventoryapp.MovementApplier
	reversals *financeapp.ReversalEngine
	history   *HistoryRecorder
	storage   ProofStorage
	events    shared.EventPublisher
	metrics   Metrics
	logger    *zap.Logger
}

// OrderStatusServiceConfig holds the collaborators of OrderStatusService
type OrderStatusServiceConfig struct {
	Applier        *inventoryapp.MovementApplier
	Reversals      *financeapp.ReversalEngine
	History        *HistoryRecorder
	ProofStorage   ProofStorage
	EventPublisher shared.EventPublisher
	Metrics        Metrics
	Logger         *zap.Logger
}

// NewOrderStatusService creates a new OrderStatusService
func NewOrderStatusService(scope TransactionScope, cfg OrderStatusServiceConfig) *OrderStatusService {
	s := &OrderStatusService{
		scope:     scope,
		applier:   cfg.Applier,
		reversals: cfg.Reversals,
		history:   cfg.History,
		storage:   cfg.ProofStorage,
		events:    cfg.EventPublisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.applier == nil {
		s.applier = inventoryapp.NewMovementApplier(s.logger)
	}
	if s.reversals == nil {
		s.reversals = financeapp.NewReversalEngine(nil, nil, s.logger)
	}
	if s.history == nil {
		s.history = NewHistoryRecorder(s.storage, s.logger)
	}
	return s
}

// pendingUpload is an evidence object whose key is known before validation
// and whose bytes are stored only once validation has passed
type pendingUpload struct {
	key         string
	contentType string
	data        []byte
}

// RequestTransition validates and commits a status change
func (s *OrderStatusService) RequestTransition(ctx context.Context, cmd TransitionCommand) (*TransitionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_status", "request_transition",
		telemetry.OrderID(cmd.OrderID), telemetry.OrderType(cmd.OrderType), telemetry.ToStatus(cmd.ToStatus))
	defer span.End()
	ctx = logger.WithOrderID(ctx, cmd.OrderID)

	if !cmd.OrderType.IsValid() {
		return nil, shared.NewValidationError("INVALID_ORDER_TYPE",
			fmt.Sprintf("Unknown order type %q", cmd.OrderType))
	}

	evidence, uploads, err := s.prepareEvidence(cmd)
	if err != nil {
		return nil, err
	}

	var (
		order    *trade.Order
		previous trade.OrderStatus
		summary  *financeapp.ReversalSummary
		events   []shared.DomainEvent
	)
	err = s.scope.Execute(ctx, func(store Store) error {
		var err error
		order, err = store.Orders().FindByIDForUpdate(ctx, cmd.TenantID, cmd.OrderID)
		if err != nil {
			return err
		}
		if order.Type != cmd.OrderType {
			return shared.NewNotFoundError(cmd.OrderType.String()+" order", cmd.OrderID)
		}

		if err := order.CheckTransition(cmd.ToStatus, evidence, cmd.Actor.Role); err != nil {
			return err
		}
		lifecycle := order.Lifecycle()
		postDelivery := lifecycle.IsPostDeliveryAction(order.Status, cmd.ToStatus)
		if cmd.RestoreStock && !postDelivery {
			return shared.NewPolicyViolation(CodeRestoreNotAllowed,
				"Stock can only be restored when cancelling or returning a delivered order")
		}

		if err := s.upload(ctx, uploads); err != nil {
			return err
		}

		now := time.Now()
		switch cmd.ToStatus {
		case lifecycle.Delivered:
			if _, err := s.applier.Apply(ctx, store, order, cmd.Actor); err != nil {
				return err
			}
		case lifecycle.InTransit:
			order.MarkInventoryReady()
		}

		previous = order.Status
		if postDelivery {
			summary = s.reverse(ctx, store, order, previous, cmd.ToStatus, cmd.Actor)
		}

		order.ChangeStatus(cmd.ToStatus, cmd.Actor, now)
		if cmd.RestoreStock {
			if err := s.applier.Restore(ctx, store, order, cmd.DamagedItemIDs, cmd.Actor); err != nil {
				return err
			}
		}
		if err := store.Orders().Save(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}

		entry := trade.NewStatusHistory(order, &previous, evidence, cmd.Actor, now)
		if err := s.history.Record(ctx, store.Histories(), entry); err != nil {
			return err
		}

		events = order.PullEvents()
		if summary != nil {
			// paid_amount moved underneath the loaded order; read it back
			fresh, err := store.Orders().FindByID(ctx, cmd.TenantID, cmd.OrderID)
			if err != nil {
				return err
			}
			order = fresh
		}
		return nil
	})
	if err != nil {
		s.discard(uploads)
		s.recordRejection(ctx, cmd, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordTransition(ctx, cmd.TenantID, cmd.OrderType.String(), previous.String(), cmd.ToStatus.String())
	s.logger.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_type", order.Type.String()),
		zap.String("from", previous.String()),
		zap.String("to", order.Status.String()),
		zap.String("actor_id", cmd.Actor.ID.String()),
	)

	result := &TransitionResult{
		Order:           ToOrderResponse(order),
		PreviousStatus:  previous.String(),
		ReversalSummary: summary,
	}
	if summary != nil {
		if summary.HasFailures() {
			result.WarningCode = shared.CodeReversalPartialFailure
		}
		events = append(events, finance.NewPaymentsReversedEvent(order.TenantID, order.ID, summary.Reason,
			summary.TotalReversed, summary.ReversedCount, summary.FailedCount))
	}
	s.publish(ctx, events)
	return result, nil
}

// prepareEvidence assigns storage keys to uploaded bytes so the validator can
// see a proof reference before anything is stored
func (s *OrderStatusService) prepareEvidence(cmd TransitionCommand) (trade.Evidence, []pendingUpload, error) {
	evidence := trade.Evidence{
		Notes:     cmd.Evidence.Notes,
		Latitude:  cmd.Evidence.Latitude,
		Longitude: cmd.Evidence.Longitude,
	}
	var uploads []pendingUpload
	if len(cmd.Evidence.ProofImage) > 0 {
		key := ProofObjectKey(cmd.TenantID, cmd.OrderID, ProofKindImage, cmd.Evidence.ProofContentType)
		evidence.ProofImage = key
		uploads = append(uploads, pendingUpload{key: key, contentType: cmd.Evidence.ProofContentType, data: cmd.Evidence.ProofImage})
	}
	if len(cmd.Evidence.Signature) > 0 {
		key := ProofObjectKey(cmd.TenantID, cmd.OrderID, ProofKindSignature, cmd.Evidence.SignatureContentType)
		evidence.Signature = key
		uploads = append(uploads, pendingUpload{key: key, contentType: cmd.Evidence.SignatureContentType, data: cmd.Evidence.Signature})
	}
	if len(uploads) > 0 && s.storage == nil {
		return evidence, nil, shared.NewPolicyViolation("PROOF_STORAGE_UNAVAILABLE", "Proof storage is not configured")
	}
	return evidence, uploads, nil
}

func (s *OrderStatusService) upload(ctx context.Context, uploads []pendingUpload) error {
	for _, u := range uploads {
		if err := s.storage.Upload(ctx, u.key, u.contentType, u.data); err != nil {
			return fmt.Errorf("upload evidence %s: %w", u.key, err)
		}
	}
	return nil
}

// discard removes evidence uploaded by a transaction that did not commit
func (s *OrderStatusService) discard(uploads []pendingUpload) {
	if len(uploads) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, u := range uploads {
		if err := s.storage.Delete(ctx, u.key); err != nil {
			s.logger.Warn("failed to discard evidence", zap.String("key", u.key), zap.Error(err))
		}
	}
}

// reverse runs the reversal engine in a savepoint of the transition's
// transaction. Whatever happens inside, the transition goes on: a failed run
// is logged and the order is flagged for manual review.
func (s *OrderStatusService) reverse(ctx context.Context, store Store, order *trade.Order, previous, to trade.OrderStatus, actor shared.Actor) *financeapp.ReversalSummary {
	var summary *financeapp.ReversalSummary
	err := store.Savepoint(ctx, func(tx financeapp.Store) error {
		var err error
		summary, err = s.reversals.ReverseAll(ctx, tx, order, previous, to, actor)
		if err != nil {
			return err
		}
		if summary.HasFailures() {
			_, err = s.reversals.RequestReview(ctx, tx, order, previous, to, summary, actor)
		}
		return err
	})
	if err == nil {
		return summary
	}

	s.reversals.RecordEngineFailure(ctx, store, order, previous, to, actor, err)
	summary = &financeapp.ReversalSummary{
		OrderID:       order.ID,
		Reason:        to.String(),
		TotalReversed: decimal.Zero,
		EngineError:   err.Error(),
		Entries:       make([]financeapp.ReversalEntry, 0),
	}
	if _, reviewErr := s.reversals.RequestReview(ctx, store, order, previous, to, summary, actor); reviewErr != nil {
		s.logger.Error("failed to flag order for review",
			zap.String("order_id", order.ID.String()), zap.Error(reviewErr))
	}
	return summary
}

func (s *OrderStatusService) recordRejection(ctx context.Context, cmd TransitionCommand, err error) {
	log := logger.WithLogger(ctx, s.logger).With(zap.String("to", cmd.ToStatus.String()))
	domainErr, ok := shared.AsDomainError(err)
	if !ok {
		log.Error("order status transition failed", zap.Error(err))
		return
	}
	s.metrics.RecordTransitionRejected(ctx, cmd.TenantID, cmd.OrderType.String(), cmd.ToStatus.String(), domainErr.Code)
	log.Info("order status transition rejected", zap.String("code", domainErr.Code))
}

func (s *OrderStatusService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish order events", zap.Error(err))
	}
}

// GetStatusHistory lists the committed transitions of an order, newest first
func (s *OrderStatusService) GetStatusHistory(ctx context.Context, tenantID uuid.UUID, orderType trade.OrderType, orderID uuid.UUID) ([]StatusHistoryResponse, error) {
	var entries []trade.StatusHistory
	err := s.scope.Execute(ctx, func(store Store) error {
		order, err := store.Orders().FindByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.Type != orderType {
			return shared.NewNotFoundError(orderType.String()+" order", orderID)
		}
		entries, err = store.Histories().FindByOrder(ctx, orderType, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.history.Present(ctx, entries), nil
}
