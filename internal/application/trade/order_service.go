package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OrderService creates and reads orders
type OrderService struct {
	scope   TransactionScope
	history *HistoryRecorder
	events  shared.EventPublisher
	metrics Metrics
	logger  *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(scope TransactionScope, history *HistoryRecorder, events shared.EventPublisher, metrics Metrics, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if history == nil {
		history = NewHistoryRecorder(nil, logger)
	}
	return &OrderService{
		scope:   scope,
		history: history,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateOrder creates an order in the initial status of its lifecycle and
// seeds its history with a row whose previous status is empty
func (s *OrderService) CreateOrder(ctx context.Context, tenantID uuid.UUID, orderType trade.OrderType, req CreateOrderRequest, actor shared.Actor) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create",
		telemetry.OrderType(orderType), telemetry.OrderCode(req.Code))
	defer span.End()

	order, err := trade.NewOrder(tenantID, orderType, req.Code, req.CounterpartyID)
	if err != nil {
		return nil, err
	}
	for _, line := range req.Items {
		if _, err := order.AddItem(line.ItemID, line.Quantity, line.UnitPrice); err != nil {
			return nil, err
		}
	}

	err = s.scope.Execute(ctx, func(store Store) error {
		for _, line := range req.Items {
			if _, err := store.Items().FindByID(ctx, tenantID, line.ItemID); err != nil {
				if domainErr, ok := shared.AsDomainError(err); ok && domainErr.Kind == shared.KindNotFound {
					return shared.NewNotFoundError("inventory item", line.ItemID)
				}
				return err
			}
		}
		if err := store.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		entry := trade.NewStatusHistory(order, nil, trade.Evidence{Notes: req.Notes}, actor, time.Now())
		return s.history.Record(ctx, store.Histories(), entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordOrderCreated(ctx, tenantID, orderType.String())
	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_type", orderType.String()),
		zap.String("code", order.Code),
		zap.String("grand_total", order.GrandTotal.String()),
	)
	if s.events != nil {
		if err := s.events.Publish(ctx, order.PullEvents()...); err != nil {
			s.logger.Warn("failed to publish order created event", zap.Error(err))
		}
	}

	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetOrder returns an order of the given type
func (s *OrderService) GetOrder(ctx context.Context, tenantID uuid.UUID, orderType trade.OrderType, orderID uuid.UUID) (*OrderResponse, error) {
	var order *trade.Order
	err := s.scope.Execute(ctx, func(store Store) error {
		var err error
		order, err = store.Orders().FindByID(ctx, tenantID, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if order.Type != orderType {
		return nil, shared.NewNotFoundError(orderType.String()+" order", orderID)
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}
