package event

import (
	"context"

	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ReversalAlertHandler raises a warning whenever a reversal run left
// payments unreversed, so an operator can resolve the failed log entries.
type ReversalAlertHandler struct {
	logger *zap.Logger
}

// NewReversalAlertHandler creates a new ReversalAlertHandler
func NewReversalAlertHandler(log *zap.Logger) *ReversalAlertHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReversalAlertHandler{logger: log.Named("reversal_alert")}
}

// EventTypes implements shared.EventHandler
func (h *ReversalAlertHandler) EventTypes() []string {
	return []string{finance.EventTypePaymentsReversed}
}

// Handle implements shared.EventHandler
func (h *ReversalAlertHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	ev, ok := e.(*finance.PaymentsReversedEvent)
	if !ok || ev.FailedCount == 0 {
		return nil
	}
	logger.WithLogger(ctx, h.logger).Warn("payment reversal finished with failures",
		zap.String("tenant_id", ev.TenantID().String()),
		zap.String("order_id", ev.OrderID.String()),
		zap.String("reason", ev.Reason),
		zap.Int("reversed", ev.ReversedCount),
		zap.Int("failed", ev.FailedCount),
		zap.String("total_reversed", ev.TotalReversed.StringFixed(2)),
	)
	return nil
}

// OrderActivityHandler writes one structured line per order lifecycle event
type OrderActivityHandler struct {
	logger *zap.Logger
}

// NewOrderActivityHandler creates a new OrderActivityHandler
func NewOrderActivityHandler(log *zap.Logger) *OrderActivityHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderActivityHandler{logger: log.Named("order_activity")}
}

// EventTypes implements shared.EventHandler
func (h *OrderActivityHandler) EventTypes() []string {
	return []string{trade.EventTypeOrderCreated, trade.EventTypeOrderStatusChanged}
}

// Handle implements shared.EventHandler
func (h *OrderActivityHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	cl := logger.WithLogger(ctx, h.logger)
	switch ev := e.(type) {
	case *trade.OrderCreatedEvent:
		cl.Info("order created",
			zap.String("order_id", ev.OrderID.String()),
			zap.String("order_type", string(ev.OrderType)),
			zap.String("code", ev.Code),
		)
	case *trade.OrderStatusChangedEvent:
		fields := []zap.Field{
			zap.String("order_id", ev.OrderID.String()),
			zap.String("code", ev.Code),
			zap.String("from", string(ev.PreviousStatus)),
			zap.String("to", string(ev.NewStatus)),
			zap.String("changed_by", ev.ChangedBy.String()),
			zap.String("role", string(ev.ChangedByRole)),
		}
		if ev.PostDeliveryAction != nil {
			fields = append(fields, zap.String("post_delivery_action", string(*ev.PostDeliveryAction)))
		}
		cl.Info("order status changed", fields...)
	}
	return nil
}

var (
	_ shared.EventHandler = (*ReversalAlertHandler)(nil)
	_ shared.EventHandler = (*OrderActivityHandler)(nil)
)
