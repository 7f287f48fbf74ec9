package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when NewBusinessMetrics is given no meter
var ErrMeterNil = errors.New("business metrics: meter is nil")

// BusinessMetrics counts order lifecycle and payment ledger activity.
// It satisfies the Metrics ports of the trade and finance services.
type BusinessMetrics struct {
	ordersCreated     metric.Int64Counter
	transitions       metric.Int64Counter
	transitionRejects metric.Int64Counter
	paymentsCollected metric.Int64Counter
	reversals         metric.Int64Counter
	reversalFailures  metric.Int64Counter
}

func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	bm := &BusinessMetrics{}
	instruments := []struct {
		dst  *metric.Int64Counter
		name string
		help string
	}{
		{&bm.ordersCreated, "orderflow_orders_created_total", "Orders created"},
		{&bm.transitions, "orderflow_order_transitions_total", "Committed order status transitions"},
		{&bm.transitionRejects, "orderflow_order_transition_rejections_total", "Rejected order status transitions"},
		{&bm.paymentsCollected, "orderflow_payments_collected_total", "Payments recorded against orders"},
		{&bm.reversals, "orderflow_payment_reversals_total", "Payments reversed"},
		{&bm.reversalFailures, "orderflow_payment_reversal_failures_total", "Payments the reversal engine failed to reverse"},
	}
	for _, in := range instruments {
		c, err := meter.Int64Counter(in.name, metric.WithDescription(in.help), metric.WithUnit("{count}"))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", in.name, err)
		}
		*in.dst = c
	}
	return bm, nil
}

func add(ctx context.Context, c metric.Int64Counter, n int, attrs ...attribute.KeyValue) {
	if n > 0 {
		c.Add(ctx, int64(n), metric.WithAttributes(attrs...))
	}
}

// RecordOrderCreated counts a created order
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context, tenantID uuid.UUID, orderType string) {
	add(ctx, bm.ordersCreated, 1,
		AttrTenantID.String(tenantID.String()),
		AttrOrderType.String(orderType),
	)
}

// RecordTransition counts a committed status change
func (bm *BusinessMetrics) RecordTransition(ctx context.Context, tenantID uuid.UUID, orderType, from, to string) {
	add(ctx, bm.transitions, 1,
		AttrTenantID.String(tenantID.String()),
		AttrOrderType.String(orderType),
		AttrFromStatus.String(from),
		AttrToStatus.String(to),
	)
}

// RecordTransitionRejected counts a transition refused by validation or policy
func (bm *BusinessMetrics) RecordTransitionRejected(ctx context.Context, tenantID uuid.UUID, orderType, to, code string) {
	add(ctx, bm.transitionRejects, 1,
		AttrTenantID.String(tenantID.String()),
		AttrOrderType.String(orderType),
		AttrToStatus.String(to),
		AttrErrorCode.String(code),
	)
}

// RecordPaymentCollected counts a recorded payment
func (bm *BusinessMetrics) RecordPaymentCollected(ctx context.Context, tenantID uuid.UUID) {
	add(ctx, bm.paymentsCollected, 1, AttrTenantID.String(tenantID.String()))
}

// RecordPaymentReversals counts the outcome of one reversal run
func (bm *BusinessMetrics) RecordPaymentReversals(ctx context.Context, tenantID uuid.UUID, reason string, reversed, failed int) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrReason.String(reason),
	}
	add(ctx, bm.reversals, reversed, attrs...)
	add(ctx, bm.reversalFailures, failed, attrs...)
}
