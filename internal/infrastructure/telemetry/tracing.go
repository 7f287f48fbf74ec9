package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation scopes of the service's own spans and instruments
const (
	TracerName = "orderflow"
	MeterName  = "orderflow"
)

// Attribute keys shared by spans and metrics
const (
	AttrTenantID     = attribute.Key("tenant_id")
	AttrOrderID      = attribute.Key("order.id")
	AttrOrderCode    = attribute.Key("order.code")
	AttrOrderType    = attribute.Key("order.type")
	AttrFromStatus   = attribute.Key("order.from_status")
	AttrToStatus     = attribute.Key("order.to_status")
	AttrPaymentID    = attribute.Key("payment.id")
	AttrAmount       = attribute.Key("payment.amount")
	AttrReason       = attribute.Key("reversal.reason")
	AttrErrorCode    = attribute.Key("error_code")
	AttrItemID       = attribute.Key("inventory.item_id")
	AttrRetryableErr = attribute.Key("error.retryable")
)

func OrderID(id uuid.UUID) attribute.KeyValue     { return AttrOrderID.String(id.String()) }
func OrderCode(code string) attribute.KeyValue    { return AttrOrderCode.String(code) }
func OrderType(t fmt.Stringer) attribute.KeyValue { return AttrOrderType.String(t.String()) }
func ToStatus(s fmt.Stringer) attribute.KeyValue  { return AttrToStatus.String(s.String()) }
func PaymentID(id uuid.UUID) attribute.KeyValue   { return AttrPaymentID.String(id.String()) }
func ItemID(id uuid.UUID) attribute.KeyValue      { return AttrItemID.String(id.String()) }
func Reason(reason string) attribute.KeyValue     { return AttrReason.String(reason) }

// Amount records money with two decimals, the scale of every ledger column
func Amount(d decimal.Decimal) attribute.KeyValue { return AttrAmount.String(d.StringFixed(2)) }

// StartServiceSpan starts an internal span named {service}.{method}; the
// caller must End it.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "order_status", "request_transition", telemetry.OrderID(id))
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks span failed. Errors that expose Retryable, such as
// lock conflicts, are tagged so retries can be told apart from failures.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if r, ok := err.(interface{ Retryable() bool }); ok {
		span.SetAttributes(AttrRetryableErr.Bool(r.Retryable()))
	}
}
