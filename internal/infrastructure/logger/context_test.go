package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext_NotFound(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWithRequestIDAndActor(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	tenantID := uuid.New()
	actor := shared.Actor{ID: uuid.New(), Name: "Dana", Role: shared.RoleDelivery}

	ctx, _ := WithRequestID(context.Background(), base, "req-1")
	ctx, enriched := WithActor(ctx, FromContext(ctx), tenantID, actor)
	enriched.Info("hello")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	gotTenant, ok := GetTenantID(ctx)
	require.True(t, ok)
	assert.Equal(t, tenantID, gotTenant)
	gotActor, ok := GetActor(ctx)
	require.True(t, ok)
	assert.Equal(t, actor, gotActor)

	fields := fieldMap(recorded.All()[0])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, tenantID.String(), fields["tenant_id"])
	assert.Equal(t, actor.ID.String(), fields["user_id"])
	assert.Equal(t, "delivery", fields["role"])
}

func TestContextLogger_AddsOrderAndTrace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	orderID := uuid.New()
	ctx = WithOrderID(ctx, orderID)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(ctx, "transition")
	defer span.End()

	L(ctx).With(zap.String("to", "POD")).Warn("transition rejected")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := fieldMap(entries[0])
	assert.Equal(t, orderID.String(), fields["order_id"])
	assert.Equal(t, "POD", fields["to"])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, GetTraceID(ctx), fields["trace_id"])
}

func TestContextLogger_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		WithLogger(context.Background(), nil).With(zap.Int("n", 1)).Info("no-op")
	})
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestWithOrderID_DoesNotLeakToParent(t *testing.T) {
	parent, _ := WithRequestID(context.Background(), zap.NewNop(), "req-2")
	child := WithOrderID(parent, uuid.New())

	_, ok := GetOrderID(parent)
	assert.False(t, ok)
	_, ok = GetOrderID(child)
	assert.True(t, ok)
	assert.Equal(t, "req-2", GetRequestID(child))
}
