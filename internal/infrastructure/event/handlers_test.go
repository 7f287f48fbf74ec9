package event

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReversalAlertHandler(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewReversalAlertHandler(zap.New(core)))

	tenantID, orderID := uuid.New(), uuid.New()
	clean := finance.NewPaymentsReversedEvent(tenantID, orderID, "ORDER_CANCELLED", decimal.NewFromInt(300), 3, 0)
	partial := finance.NewPaymentsReversedEvent(tenantID, orderID, "ORDER_CANCELLED", decimal.NewFromInt(200), 2, 1)

	require.NoError(t, bus.Publish(context.Background(), clean, partial))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, orderID.String(), fields["order_id"])
	assert.EqualValues(t, 1, fields["failed"])
	assert.Equal(t, "200.00", fields["total_reversed"])
}

func TestOrderActivityHandler(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	h := NewOrderActivityHandler(zap.New(core))

	order := &trade.Order{Type: trade.OrderTypeSale, Code: "SO-1", Status: trade.StatusPOD}
	order.ID = uuid.New()
	order.TenantID = uuid.New()
	actor := shared.Actor{ID: uuid.New(), Role: shared.RoleDelivery}

	ev := trade.NewOrderStatusChangedEvent(order, trade.StatusDelivery, actor)
	require.NoError(t, h.Handle(context.Background(), ev))

	entries := recorded.FilterMessage("order status changed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Delivery", fields["from"])
	assert.Equal(t, "POD", fields["to"])
	assert.Equal(t, "delivery", fields["role"])
}
