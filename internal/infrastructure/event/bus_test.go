package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type panicHandler struct{}

func (panicHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panicHandler) EventTypes() []string                             { return []string{"OrderStatusChanged"} }

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())
	assert.True(t, bus.Running())

	statusHandler := testutil.NewMockEventHandler("OrderStatusChanged")
	allHandler := testutil.NewMockEventHandler()
	bus.Subscribe(statusHandler)
	bus.Subscribe(allHandler)

	tenantID := uuid.New()
	err := bus.Publish(context.Background(),
		testutil.NewTestEvent("OrderStatusChanged", tenantID),
		testutil.NewTestEvent("PaymentCollected", tenantID),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, statusHandler.HandledCount())
	assert.Equal(t, 2, allHandler.HandledCount())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := testutil.NewMockEventHandler("OrderCreated")
	bus.Subscribe(h, "PaymentsReversed")

	_ = bus.Publish(context.Background(), testutil.NewTestEvent("OrderCreated", uuid.New()))
	assert.Zero(t, h.HandledCount())
	_ = bus.Publish(context.Background(), testutil.NewTestEvent("PaymentsReversed", uuid.New()))
	assert.Equal(t, 1, h.HandledCount())
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := testutil.NewMockEventHandler("OrderStatusChanged")
	failing.SetError(errors.New("downstream unavailable"))
	healthy := testutil.NewMockEventHandler("OrderStatusChanged")

	bus.Subscribe(failing)
	bus.Subscribe(panicHandler{})
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), testutil.NewTestEvent("OrderStatusChanged", uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, 1, healthy.HandledCount())
	assert.Equal(t, int64(2), bus.Failures())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := testutil.NewMockEventHandler()
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	_ = bus.Publish(context.Background(), testutil.NewTestEvent("OrderCreated", uuid.New()))
	assert.Zero(t, h.HandledCount())
}

func TestInMemoryEventBus_HandlerRunsOncePerEvent(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := testutil.NewMockEventHandler()
	bus.Subscribe(h, "OrderCreated")
	bus.Subscribe(h, "OrderCreated")
	bus.Subscribe(h)

	_ = bus.Publish(context.Background(), testutil.NewTestEvent("OrderCreated", uuid.New()))
	assert.Equal(t, 1, h.HandledCount())

	_ = bus.Publish(context.Background(), testutil.NewTestEvent("PaymentCollected", uuid.New()))
	assert.Equal(t, 2, h.HandledCount())
}
