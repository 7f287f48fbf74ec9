package trade

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestOrder(t *testing.T, orderType OrderType) *Order {
	order, err := NewOrder(uuid.New(), orderType, "SO-2024-001", uuid.New())
	require.NoError(t, err)
	return order
}

func TestLifecycleFor(t *testing.T) {
	sale, ok := LifecycleFor(OrderTypeSale)
	require.True(t, ok)
	assert.Equal(t, StatusPOD, sale.Delivered)
	assert.Equal(t, StatusDelivery, sale.InTransit)
	assert.Equal(t, inventory.DirectionDeduct, sale.Direction)

	purchase, ok := LifecycleFor(OrderTypePurchase)
	require.True(t, ok)
	assert.Equal(t, StatusROG, purchase.Delivered)
	assert.Equal(t, StatusShipped, purchase.InTransit)
	assert.Equal(t, inventory.DirectionAdd, purchase.Direction)

	_, ok = LifecycleFor(OrderType("bogus"))
	assert.False(t, ok)
}

func TestLifecycle_Predicates(t *testing.T) {
	assert.True(t, SaleLifecycle.IsTerminal(StatusPOD))
	assert.True(t, SaleLifecycle.IsTerminal(StatusCancelled))
	assert.False(t, SaleLifecycle.IsTerminal(StatusDelivery))

	assert.True(t, SaleLifecycle.IsPostDeliveryAction(StatusPOD, StatusCancelled))
	assert.True(t, PurchaseLifecycle.IsPostDeliveryAction(StatusROG, StatusReturned))
	assert.False(t, SaleLifecycle.IsPostDeliveryAction(StatusDelivery, StatusCancelled))

	assert.True(t, PurchaseLifecycle.Contains(StatusCancelled))
	assert.False(t, PurchaseLifecycle.Contains(StatusPOD))
}

func TestNewOrder(t *testing.T) {
	t.Run("starts pending with nothing paid", func(t *testing.T) {
		order := createTestOrder(t, OrderTypeSale)
		assert.Equal(t, StatusPending, order.Status)
		assert.Equal(t, InventoryPending, order.InventoryStatus)
		assert.True(t, order.PaidAmount.IsZero())
		require.Len(t, order.Events(), 1)
		assert.Equal(t, EventTypeOrderCreated, order.Events()[0].EventType())
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := NewOrder(uuid.New(), OrderType("rental"), "X-1", uuid.New())
		assert.Error(t, err)
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := NewOrder(uuid.New(), OrderTypeSale, "", uuid.New())
		assert.Error(t, err)
	})
}

func TestOrder_AddItem(t *testing.T) {
	order := createTestOrder(t, OrderTypeSale)

	_, err := order.AddItem(uuid.New(), decimal.NewFromInt(2), decimal.NewFromInt(150))
	require.NoError(t, err)
	_, err = order.AddItem(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(200))
	require.NoError(t, err)

	assert.True(t, order.GrandTotal.Equal(decimal.NewFromInt(500)))
	assert.True(t, order.Balance().Equal(decimal.NewFromInt(500)))

	_, err = order.AddItem(uuid.New(), decimal.Zero, decimal.NewFromInt(1))
	assert.Error(t, err)

	order.Status = StatusProcessing
	_, err = order.AddItem(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestOrder_ChangeStatus(t *testing.T) {
	actor := shared.Actor{ID: uuid.New(), Name: "Dana", Role: shared.RoleStaff}
	now := time.Now()

	t.Run("forward move does not set post-delivery action", func(t *testing.T) {
		order := createTestOrder(t, OrderTypeSale)
		order.PullEvents()

		previous := order.ChangeStatus(StatusProcessing, actor, now)

		assert.Equal(t, StatusPending, previous)
		assert.Equal(t, StatusProcessing, order.Status)
		assert.Nil(t, order.PostDeliveryAction)
		require.Len(t, order.Events(), 1)
		event := order.Events()[0].(*OrderStatusChangedEvent)
		assert.Equal(t, StatusPending, event.PreviousStatus)
		assert.Equal(t, StatusProcessing, event.NewStatus)
	})

	t.Run("cancel after POD records post-delivery action", func(t *testing.T) {
		order := createTestOrder(t, OrderTypeSale)
		order.Status = StatusPOD

		order.ChangeStatus(StatusCancelled, actor, now)

		require.NotNil(t, order.PostDeliveryAction)
		assert.Equal(t, StatusCancelled, *order.PostDeliveryAction)
		require.NotNil(t, order.PostDeliveryActionAt)
		assert.Equal(t, now, *order.PostDeliveryActionAt)
	})
}

func TestOrder_InventoryStatus(t *testing.T) {
	now := time.Now()

	t.Run("sale moves pending → ready → deducted", func(t *testing.T) {
		order := createTestOrder(t, OrderTypeSale)
		order.MarkInventoryReady()
		assert.Equal(t, InventoryReadyForDeduction, order.InventoryStatus)
		assert.False(t, order.IsInventoryApplied())

		order.MarkInventoryApplied(now)
		assert.Equal(t, InventoryDeducted, order.InventoryStatus)
		assert.True(t, order.IsInventoryApplied())

		order.MarkInventoryReady()
		assert.Equal(t, InventoryDeducted, order.InventoryStatus)
	})

	t.Run("purchase uses addition labels", func(t *testing.T) {
		order := createTestOrder(t, OrderTypePurchase)
		order.MarkInventoryReady()
		assert.Equal(t, InventoryReadyForAddition, order.InventoryStatus)
		order.MarkInventoryApplied(now)
		assert.Equal(t, InventoryAdded, order.InventoryStatus)
	})

	t.Run("restore only once and only after post-delivery action", func(t *testing.T) {
		order := createTestOrder(t, OrderTypeSale)
		order.MarkInventoryApplied(now)

		assert.Error(t, order.MarkInventoryRestored(now))

		order.Status = StatusPOD
		order.ChangeStatus(StatusReturned, shared.SystemActor, now)
		require.NoError(t, order.MarkInventoryRestored(now))
		assert.Equal(t, InventoryPending, order.InventoryStatus)
		assert.NotNil(t, order.InventoryRestoredAt)

		order.MarkInventoryApplied(now)
		assert.Error(t, order.MarkInventoryRestored(now))
	})
}

func TestOrder_MarkDamaged(t *testing.T) {
	order := createTestOrder(t, OrderTypeSale)
	damagedItem := uuid.New()
	_, err := order.AddItem(damagedItem, decimal.NewFromInt(1), decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = order.AddItem(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(10))
	require.NoError(t, err)

	order.MarkDamaged([]uuid.UUID{damagedItem})

	assert.True(t, order.Items[0].IsDamaged)
	assert.False(t, order.Items[1].IsDamaged)
}

func TestOrder_CanCollectPayment(t *testing.T) {
	order := createTestOrder(t, OrderTypeSale)
	assert.NoError(t, order.CanCollectPayment())

	order.Status = StatusCancelled
	err := order.CanCollectPayment()
	require.Error(t, err)
	domainErr, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, CodeOrderClosed, domainErr.Code)
}
