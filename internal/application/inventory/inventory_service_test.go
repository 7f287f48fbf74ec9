package inventory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	inventoryapp "github.com/orderflow/backend/internal/application/inventory"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/persistence"
	"github.com/orderflow/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryService_Items(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	svc := inventoryapp.NewInventoryService(persistence.NewInventoryTransactionScope(db, 0), nil)
	tenantID := uuid.New()

	created, err := svc.CreateItem(ctx, tenantID, inventoryapp.CreateItemRequest{
		SKU:          "BEANS-1KG",
		Name:         "Beans 1kg",
		OpeningStock: decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	assert.Equal(t, "BEANS-1KG", created.SKU)

	found, err := svc.GetItem(ctx, tenantID, created.ID)
	require.NoError(t, err)
	assert.True(t, found.CurrentStock.Equal(decimal.NewFromInt(40)))

	_, err = svc.GetItem(ctx, uuid.New(), created.ID)
	assertCode(t, err, shared.CodeNotFound)

	_, err = svc.CreateItem(ctx, tenantID, inventoryapp.CreateItemRequest{SKU: "NEG", OpeningStock: decimal.NewFromInt(-1)})
	assertCode(t, err, "INVALID_QUANTITY")
}

func TestInventoryService_ListOrderMovementsIsTenantScoped(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := inventoryapp.NewInventoryService(persistence.NewInventoryTransactionScope(db, 0), nil)

	movements, err := svc.ListOrderMovements(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, movements)
}
