package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	require.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	mockDB.ExpectationsWereMet(t)
}

func TestNewSQLiteDB_SeedsAndReads(t *testing.T) {
	db := NewSQLiteDB(t)
	tenantID := uuid.New()

	itemID := SeedItem(t, db, tenantID, "SKU-1", 10)
	order := SeedOrder(t, db, OrderFixture{
		TenantID:   tenantID,
		Type:       trade.OrderTypeSale,
		PaidAmount: "12.50",
		Lines:      []OrderLine{{ItemID: itemID, Quantity: 2, UnitPrice: "25"}},
	})

	assert.Equal(t, "50", order.GrandTotal.String())
	assert.Equal(t, "10", StockOf(t, db, itemID).String())
	assert.Equal(t, "12.5", PaidAmountOf(t, db, order.ID).String())

	for _, table := range []string{"sale_order_status_histories", "purchase_order_status_histories"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestNewMockDB_KeepsRowLockAfterSQLite(t *testing.T) {
	_ = NewSQLiteDB(t)
	mockDB := NewMockDB(t)

	var order models.OrderModel
	stmt := mockDB.DB.Session(&gorm.Session{DryRun: true}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", uuid.New()).
		Take(&order).Statement

	assert.Contains(t, stmt.SQL.String(), "FOR UPDATE")
	assert.NotContains(t, stmt.SQL.String(), "LIMIT 1")
}
