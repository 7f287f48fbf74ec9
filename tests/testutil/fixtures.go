package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OrderLine is one line of a seeded order
type OrderLine struct {
	ItemID    uuid.UUID
	Quantity  int64
	UnitPrice string
}

// OrderFixture describes an order row to seed directly in the database
type OrderFixture struct {
	TenantID        uuid.UUID
	Type            trade.OrderType
	Status          trade.OrderStatus
	InventoryStatus trade.InventoryStatus
	PaidAmount      string
	Lines           []OrderLine
}

// SeedOrder inserts an order with its lines, bypassing the services.
// GrandTotal is derived from the lines.
func SeedOrder(t *testing.T, db *gorm.DB, f OrderFixture) *models.OrderModel {
	t.Helper()

	if f.Type == "" {
		f.Type = trade.OrderTypeSale
	}
	if f.Status == "" {
		f.Status = trade.StatusPending
	}
	if f.InventoryStatus == "" {
		f.InventoryStatus = trade.InventoryPending
	}
	paid := decimal.Zero
	if f.PaidAmount != "" {
		paid = decimal.RequireFromString(f.PaidAmount)
	}

	now := time.Now()
	m := &models.OrderModel{
		OrderType:       f.Type,
		Code:            "ORD-" + uuid.NewString()[:8],
		CounterpartyID:  uuid.New(),
		PaidAmount:      paid,
		Status:          f.Status,
		InventoryStatus: f.InventoryStatus,
	}
	m.ID = uuid.New()
	m.TenantID = f.TenantID
	m.Version = 1
	m.CreatedAt = now
	m.UpdatedAt = now

	total := decimal.Zero
	for _, l := range f.Lines {
		price := decimal.RequireFromString(l.UnitPrice)
		qty := decimal.NewFromInt(l.Quantity)
		total = total.Add(price.Mul(qty))
		m.Items = append(m.Items, models.OrderItemModel{
			ID:        uuid.New(),
			OrderID:   m.ID,
			ItemID:    l.ItemID,
			Quantity:  qty,
			UnitPrice: price,
		})
	}
	m.GrandTotal = total

	require.NoError(t, db.Create(m).Error, "Failed to seed order")
	return m
}

// SeedItem inserts a stock item with the given opening stock
func SeedItem(t *testing.T, db *gorm.DB, tenantID uuid.UUID, sku string, stock int64) uuid.UUID {
	t.Helper()

	now := time.Now()
	m := &models.InventoryItemModel{
		ID:           uuid.New(),
		TenantID:     tenantID,
		SKU:          sku,
		Name:         sku,
		CurrentStock: decimal.NewFromInt(stock),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, db.Create(m).Error, "Failed to seed inventory item")
	return m.ID
}

// SeedPayment inserts an active payment without touching the order's paid amount
func SeedPayment(t *testing.T, db *gorm.DB, tenantID, orderID uuid.UUID, amount string, at time.Time) uuid.UUID {
	t.Helper()

	m := &models.PaymentTransactionModel{
		ID:              uuid.New(),
		TenantID:        tenantID,
		OrderID:         orderID,
		Amount:          decimal.RequireFromString(amount),
		TransactionDate: at,
		PaymentStatus:   finance.PaymentStatusActive,
		CreatedAt:       at,
	}
	require.NoError(t, db.Create(m).Error, "Failed to seed payment")
	return m.ID
}

// StockOf reads the current stock of an item
func StockOf(t *testing.T, db *gorm.DB, itemID uuid.UUID) decimal.Decimal {
	t.Helper()

	var m models.InventoryItemModel
	require.NoError(t, db.First(&m, "id = ?", itemID).Error)
	return m.CurrentStock
}

// PaidAmountOf reads the paid amount of an order
func PaidAmountOf(t *testing.T, db *gorm.DB, orderID uuid.UUID) decimal.Decimal {
	t.Helper()

	var m models.OrderModel
	require.NoError(t, db.Select("paid_amount").First(&m, "id = ?", orderID).Error)
	return m.PaidAmount
}
