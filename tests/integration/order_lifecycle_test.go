//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	financeapp "github.com/orderflow/backend/internal/application/finance"
	tradeapp "github.com/orderflow/backend/internal/application/trade"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/persistence"
	"github.com/orderflow/backend/internal/infrastructure/storage"
	"github.com/orderflow/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	driver  = shared.Actor{ID: uuid.New(), Name: "Dev", Role: shared.RoleDelivery}
	manager = shared.Actor{ID: uuid.New(), Name: "Max", Role: shared.RoleManager}
	png     = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
)

type services struct {
	statuses  *tradeapp.OrderStatusService
	reversals *financeapp.ReversalEngine
	ledger    *financeapp.PaymentLedgerService
}

func newServices(tdb *TestDB, lockTimeout time.Duration) services {
	proofs := storage.NewMemoryProofStorage()
	reversals := financeapp.NewReversalEngine(persistence.NewFinanceTransactionScope(tdb.DB, lockTimeout), nil, nil)
	return services{
		statuses: tradeapp.NewOrderStatusService(persistence.NewTradeTransactionScope(tdb.DB, lockTimeout),
			tradeapp.OrderStatusServiceConfig{Reversals: reversals, ProofStorage: proofs}),
		reversals: reversals,
		ledger:    financeapp.NewPaymentLedgerService(persistence.NewFinanceTransactionScope(tdb.DB, lockTimeout), financeapp.PaymentLedgerConfig{}),
	}
}

func deliver(tenantID, orderID uuid.UUID) tradeapp.TransitionCommand {
	return tradeapp.TransitionCommand{
		TenantID:  tenantID,
		OrderID:   orderID,
		OrderType: trade.OrderTypeSale,
		ToStatus:  trade.StatusPOD,
		Actor:     driver,
		Evidence: tradeapp.TransitionEvidence{
			Notes:            "left at reception",
			ProofImage:       png,
			ProofContentType: "image/png",
		},
	}
}

func TestConcurrentDeliveryDeductsOnce(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(tdb, 5*time.Second)
	tenantID := uuid.New()
	itemID := testutil.SeedItem(t, tdb.DB, tenantID, "CEMENT", 100)
	order := testutil.SeedOrder(t, tdb.DB, testutil.OrderFixture{
		TenantID:        tenantID,
		Status:          trade.StatusDelivery,
		InventoryStatus: trade.InventoryReadyForDeduction,
		PaidAmount:      "400",
		Lines:           []testutil.OrderLine{{ItemID: itemID, Quantity: 40, UnitPrice: "10"}},
	})

	const attempts = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		codes     []string
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.statuses.RequestTransition(context.Background(), deliver(tenantID, order.ID))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if domainErr, ok := shared.AsDomainError(err); ok {
				codes = append(codes, domainErr.Code)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Len(t, codes, attempts-1)
	for _, code := range codes {
		assert.Equal(t, trade.CodeDeliveryFinalized, code)
	}
	assert.True(t, testutil.StockOf(t, tdb.DB, itemID).Equal(decimal.NewFromInt(60)))
}

func TestCancelAfterDeliveryReversesAndRestores(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(tdb, 5*time.Second)
	ctx := context.Background()
	tenantID := uuid.New()
	itemID := testutil.SeedItem(t, tdb.DB, tenantID, "BRICK", 500)
	order := testutil.SeedOrder(t, tdb.DB, testutil.OrderFixture{
		TenantID:        tenantID,
		Status:          trade.StatusDelivery,
		InventoryStatus: trade.InventoryReadyForDeduction,
		Lines:           []testutil.OrderLine{{ItemID: itemID, Quantity: 500, UnitPrice: "1"}},
	})

	for _, amount := range []string{"200", "300"} {
		_, err := svc.ledger.CollectPayment(ctx, financeapp.CollectPaymentCommand{
			TenantID: tenantID,
			OrderID:  order.ID,
			Amount:   decimal.RequireFromString(amount),
			Actor:    manager,
		})
		require.NoError(t, err)
	}

	_, err := svc.statuses.RequestTransition(ctx, deliver(tenantID, order.ID))
	require.NoError(t, err)
	assert.True(t, testutil.StockOf(t, tdb.DB, itemID).IsZero())

	result, err := svc.statuses.RequestTransition(ctx, tradeapp.TransitionCommand{
		TenantID:     tenantID,
		OrderID:      order.ID,
		OrderType:    trade.OrderTypeSale,
		ToStatus:     trade.StatusCancelled,
		Actor:        manager,
		Evidence:     tradeapp.TransitionEvidence{Notes: "customer cancelled"},
		RestoreStock: true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.WarningCode)
	assert.Equal(t, 2, result.ReversalSummary.ReversedCount)
	assert.True(t, result.Order.PaidAmount.IsZero())
	assert.True(t, testutil.StockOf(t, tdb.DB, itemID).Equal(decimal.NewFromInt(500)))

	history, err := svc.ledger.GetPaymentHistory(ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Len(t, history.Entries, 4)

	_, err = svc.ledger.CollectPayment(ctx, financeapp.CollectPaymentCommand{
		TenantID: tenantID,
		OrderID:  order.ID,
		Amount:   decimal.NewFromInt(1),
		Actor:    manager,
	})
	require.Error(t, err)
}

func TestRowLockTimeoutIsAConflict(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(tdb, 200*time.Millisecond)
	tenantID := uuid.New()
	order := testutil.SeedOrder(t, tdb.DB, testutil.OrderFixture{TenantID: tenantID})

	holder := tdb.DB.Begin()
	require.NoError(t, holder.Error)
	defer holder.Rollback()
	require.NoError(t, holder.Exec("SELECT id FROM orders WHERE id = ? FOR UPDATE", order.ID).Error)

	_, err := svc.statuses.RequestTransition(context.Background(), tradeapp.TransitionCommand{
		TenantID:  tenantID,
		OrderID:   order.ID,
		OrderType: trade.OrderTypeSale,
		ToStatus:  trade.StatusProcessing,
		Actor:     manager,
	})
	require.Error(t, err)
	domainErr, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	assert.Equal(t, shared.CodeConflict, domainErr.Code)
	assert.True(t, domainErr.Retryable())
}

func TestConcurrentManualReversalHappensOnce(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(tdb, 5*time.Second)
	tenantID := uuid.New()
	itemID := testutil.SeedItem(t, tdb.DB, tenantID, "SAND", 10)
	order := testutil.SeedOrder(t, tdb.DB, testutil.OrderFixture{
		TenantID:   tenantID,
		Status:     trade.StatusDelivery,
		PaidAmount: "80",
		Lines:      []testutil.OrderLine{{ItemID: itemID, Quantity: 1, UnitPrice: "80"}},
	})
	paymentID := testutil.SeedPayment(t, tdb.DB, tenantID, order.ID, "80", time.Now())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reversed int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.reversals.ReversePayment(context.Background(), tenantID, paymentID, "duplicate charge", manager)
			if err == nil {
				mu.Lock()
				reversed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, reversed)
	assert.True(t, testutil.PaidAmountOf(t, tdb.DB, order.ID).IsZero())
}

func TestDeletingAnOrderCascadesToItsHistories(t *testing.T) {
	tdb := NewTestDB(t)
	svc := newServices(tdb, 5*time.Second)
	ctx := context.Background()
	tenantID := uuid.New()
	itemID := testutil.SeedItem(t, tdb.DB, tenantID, "TILE", 10)
	order := testutil.SeedOrder(t, tdb.DB, testutil.OrderFixture{
		TenantID: tenantID,
		Lines:    []testutil.OrderLine{{ItemID: itemID, Quantity: 2, UnitPrice: "5"}},
	})
	testutil.SeedPayment(t, tdb.DB, tenantID, order.ID, "10", time.Now())
	_, err := svc.statuses.RequestTransition(ctx, tradeapp.TransitionCommand{
		TenantID:  tenantID,
		OrderID:   order.ID,
		OrderType: trade.OrderTypeSale,
		ToStatus:  trade.StatusProcessing,
		Actor:     manager,
	})
	require.NoError(t, err)

	children := []string{"order_items", "sale_order_status_histories", "payment_transactions"}
	count := func(table string) int64 {
		var n int64
		require.NoError(t, tdb.DB.Table(table).Where("order_id = ?", order.ID).Count(&n).Error)
		return n
	}
	for _, table := range children {
		require.NotZero(t, count(table), table)
	}

	require.NoError(t, tdb.DB.Exec("DELETE FROM orders WHERE id = ?", order.ID).Error)
	for _, table := range children {
		assert.Zero(t, count(table), table)
	}
}
