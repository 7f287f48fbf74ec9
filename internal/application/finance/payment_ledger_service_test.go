package finance_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	financeapp "github.com/orderflow/backend/internal/application/finance"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/cache"
	"github.com/orderflow/backend/internal/infrastructure/persistence"
	"github.com/orderflow/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cashier = shared.Actor{ID: uuid.New(), Name: "Cora", Role: shared.RoleStaff}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	domainErr, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	assert.Equal(t, code, domainErr.Code)
}

func TestPaymentLedgerService_CollectPayment(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	tenantID := uuid.New()
	publisher := &testutil.RecordingPublisher{}
	ledger := financeapp.NewPaymentLedgerService(persistence.NewFinanceTransactionScope(db, 0), financeapp.PaymentLedgerConfig{
		IdempotencyStore: cache.NewInMemoryIdempotencyStore(),
		EventPublisher:   publisher,
	})
	order := testutil.SeedOrder(t, db, testutil.OrderFixture{
		TenantID: tenantID,
		Status:   trade.StatusDelivery,
		Lines:    []testutil.OrderLine{{ItemID: uuid.New(), Quantity: 2, UnitPrice: "50"}},
	})

	collect := func(amount, key string) (*financeapp.CollectPaymentResult, error) {
		return ledger.CollectPayment(ctx, financeapp.CollectPaymentCommand{
			TenantID:       tenantID,
			OrderID:        order.ID,
			Amount:         decimal.RequireFromString(amount),
			IdempotencyKey: key,
			Actor:          cashier,
		})
	}

	t.Run("records the payment and the new balance", func(t *testing.T) {
		result, err := collect("60", "req-1")
		require.NoError(t, err)
		assert.True(t, result.PaidAmount.Equal(decimal.NewFromInt(60)))
		assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(40)))
		assert.Contains(t, publisher.EventTypes(), finance.EventTypePaymentCollected)
	})

	t.Run("a retried request is a duplicate", func(t *testing.T) {
		_, err := collect("60", "req-1")
		assert.ErrorIs(t, err, shared.ErrDuplicateRequest)
		payments, listErr := ledger.GetPaymentHistory(ctx, tenantID, order.ID)
		require.NoError(t, listErr)
		require.Len(t, payments.Entries, 1)
		assert.Contains(t, err.Error(), payments.Entries[0].ID.String())
		assert.True(t, testutil.PaidAmountOf(t, db, order.ID).Equal(decimal.NewFromInt(60)))
	})

	t.Run("a failed request releases its key", func(t *testing.T) {
		_, err := collect("0", "req-2")
		assertCode(t, err, finance.CodeInvalidAmount)

		_, err = collect("40", "req-2")
		require.NoError(t, err)
	})

	t.Run("overpayment is accepted with a negative balance", func(t *testing.T) {
		result, err := collect("25", "")
		require.NoError(t, err)
		assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(-25)), "balance %s", result.NewBalance)
		assert.True(t, result.PaidAmount.Equal(decimal.NewFromInt(125)))
	})

	t.Run("history lists payments oldest first", func(t *testing.T) {
		history, err := ledger.GetPaymentHistory(ctx, tenantID, order.ID)
		require.NoError(t, err)
		require.Len(t, history.Entries, 3)
		assert.True(t, history.Entries[0].Amount.Equal(decimal.NewFromInt(60)))
		assert.Equal(t, financeapp.EntryTypePayment, history.Entries[0].Type)
		assert.True(t, history.GrandTotal.Equal(decimal.NewFromInt(100)))
	})
}

func TestPaymentLedgerService_ClosedOrder(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	tenantID := uuid.New()
	ledger := financeapp.NewPaymentLedgerService(persistence.NewFinanceTransactionScope(db, 0), financeapp.PaymentLedgerConfig{})
	order := testutil.SeedOrder(t, db, testutil.OrderFixture{TenantID: tenantID, Status: trade.StatusCancelled})

	_, err := ledger.CollectPayment(context.Background(), financeapp.CollectPaymentCommand{
		TenantID: tenantID,
		OrderID:  order.ID,
		Amount:   decimal.NewFromInt(10),
		Actor:    cashier,
	})
	assertCode(t, err, trade.CodeOrderClosed)
}

func TestPaymentLedgerService_OtherTenantsOrder(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ledger := financeapp.NewPaymentLedgerService(persistence.NewFinanceTransactionScope(db, 0), financeapp.PaymentLedgerConfig{})
	order := testutil.SeedOrder(t, db, testutil.OrderFixture{TenantID: uuid.New()})

	_, err := ledger.GetPaymentHistory(context.Background(), uuid.New(), order.ID)
	assertCode(t, err, shared.CodeNotFound)
}
