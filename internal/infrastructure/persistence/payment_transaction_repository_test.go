package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormPaymentTransactionRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormPaymentTransactionRepository(db)
	ctx := context.Background()
	tenantID, orderID := uuid.New(), uuid.New()

	base := time.Now().Add(-time.Hour)
	second := testutil.SeedPayment(t, db, tenantID, orderID, "200", base.Add(time.Minute))
	first := testutil.SeedPayment(t, db, tenantID, orderID, "100", base)
	testutil.SeedPayment(t, db, tenantID, uuid.New(), "999", base)

	t.Run("active payments oldest first", func(t *testing.T) {
		active, err := repo.FindActiveByOrder(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, first, active[0].ID)
		assert.Equal(t, second, active[1].ID)
	})

	t.Run("reversal hides the original from the active list", func(t *testing.T) {
		original, err := repo.FindByIDForUpdate(ctx, first)
		require.NoError(t, err)
		require.NoError(t, original.BeginReversal())
		require.NoError(t, repo.UpdateStatus(ctx, original))

		reversal := original.NewReversal("Cancelled", shared.SystemActor, time.Now())
		require.NoError(t, repo.Create(ctx, reversal))
		require.NoError(t, original.CompleteReversal(shared.SystemActor, time.Now()))
		require.NoError(t, repo.UpdateStatus(ctx, original))

		active, err := repo.FindActiveByOrder(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, second, active[0].ID)

		all, err := repo.FindByOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		reloaded, err := repo.FindByID(ctx, tenantID, first)
		require.NoError(t, err)
		assert.Equal(t, finance.PaymentStatusReversed, reloaded.PaymentStatus)
		assert.NotNil(t, reloaded.ReversedAt)
	})

	t.Run("tenant scoped lookup", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New(), second)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("status update of unknown payment", func(t *testing.T) {
		ghost, err := finance.NewPayment(tenantID, orderID, decimal.NewFromInt(1), nil, "", "", nil)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.UpdateStatus(ctx, ghost), shared.ErrNotFound)
	})
}

func TestGormPaymentReversalLogRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormPaymentReversalLogRepository(db)
	ctx := context.Background()
	tenantID, orderID := uuid.New(), uuid.New()

	review := finance.NewReversalLog(tenantID, orderID, finance.ActionReviewRequested, "POD", "Cancelled",
		decimal.Zero, "1 reversal failed", shared.SystemActor, finance.LogStatusPending).
		WithDetail("failed_payment_ids", []string{uuid.NewString()})
	require.NoError(t, repo.Create(ctx, review))

	found, err := repo.FindByID(ctx, tenantID, review.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.ActionReviewRequested, found.ActionType)
	assert.Contains(t, found.ActionDetails, "failed_payment_ids")

	require.NoError(t, found.Resolve(finance.LogStatusCompleted))
	require.NoError(t, repo.UpdateStatus(ctx, found))

	t.Run("a resolved row cannot advance again", func(t *testing.T) {
		found.Status = finance.LogStatusCancelled
		err := repo.UpdateStatus(ctx, found)
		domainErr, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "LOG_ALREADY_RESOLVED", domainErr.Code)
	})

	logs, err := repo.FindByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, finance.LogStatusCompleted, logs[0].Status)
}
