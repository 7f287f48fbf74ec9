package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T, amount int64) *PaymentTransaction {
	p, err := NewPayment(uuid.New(), uuid.New(), decimal.NewFromInt(amount), nil, "REF-1", "cash", nil)
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	p := newTestPayment(t, 250)
	assert.Equal(t, PaymentStatusActive, p.PaymentStatus)
	assert.True(t, p.IsActive())
	assert.False(t, p.IsReversal)

	_, err := NewPayment(uuid.New(), uuid.New(), decimal.Zero, nil, "", "", nil)
	require.Error(t, err)
	domainErr, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, shared.KindValidation, domainErr.Kind)
}

func TestPaymentTransaction_ReversalFlow(t *testing.T) {
	actor := shared.Actor{ID: uuid.New(), Name: "ops", Role: shared.RoleManager}
	now := time.Now()
	p := newTestPayment(t, 500)

	require.NoError(t, p.BeginReversal())
	assert.Equal(t, PaymentStatusPendingReversal, p.PaymentStatus)

	reversal := p.NewReversal("Cancelled", actor, now)
	assert.True(t, reversal.IsReversal)
	require.NotNil(t, reversal.OriginalPaymentID)
	assert.Equal(t, p.ID, *reversal.OriginalPaymentID)
	assert.True(t, reversal.Amount.Equal(p.Amount))
	assert.Equal(t, "Cancelled", reversal.ReversalReason)
	assert.False(t, reversal.IsActive())

	require.NoError(t, p.CompleteReversal(actor, now))
	assert.Equal(t, PaymentStatusReversed, p.PaymentStatus)
	assert.Equal(t, actor.ID, *p.ReversedBy)

	t.Run("second reversal is rejected", func(t *testing.T) {
		err := p.BeginReversal()
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.NewPolicyViolation(CodePaymentAlreadyReversed, "")))
	})

	t.Run("reversal entries are not reversible", func(t *testing.T) {
		assert.Error(t, reversal.BeginReversal())
	})
}

func TestPaymentTransaction_CompleteReversalRequiresPending(t *testing.T) {
	p := newTestPayment(t, 10)
	assert.Error(t, p.CompleteReversal(shared.SystemActor, time.Now()))
}

func TestApplyToPaidAmount(t *testing.T) {
	next, clamped := ApplyToPaidAmount(decimal.NewFromInt(500), decimal.NewFromInt(-200))
	assert.True(t, next.Equal(decimal.NewFromInt(300)))
	assert.False(t, clamped)

	next, clamped = ApplyToPaidAmount(decimal.NewFromInt(100), decimal.NewFromInt(-150))
	assert.True(t, next.IsZero())
	assert.True(t, clamped)

	assert.True(t, Balance(decimal.NewFromInt(500), decimal.NewFromInt(120)).Equal(decimal.NewFromInt(380)))
}

func TestPaymentReversalLog_Resolve(t *testing.T) {
	log := NewReversalLog(uuid.New(), uuid.New(), ActionReviewRequested, "POD", "Cancelled",
		decimal.NewFromInt(100), "reversal failed", shared.SystemActor, LogStatusPending)

	require.NoError(t, log.Resolve(LogStatusCompleted))
	assert.Equal(t, LogStatusCompleted, log.Status)
	assert.Error(t, log.Resolve(LogStatusCancelled))

	pending := NewReversalLog(uuid.New(), uuid.New(), ActionReviewRequested, "", "", decimal.Zero, "", shared.SystemActor, LogStatusPending)
	assert.Error(t, pending.Resolve(LogStatusPending))
}

func TestPaymentReversalLog_Details(t *testing.T) {
	original := uuid.New()
	log := NewReversalLog(uuid.New(), uuid.New(), ActionAutomaticReversal, "POD", "Returned",
		decimal.NewFromInt(5), "Returned", shared.SystemActor, LogStatusCompleted).
		ForPayment(original, nil).
		WithDetail(DetailPartialReversalMismatch, true)

	assert.Equal(t, original, *log.OriginalPaymentID)
	assert.Nil(t, log.ReversalPaymentID)
	assert.Equal(t, true, log.ActionDetails[DetailPartialReversalMismatch])

	log.Fail(errors.New("boom"))
	assert.Equal(t, LogStatusFailed, log.Status)
	assert.Equal(t, "boom", log.ErrorMessage)
}

func TestBalance(t *testing.T) {
	total := decimal.NewFromInt(100)
	assert.True(t, Balance(total, decimal.NewFromInt(60)).Equal(decimal.NewFromInt(40)))
	assert.True(t, Balance(total, total).IsZero())
	assert.True(t, Balance(total, decimal.NewFromInt(125)).Equal(decimal.NewFromInt(-25)))
}
