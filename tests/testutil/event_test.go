package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEventHandler_RecordsAndFails(t *testing.T) {
	ctx := context.Background()
	h := NewMockEventHandler("OrderStatusChanged", "PaymentsReversed")
	require.Equal(t, []string{"OrderStatusChanged", "PaymentsReversed"}, h.EventTypes())

	changed := NewTestEvent("OrderStatusChanged", uuid.New())
	require.NoError(t, h.Handle(ctx, changed))

	h.SetError(errors.New("alert sink down"))
	assert.EqualError(t, h.Handle(ctx, changed), "alert sink down")

	h.SetError(nil)
	require.NoError(t, h.Handle(ctx, changed))
	assert.Equal(t, 3, h.HandledCount())
	assert.Same(t, changed, h.Handled()[0])
}

func TestRecordingPublisher_ConcurrentPublish(t *testing.T) {
	var (
		pub RecordingPublisher
		wg  sync.WaitGroup
	)
	tenantID := uuid.New()
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Publish(context.Background(), NewTestEvent("PaymentCollected", tenantID))
		}()
	}
	wg.Wait()

	require.Len(t, pub.Events(), 8)
	for _, eventType := range pub.EventTypes() {
		assert.Equal(t, "PaymentCollected", eventType)
	}
}
