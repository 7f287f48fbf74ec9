package finance

import (
	"context"

	"github.com/google/uuid"
)

// Metrics records payment ledger activity
type Metrics interface {
	RecordPaymentCollected(ctx context.Context, tenantID uuid.UUID)
	RecordPaymentReversals(ctx context.Context, tenantID uuid.UUID, reason string, reversed, failed int)
}

type noopMetrics struct{}

func (noopMetrics) RecordPaymentCollected(context.Context, uuid.UUID) {}

func (noopMetrics) RecordPaymentReversals(context.Context, uuid.UUID, string, int, int) {}
