package trade

import (
	"context"

	"github.com/google/uuid"
)

// Metrics records order lifecycle activity
type Metrics interface {
	RecordOrderCreated(ctx context.Context, tenantID uuid.UUID, orderType string)
	RecordTransition(ctx context.Context, tenantID uuid.UUID, orderType, from, to string)
	RecordTransitionRejected(ctx context.Context, tenantID uuid.UUID, orderType, to, code string)
}

type noopMetrics struct{}

func (noopMetrics) RecordOrderCreated(context.Context, uuid.UUID, string) {}

func (noopMetrics) RecordTransition(context.Context, uuid.UUID, string, string, string) {}

func (noopMetrics) RecordTransitionRejected(context.Context, uuid.UUID, string, string, string) {}
