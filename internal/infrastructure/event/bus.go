// Package event dispatches committed domain events to in-process handlers.
package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/orderflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus calls handlers synchronously on the publishing goroutine.
// Handler errors and panics are counted and logged; Publish never fails.
type InMemoryEventBus struct {
	routes   *routeTable
	logger   *zap.Logger
	running  atomic.Bool
	failures atomic.Int64
}

var _ shared.EventPublisher = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{routes: newRouteTable(), logger: logger.Named("event_bus")}
}

func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		b.deliver(ctx, ev)
	}
	return nil
}

func (b *InMemoryEventBus) deliver(ctx context.Context, ev shared.DomainEvent) {
	for _, h := range b.routes.match(ev.EventType()) {
		err := safeHandle(ctx, h, ev)
		if err == nil {
			continue
		}
		b.failures.Add(1)
		b.logger.Error("handler failed to process event",
			zap.String("event_type", ev.EventType()),
			zap.Stringer("event_id", ev.EventID()),
			zap.Stringer("aggregate_id", ev.AggregateID()),
			zap.Error(err),
		)
	}
}

func safeHandle(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

// Subscribe registers handler for eventTypes, falling back to the handler's
// own EventTypes. No types at all means every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.routes.add(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.routes.remove(handler)
}

func (b *InMemoryEventBus) Start(context.Context) error {
	if b.running.CompareAndSwap(false, true) {
		b.logger.Info("event bus started")
	}
	return nil
}

// Stop has nothing to drain since delivery is synchronous
func (b *InMemoryEventBus) Stop(context.Context) error {
	if b.running.CompareAndSwap(true, false) {
		b.logger.Info("event bus stopped", zap.Int64("handler_failures", b.failures.Load()))
	}
	return nil
}

func (b *InMemoryEventBus) Running() bool { return b.running.Load() }

// Failures counts handler errors and panics since construction
func (b *InMemoryEventBus) Failures() int64 { return b.failures.Load() }
