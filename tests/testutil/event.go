package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
)

// eventLog is a goroutine-safe list of events in arrival order
type eventLog struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (l *eventLog) add(events ...shared.DomainEvent) {
	l.mu.Lock()
	l.events = append(l.events, events...)
	l.mu.Unlock()
}

// Events returns a copy of the recorded events
func (l *eventLog) Events() []shared.DomainEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]shared.DomainEvent(nil), l.events...)
}

// EventTypes returns the recorded event types in order
func (l *eventLog) EventTypes() []string {
	events := l.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}

// RecordingPublisher stands in for the event bus in service tests
type RecordingPublisher struct {
	eventLog
}

func (p *RecordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.add(events...)
	return nil
}

// MockEventHandler records what it is given and returns a configurable error
type MockEventHandler struct {
	eventLog
	subscribed []string

	errMu sync.Mutex
	err   error
}

// NewMockEventHandler subscribes to eventTypes, or to every type when none are given
func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{subscribed: eventTypes}
}

func (h *MockEventHandler) EventTypes() []string { return h.subscribed }

func (h *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.add(event)
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

// Handled is an alias of Events
func (h *MockEventHandler) Handled() []shared.DomainEvent { return h.Events() }

func (h *MockEventHandler) HandledCount() int { return len(h.Events()) }

// SetError makes later Handle calls fail with err
func (h *MockEventHandler) SetError(err error) {
	h.errMu.Lock()
	h.err = err
	h.errMu.Unlock()
}

// TestEvent is a bare domain event for bus tests
type TestEvent struct {
	shared.BaseDomainEvent
}

func NewTestEvent(eventType string, tenantID uuid.UUID) *TestEvent {
	return &TestEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), tenantID)}
}
