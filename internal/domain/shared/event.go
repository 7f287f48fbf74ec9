package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate and published after commit
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// BaseDomainEvent carries the envelope every order and payment event shares.
// Embed it by value and the concrete event satisfies DomainEvent.
type BaseDomainEvent struct {
	Header EventHeader `json:"header"`
}

// EventHeader identifies an event and the aggregate it belongs to
type EventHeader struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	At            time.Time `json:"occurred_at"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   uuid.UUID `json:"aggregate_id"`
	TenantID      uuid.UUID `json:"tenant_id"`
}

func (e BaseDomainEvent) EventID() uuid.UUID     { return e.Header.ID }
func (e BaseDomainEvent) EventType() string      { return e.Header.Type }
func (e BaseDomainEvent) OccurredAt() time.Time  { return e.Header.At }
func (e BaseDomainEvent) AggregateID() uuid.UUID { return e.Header.AggregateID }
func (e BaseDomainEvent) AggregateType() string  { return e.Header.AggregateType }
func (e BaseDomainEvent) TenantID() uuid.UUID    { return e.Header.TenantID }

// NewBaseDomainEvent stamps a fresh id and the current UTC time
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{Header: EventHeader{
		ID:            uuid.New(),
		Type:          eventType,
		At:            time.Now().UTC(),
		AggregateType: aggType,
		AggregateID:   aggID,
		TenantID:      tenantID,
	}}
}

// EventPublisher hands committed events to their handlers. Services call it
// after the transaction that raised the events has committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventHandler reacts to published events. Errors are logged by the
// publisher and never undo the committed change. EventTypes names the types
// the handler wants; nil means all of them.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}
