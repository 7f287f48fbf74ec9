package shared

import (
	"time"

	"github.com/google/uuid"
)

// TenantAggregateRoot is the identity, optimistic version and pending events
// of an aggregate owned by one tenant. Every query on it filters by TenantID.
type TenantAggregateRoot struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int

	pending []DomainEvent
}

// NewTenantAggregateRoot starts a version 1 aggregate with a fresh id
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	now := time.Now().UTC()
	return TenantAggregateRoot{
		ID:        uuid.New(),
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// IncrementVersion bumps the version; repositories persist it with the change
func (a *TenantAggregateRoot) IncrementVersion() {
	a.Version++
}

// Raise queues an event for publication after commit
func (a *TenantAggregateRoot) Raise(event DomainEvent) {
	a.pending = append(a.pending, event)
}

func (a *TenantAggregateRoot) Events() []DomainEvent {
	return a.pending
}

// PullEvents returns the queued events and forgets them
func (a *TenantAggregateRoot) PullEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
