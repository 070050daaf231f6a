package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate. Events are queued on the
// aggregate and published only after the surrounding transaction commits.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// EventEnvelope carries the routing fields of an event; concrete events embed
// it and add their payload
type EventEnvelope struct {
	ID        uuid.UUID `json:"event_id"`
	Name      string    `json:"event_type"`
	At        time.Time `json:"occurred_at"`
	SourceID  uuid.UUID `json:"aggregate_id"`
	Source    string    `json:"aggregate_type"`
	Tenant    uuid.UUID `json:"tenant_id"`
}

// NewEventEnvelope stamps a new event raised by the given aggregate
func NewEventEnvelope(name, source string, sourceID, tenantID uuid.UUID, at time.Time) EventEnvelope {
	return EventEnvelope{
		ID:       uuid.New(),
		Name:     name,
		At:       at,
		SourceID: sourceID,
		Source:   source,
		Tenant:   tenantID,
	}
}

func (e EventEnvelope) EventID() uuid.UUID { return e.ID }
func (e EventEnvelope) EventType() string { return e.Name }
func (e EventEnvelope) OccurredAt() time.Time { return e.At }
func (e EventEnvelope) AggregateID() uuid.UUID { return e.SourceID }
func (e EventEnvelope) AggregateType() string { return e.Source }
func (e EventEnvelope) TenantID() uuid.UUID { return e.Tenant }

// EventHandler reacts to published events. An empty EventTypes means every
// event.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher hands committed events to subscribers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is a publisher that handlers can subscribe to and that is started
// and stopped with the process
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
