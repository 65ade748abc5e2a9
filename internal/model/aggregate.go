package model

import "time"

// DomainEvent is a fact raised by an aggregate during a mutation. Events stay
// buffered on the aggregate until the outbox capture step drains them inside
// the same transaction that persists the mutation.
type DomainEvent struct {
	Type       string
	Payload    interface{}
	OccurredAt time.Time
}

// AggregateRoot is embedded by aggregates that raise domain events.
type AggregateRoot struct {
	pending []DomainEvent
}

// Raise buffers a domain event on the aggregate.
func (a *AggregateRoot) Raise(eventType string, payload interface{}) {
	a.pending = append(a.pending, DomainEvent{
		Type:       eventType,
		Payload:    payload,
		OccurredAt: time.Now(),
	})
}

// PendingEvents returns the buffered events in raise order.
func (a *AggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// ClearEvents empties the buffer. Called by the capture step after the events
// have been written to the outbox.
func (a *AggregateRoot) ClearEvents() {
	a.pending = nil
}
