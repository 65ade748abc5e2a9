// Package saga implements the show cancellation workflow: a durable state
// machine correlated by show id that waits for the payments and tickets
// modules to both confirm cleanup before declaring the cancellation complete.
package saga

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventium/eventium/internal/model"
)

// IncomingEvent is the decoded view of a saga-relevant integration event.
// Name and OrganizerEmail are only set on the cancellation request, which
// carries the enriched show data the started event fans out.
type IncomingEvent struct {
	Type           string
	ShowID         uuid.UUID
	Name           string
	OrganizerEmail string
}

// Transition is the pure transition function: given the stored instance
// (nil when no row exists yet) and an incoming event, it returns the updated
// instance and the events to emit. It never touches storage.
//
// Finalization requires both completion flags no matter which confirmation
// arrives second, and a finalized instance ignores everything: redelivered
// confirmations after completion are no-ops, never a second completion event.
func Transition(instance *model.CancellationSaga, evt IncomingEvent) (*model.CancellationSaga, []model.DomainEvent, error) {
	if instance == nil {
		if evt.Type != model.EventTypeShowCancellationRequested {
			return nil, nil, &UnknownCorrelationError{EventType: evt.Type, ShowID: evt.ShowID}
		}

		next := &model.CancellationSaga{
			CorrelationID: evt.ShowID,
			CurrentState:  model.SagaStateCancellationStarted,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		started := model.DomainEvent{
			Type: model.EventTypeShowCancellationStarted,
			Payload: model.ShowCancellationStarted{
				ShowID:         evt.ShowID,
				Name:           evt.Name,
				OrganizerEmail: evt.OrganizerEmail,
			},
			OccurredAt: time.Now(),
		}
		return next, []model.DomainEvent{started}, nil
	}

	if instance.Finalized() {
		return instance, nil, nil
	}

	next := *instance
	switch evt.Type {
	case model.EventTypeShowCancellationRequested:
		// Duplicate trigger under a fresh message id; the instance exists,
		// so the started event is already on its way out.
		return instance, nil, nil
	case model.EventTypePaymentsRefunded:
		next.PaymentsRefunded = true
		next.CurrentState = model.SagaStatePaymentsConfirmed
	case model.EventTypeTicketsArchived:
		next.TicketsArchived = true
		next.CurrentState = model.SagaStateArchivalConfirmed
	default:
		return nil, nil, &UnknownCorrelationError{EventType: evt.Type, ShowID: evt.ShowID}
	}

	// The AND-join: only the second confirmation finalizes.
	if next.PaymentsRefunded && next.TicketsArchived {
		next.CurrentState = model.SagaStateFinalized
		completed := model.DomainEvent{
			Type:       model.EventTypeShowCancellationCompleted,
			Payload:    model.ShowCancellationCompleted{ShowID: instance.CorrelationID},
			OccurredAt: time.Now(),
		}
		return &next, []model.DomainEvent{completed}, nil
	}

	return &next, nil, nil
}

// UnknownCorrelationError reports an event the state machine has no
// transition for in the instance's current position.
type UnknownCorrelationError struct {
	EventType string
	ShowID    uuid.UUID
}

func (e *UnknownCorrelationError) Error() string {
	return "no saga transition for event " + e.EventType + " (show " + e.ShowID.String() + ")"
}
