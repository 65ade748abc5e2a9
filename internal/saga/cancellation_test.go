package saga_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/saga"
)

func requested(showID uuid.UUID) saga.IncomingEvent {
	return saga.IncomingEvent{
		Type:           model.EventTypeShowCancellationRequested,
		ShowID:         showID,
		Name:           "Farewell Tour",
		OrganizerEmail: "organizer@example.com",
	}
}

func refunded(showID uuid.UUID) saga.IncomingEvent {
	return saga.IncomingEvent{Type: model.EventTypePaymentsRefunded, ShowID: showID}
}

func archived(showID uuid.UUID) saga.IncomingEvent {
	return saga.IncomingEvent{Type: model.EventTypeTicketsArchived, ShowID: showID}
}

func TestTransitionRequestStartsSaga(t *testing.T) {
	showID := uuid.New()

	next, outgoing, err := saga.Transition(nil, requested(showID))
	require.NoError(t, err)

	require.NotNil(t, next)
	assert.Equal(t, showID, next.CorrelationID)
	assert.Equal(t, model.SagaStateCancellationStarted, next.CurrentState)
	assert.False(t, next.PaymentsRefunded)
	assert.False(t, next.TicketsArchived)

	require.Len(t, outgoing, 1)
	assert.Equal(t, model.EventTypeShowCancellationStarted, outgoing[0].Type)
	started, ok := outgoing[0].Payload.(model.ShowCancellationStarted)
	require.True(t, ok)
	assert.Equal(t, "Farewell Tour", started.Name)
	assert.Equal(t, "organizer@example.com", started.OrganizerEmail)
}

func TestTransitionConfirmationsInEitherOrder(t *testing.T) {
	tests := []struct {
		name          string
		first, second func(uuid.UUID) saga.IncomingEvent
		midState      model.SagaState
	}{
		{"payments then tickets", refunded, archived, model.SagaStatePaymentsConfirmed},
		{"tickets then payments", archived, refunded, model.SagaStateArchivalConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			showID := uuid.New()
			instance, _, err := saga.Transition(nil, requested(showID))
			require.NoError(t, err)

			// First confirmation: intermediate state, nothing emitted.
			mid, outgoing, err := saga.Transition(instance, tt.first(showID))
			require.NoError(t, err)
			assert.Equal(t, tt.midState, mid.CurrentState)
			assert.False(t, mid.Finalized())
			assert.Empty(t, outgoing)

			// Second confirmation: the join fires exactly once.
			final, outgoing, err := saga.Transition(mid, tt.second(showID))
			require.NoError(t, err)
			assert.True(t, final.Finalized())
			require.Len(t, outgoing, 1)
			assert.Equal(t, model.EventTypeShowCancellationCompleted, outgoing[0].Type)
			completed, ok := outgoing[0].Payload.(model.ShowCancellationCompleted)
			require.True(t, ok)
			assert.Equal(t, showID, completed.ShowID)
		})
	}
}

func TestTransitionDuplicateRequestIsNoOp(t *testing.T) {
	showID := uuid.New()
	instance, _, err := saga.Transition(nil, requested(showID))
	require.NoError(t, err)

	next, outgoing, err := saga.Transition(instance, requested(showID))
	require.NoError(t, err)
	assert.Same(t, instance, next)
	assert.Empty(t, outgoing, "a duplicate trigger must not emit a second started event")
}

func TestTransitionFinalizedIgnoresEverything(t *testing.T) {
	showID := uuid.New()
	instance, _, err := saga.Transition(nil, requested(showID))
	require.NoError(t, err)
	instance, _, err = saga.Transition(instance, refunded(showID))
	require.NoError(t, err)
	instance, _, err = saga.Transition(instance, archived(showID))
	require.NoError(t, err)
	require.True(t, instance.Finalized())

	for _, evt := range []saga.IncomingEvent{requested(showID), refunded(showID), archived(showID)} {
		next, outgoing, err := saga.Transition(instance, evt)
		require.NoError(t, err)
		assert.Same(t, instance, next)
		assert.Empty(t, outgoing, "a finalized saga must never emit a second completion")
	}
}

func TestTransitionRepeatedConfirmationStaysIdempotent(t *testing.T) {
	showID := uuid.New()
	instance, _, err := saga.Transition(nil, requested(showID))
	require.NoError(t, err)

	once, outgoing, err := saga.Transition(instance, refunded(showID))
	require.NoError(t, err)
	assert.Empty(t, outgoing)

	// The same confirmation again under a fresh message id: same flags, same
	// state, still no completion.
	twice, outgoing, err := saga.Transition(once, refunded(showID))
	require.NoError(t, err)
	assert.Empty(t, outgoing)
	assert.Equal(t, once.CurrentState, twice.CurrentState)
	assert.True(t, twice.PaymentsRefunded)
	assert.False(t, twice.TicketsArchived)
}

func TestTransitionConfirmationWithoutInstanceFails(t *testing.T) {
	showID := uuid.New()

	_, _, err := saga.Transition(nil, refunded(showID))
	require.Error(t, err)

	var unknown *saga.UnknownCorrelationError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, showID, unknown.ShowID)
}
