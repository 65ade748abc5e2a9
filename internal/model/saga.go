package model

import (
	"time"

	"github.com/google/uuid"
)

type SagaState string

const (
	// SagaStateInitial is implicit: no row exists yet for the correlation id.
	SagaStateInitial             SagaState = "initial"
	SagaStateCancellationStarted SagaState = "cancellation_started"
	SagaStatePaymentsConfirmed   SagaState = "payments_confirmed"
	SagaStateArchivalConfirmed   SagaState = "archival_confirmed"
	SagaStateFinalized           SagaState = "finalized"
)

// CancellationSaga is the durable state of one cancellation workflow,
// correlated by the show being cancelled. Finalization requires both
// completion flags regardless of arrival order. Version is reserved for
// optimistic concurrency; instances are serialized by a row lock instead.
type CancellationSaga struct {
	CorrelationID    uuid.UUID `db:"correlation_id"`
	CurrentState     SagaState `db:"current_state"`
	PaymentsRefunded bool      `db:"payments_refunded"`
	TicketsArchived  bool      `db:"tickets_archived"`
	Version          int       `db:"version"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// Finalized reports whether the saga has reached its terminal state.
func (s *CancellationSaga) Finalized() bool {
	return s.CurrentState == SagaStateFinalized
}
