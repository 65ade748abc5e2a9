// Package mailbox implements the transactional outbox/inbox substrate that
// keeps business modules eventually consistent without direct calls or shared
// tables. Events are captured to a module's outbox inside the business
// transaction, published to the bus by a polling dispatcher, persisted into
// each subscriber's inbox on arrival, and handed to local handlers by a
// mirrored dispatcher. An idempotency guard makes every (message, handler)
// pair run at most once despite at-least-once delivery.
package mailbox

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/model"
)

// Store is the persistence port for one mailbox (a single outbox or inbox
// table plus its consumer marker table). The *sqlx.Tx handed out by Begin is
// shared with handlers so marker inserts commit atomically with handler side
// effects; Commit and Rollback go through the store so tests can fake the
// whole port.
type Store interface {
	Begin(ctx context.Context) (*sqlx.Tx, error)
	Commit(tx *sqlx.Tx) error
	Rollback(tx *sqlx.Tx) error

	// Insert appends a message inside the given transaction. Used by the
	// capture step and by handlers that emit follow-up events.
	Insert(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error

	// InsertIfAbsent appends a message outside any caller transaction,
	// ignoring duplicates by id. Used by the inbox receiver, where transport
	// redelivery makes duplicate envelopes routine.
	InsertIfAbsent(ctx context.Context, msg *model.Message) error

	// FetchPending returns up to limit unprocessed messages, oldest first.
	FetchPending(ctx context.Context, limit int) ([]*model.Message, error)

	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	HasMarker(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, handlerName string) (bool, error)
	InsertMarker(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, handlerName string) error
}

// Aggregate is any entity that buffers domain events until capture.
type Aggregate interface {
	PendingEvents() []model.DomainEvent
	ClearEvents()
}
