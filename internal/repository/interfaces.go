package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/model"
)

// Module repositories. Mutating methods take the enclosing transaction
// explicitly; WithTx opens one around a unit of work. The mailbox store port
// lives in internal/mailbox since it is the substrate's own persistence.

type ShowRepository interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
	Create(ctx context.Context, show *model.Show) error
	Get(ctx context.Context, id uuid.UUID) (*model.Show, error)
	GetTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Show, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, show *model.Show) error
}

type TicketPoolRepository interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
	Create(ctx context.Context, pool *model.TicketPool) error
	Get(ctx context.Context, id uuid.UUID) (*model.TicketPool, error)

	// GetForUpdate acquires the exclusive row lock the inventory controller
	// relies on; it blocks competing purchasers of the same pool until the
	// enclosing transaction ends.
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.TicketPool, error)
	DecrementAvailable(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, qty int) error
}

type TicketRepository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, ticket *model.Ticket) error
	ArchiveByShow(ctx context.Context, tx *sqlx.Tx, showID uuid.UUID) (int64, error)
}

type PaymentRepository interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, payment *model.Payment) error
	RefundByShow(ctx context.Context, tx *sqlx.Tx, showID uuid.UUID) (int64, error)
}

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, order *model.Order) error
	CancelByShow(ctx context.Context, tx *sqlx.Tx, showID uuid.UUID) (int64, error)
}

type SagaRepository interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error

	// GetForUpdate returns nil when no instance exists for the correlation
	// id. The row lock serializes concurrent messages for the same saga.
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, correlationID uuid.UUID) (*model.CancellationSaga, error)
	Save(ctx context.Context, tx *sqlx.Tx, saga *model.CancellationSaga) error

	// OldestUnfinishedAge feeds the stall alert: how long the oldest
	// non-finalized instance has been waiting.
	OldestUnfinishedAge(ctx context.Context) (time.Duration, error)
}
