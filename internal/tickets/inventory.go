// Package tickets owns ticket pools (the finite inventory) and issued
// tickets. The inventory controller here is the only row-lock-protected path
// in the system; everything else moves through the mailbox pipeline.
package tickets

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
	"github.com/eventium/eventium/pkg/metrics"
)

// Inventory serializes concurrent purchases of the same pool. It is invoked
// once per distinct pool inside the purchase transaction; the row lock it
// takes is held until that transaction ends, so two buyers racing for the
// last ticket resolve to exactly one success and one ErrInsufficientStock.
type Inventory struct {
	pools   repository.TicketPoolRepository
	capture *mailbox.Capture
	metrics *metrics.Metrics
}

func NewInventory(pools repository.TicketPoolRepository, capture *mailbox.Capture, metrics *metrics.Metrics) *Inventory {
	return &Inventory{pools: pools, capture: capture, metrics: metrics}
}

// AcquireAndDecrement locks the pool row, re-reads availability under the
// lock, and decrements it by qty. Reaching zero raises the sold-out event
// into the tickets outbox within the same transaction. Insufficient stock is
// a business rejection: the caller's transaction rolls back and the lock is
// released with it.
func (i *Inventory) AcquireAndDecrement(ctx context.Context, tx *sqlx.Tx, poolID uuid.UUID, qty int) (*model.TicketPool, error) {
	pool, err := i.pools.GetForUpdate(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}

	if err := pool.Reserve(qty); err != nil {
		i.metrics.InsufficientStock.Inc()
		return nil, fmt.Errorf("pool %s: %w", poolID, err)
	}

	if err := i.pools.DecrementAvailable(ctx, tx, poolID, qty); err != nil {
		return nil, err
	}

	if len(pool.PendingEvents()) > 0 {
		i.metrics.SoldOutPools.Inc()
		if err := i.capture.Drain(ctx, tx, pool); err != nil {
			return nil, err
		}
	}
	return pool, nil
}
