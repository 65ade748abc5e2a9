package mailbox

import (
	"context"
	"fmt"

	"github.com/eventium/eventium/internal/model"
)

// Guard wraps handler invocation with the consumer marker check that makes
// redelivery and tick retries safe. A marker row for (message, handler) means
// the handler already completed; the marker is inserted in the same
// transaction as the handler's side effects, so either both commit or
// neither does.
type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Execute runs h for msg at most once. A failed handler leaves no marker and
// the error is propagated so the dispatcher retries on a later tick.
func (g *Guard) Execute(ctx context.Context, msg *model.Message, h Handler) error {
	tx, err := g.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin handler transaction: %w", err)
	}

	done, err := g.store.HasMarker(ctx, tx, msg.ID, h.Name())
	if err != nil {
		g.store.Rollback(tx)
		return fmt.Errorf("failed to check consumer marker: %w", err)
	}
	if done {
		g.store.Rollback(tx)
		return nil
	}

	if err := h.Handle(ctx, tx, msg); err != nil {
		g.store.Rollback(tx)
		return err
	}

	if err := g.store.InsertMarker(ctx, tx, msg.ID, h.Name()); err != nil {
		g.store.Rollback(tx)
		return fmt.Errorf("failed to insert consumer marker: %w", err)
	}

	if err := g.store.Commit(tx); err != nil {
		return fmt.Errorf("failed to commit handler transaction: %w", err)
	}
	return nil
}
