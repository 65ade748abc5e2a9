package mailbox

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/model"
)

// Capture drains pending domain events from mutated aggregates into a
// module's outbox. Drain must be called with the transaction of the business
// mutation itself: if that transaction rolls back, the outbox rows roll back
// with it and no event is ever recorded for a mutation that didn't happen.
type Capture struct {
	outbox Store
}

func NewCapture(outbox Store) *Capture {
	return &Capture{outbox: outbox}
}

// Drain serializes each aggregate's buffered events, inserts them as outbox
// rows inside tx, and clears the buffers. Nothing is dispatched here; capture
// is pure persistence.
func (c *Capture) Drain(ctx context.Context, tx *sqlx.Tx, aggs ...Aggregate) error {
	for _, agg := range aggs {
		for _, evt := range agg.PendingEvents() {
			msg, err := model.NewMessage(evt)
			if err != nil {
				return err
			}
			if err := c.outbox.Insert(ctx, tx, msg); err != nil {
				return fmt.Errorf("failed to capture %s event: %w", evt.Type, err)
			}
		}
		agg.ClearEvents()
	}
	return nil
}
