package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
	"github.com/eventium/eventium/pkg/logger"
)

// Canceller marks a show's orders cancelled once the saga completes. The
// order update is deliberately outside the saga's completion join: it is a
// best-effort parallel action, not a third branch of the AND condition.
type Canceller struct {
	repo   repository.OrderRepository
	logger *logger.Logger
}

func NewCanceller(repo repository.OrderRepository, logger *logger.Logger) *Canceller {
	return &Canceller{repo: repo, logger: logger}
}

func (h *Canceller) Name() string { return "orders-canceller" }

func (h *Canceller) Handle(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	var p model.ShowCancellationCompleted
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode cancellation completion: %w", err)
	}

	cancelled, err := h.repo.CancelByShow(ctx, tx, p.ShowID)
	if err != nil {
		return err
	}
	h.logger.Info("cancelled orders for cancelled show",
		"show_id", p.ShowID.String(), "cancelled", cancelled)
	return nil
}
