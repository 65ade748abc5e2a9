package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
	"github.com/eventium/eventium/pkg/logger"
)

// Refunder is the payments inbox handler for cancellation-started. Refunds
// and the confirmation event commit together in the guard's transaction.
type Refunder struct {
	repo   repository.PaymentRepository
	outbox mailbox.Store
	logger *logger.Logger
}

func NewRefunder(repo repository.PaymentRepository, outbox mailbox.Store, logger *logger.Logger) *Refunder {
	return &Refunder{repo: repo, outbox: outbox, logger: logger}
}

func (h *Refunder) Name() string { return "payments-refunder" }

func (h *Refunder) Handle(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	var p model.ShowCancellationStarted
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode cancellation start: %w", err)
	}

	refunded, err := h.repo.RefundByShow(ctx, tx, p.ShowID)
	if err != nil {
		return err
	}
	h.logger.Info("refunded payments for cancelled show",
		"show_id", p.ShowID.String(), "refunded", refunded)

	confirmation, err := model.NewMessage(model.DomainEvent{
		Type:       model.EventTypePaymentsRefunded,
		Payload:    model.PaymentsRefunded{ShowID: p.ShowID, Refunded: int(refunded)},
		OccurredAt: time.Now(),
	})
	if err != nil {
		return err
	}
	return h.outbox.Insert(ctx, tx, confirmation)
}
