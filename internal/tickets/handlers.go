package tickets

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

// Archiver is the tickets inbox handler for cancellation-started. It
// archives the show's tickets and records the confirmation event in the
// tickets outbox, all in the guard's transaction.
type Archiver struct {
	tickets repository.TicketRepository
	outbox  mailbox.Store
	logger  *logger.Logger
}

func NewArchiver(tickets repository.TicketRepository, outbox mailbox.Store, logger *logger.Logger) *Archiver {
	return &Archiver{tickets: tickets, outbox: outbox, logger: logger}
}

func (h *Archiver) Name() string { return "tickets-archiver" }

func (h *Archiver) Handle(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	var p model.ShowCancellationStarted
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode cancellation start: %w", err)
	}

	archived, err := h.tickets.ArchiveByShow(ctx, tx, p.ShowID)
	if err != nil {
		return err
	}
	h.logger.Info("archived tickets for cancelled show",
		"show_id", p.ShowID.String(), "archived", archived)

	confirmation, err := model.NewMessage(model.DomainEvent{
		Type:       model.EventTypeTicketsArchived,
		Payload:    model.TicketsArchived{ShowID: p.ShowID, Archived: int(archived)},
		OccurredAt: time.Now(),
	})
	if err != nil {
		return err
	}
	return h.outbox.Insert(ctx, tx, confirmation)
}
