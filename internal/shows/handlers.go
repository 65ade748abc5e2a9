package shows

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
	"github.com/eventium/eventium/pkg/email"
	"github.com/eventium/eventium/pkg/logger"
	"github.com/eventium/eventium/pkg/messaging"
)

// CancellationPublisher is the shows outbox handler for the cancellation
// request. The aggregate raises the event with only the show id; this
// handler enriches it from the read side and publishes the full integration
// event the saga and the cleanup modules need.
type CancellationPublisher struct {
	query  *QueryService
	broker messaging.Broker
}

func NewCancellationPublisher(query *QueryService, broker messaging.Broker) *CancellationPublisher {
	return &CancellationPublisher{query: query, broker: broker}
}

func (h *CancellationPublisher) Name() string { return "shows-cancellation-publisher" }

func (h *CancellationPublisher) Handle(ctx context.Context, _ *sqlx.Tx, msg *model.Message) error {
	var p model.ShowCancellationRequested
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode cancellation request: %w", err)
	}

	show, err := h.query.GetShow(ctx, p.ShowID)
	if err != nil {
		return fmt.Errorf("failed to enrich cancellation request: %w", err)
	}
	p.Name = show.Name
	p.OrganizerEmail = show.OrganizerEmail

	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}

	enriched := *msg
	enriched.Payload = payload
	return h.broker.Publish(ctx, enriched.EventType, &enriched)
}

// CancellationFinisher is the shows inbox handler for the completion event:
// it flips the show from cancelling to cancelled.
type CancellationFinisher struct {
	repo  repository.ShowRepository
	query *QueryService
}

func NewCancellationFinisher(repo repository.ShowRepository, query *QueryService) *CancellationFinisher {
	return &CancellationFinisher{repo: repo, query: query}
}

func (h *CancellationFinisher) Name() string { return "shows-cancellation-finisher" }

func (h *CancellationFinisher) Handle(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	var p model.ShowCancellationCompleted
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode cancellation completion: %w", err)
	}

	show, err := h.repo.GetTx(ctx, tx, p.ShowID)
	if err != nil {
		return err
	}
	show.FinishCancellation()
	if err := h.repo.UpdateStatus(ctx, tx, show); err != nil {
		return err
	}

	h.query.Invalidate(p.ShowID)
	return nil
}

// OrganizerNotifier emails the organizer once a cancellation completes.
// Delivery is best-effort: a failed send is logged, never retried through
// the mailbox.
type OrganizerNotifier struct {
	query  *QueryService
	sender email.Sender
	logger *logger.Logger
}

func NewOrganizerNotifier(query *QueryService, sender email.Sender, logger *logger.Logger) *OrganizerNotifier {
	return &OrganizerNotifier{query: query, sender: sender, logger: logger}
}

func (h *OrganizerNotifier) Name() string { return "shows-organizer-notifier" }

func (h *OrganizerNotifier) Handle(ctx context.Context, _ *sqlx.Tx, msg *model.Message) error {
	var p model.ShowCancellationCompleted
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode cancellation completion: %w", err)
	}

	show, err := h.query.GetShow(ctx, p.ShowID)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Cancellation of %q is complete", show.Name)
	body := "All payments have been refunded and all tickets archived."
	if err := h.sender.Send(ctx, show.OrganizerEmail, subject, body); err != nil {
		h.logger.Error(err, "failed to notify organizer", "show_id", p.ShowID.String())
	}
	return nil
}
