package saga

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
	"github.com/eventium/eventium/pkg/logger"
	"github.com/eventium/eventium/pkg/metrics"
)

// Handler is the saga's inbox handler. It loads the instance under a row
// lock, runs the pure transition, persists the result, and captures outgoing
// events into the saga's own outbox, all in the transaction the idempotency
// guard hands it, so a crash anywhere leaves either the whole step or none
// of it.
type Handler struct {
	repo    repository.SagaRepository
	outbox  mailbox.Store
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewHandler(repo repository.SagaRepository, outbox mailbox.Store, logger *logger.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		repo:    repo,
		outbox:  outbox,
		logger:  logger.WithFields(map[string]interface{}{"component": "cancellation-saga"}),
		metrics: metrics,
	}
}

func (h *Handler) Name() string { return "cancellation-saga" }

func (h *Handler) Handle(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	evt, err := decode(msg)
	if err != nil {
		return err
	}

	instance, err := h.repo.GetForUpdate(ctx, tx, evt.ShowID)
	if err != nil {
		return err
	}

	next, outgoing, err := Transition(instance, evt)
	if err != nil {
		return err
	}

	if next != instance {
		if err := h.repo.Save(ctx, tx, next); err != nil {
			return err
		}
		h.metrics.SagaTransitions.WithLabelValues(string(next.CurrentState)).Inc()
		h.logger.Info("saga transitioned",
			"correlation_id", next.CorrelationID.String(),
			"state", string(next.CurrentState))
	}

	for _, out := range outgoing {
		outMsg, err := model.NewMessage(out)
		if err != nil {
			return err
		}
		if err := h.outbox.Insert(ctx, tx, outMsg); err != nil {
			return fmt.Errorf("failed to record outgoing saga event: %w", err)
		}
	}
	return nil
}

// decode extracts the correlation id (and, for the trigger event, the
// enriched show data) from the payload.
func decode(msg *model.Message) (IncomingEvent, error) {
	evt := IncomingEvent{Type: msg.EventType}

	switch msg.EventType {
	case model.EventTypeShowCancellationRequested:
		var p model.ShowCancellationRequested
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return evt, fmt.Errorf("failed to decode %s payload: %w", msg.EventType, err)
		}
		evt.ShowID = p.ShowID
		evt.Name = p.Name
		evt.OrganizerEmail = p.OrganizerEmail
	case model.EventTypePaymentsRefunded:
		var p model.PaymentsRefunded
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return evt, fmt.Errorf("failed to decode %s payload: %w", msg.EventType, err)
		}
		evt.ShowID = p.ShowID
	case model.EventTypeTicketsArchived:
		var p model.TicketsArchived
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return evt, fmt.Errorf("failed to decode %s payload: %w", msg.EventType, err)
		}
		evt.ShowID = p.ShowID
	default:
		return evt, fmt.Errorf("saga received unexpected event type %s", msg.EventType)
	}
	return evt, nil
}
