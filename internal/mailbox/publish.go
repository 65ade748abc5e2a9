package mailbox

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/pkg/messaging"

	"github.com/eventium/eventium/internal/model"
)

// PublishHandler is the outbox handler used when the integration event is the
// stored payload as-is: it forwards the message envelope to the bus on the
// channel named by its event type. The message id travels with the envelope,
// so subscribers can deduplicate redeliveries.
type PublishHandler struct {
	name   string
	broker messaging.Broker
}

func NewPublishHandler(name string, broker messaging.Broker) *PublishHandler {
	return &PublishHandler{name: name, broker: broker}
}

func (h *PublishHandler) Name() string { return h.name }

func (h *PublishHandler) Handle(ctx context.Context, _ *sqlx.Tx, msg *model.Message) error {
	return h.broker.Publish(ctx, msg.EventType, msg)
}
