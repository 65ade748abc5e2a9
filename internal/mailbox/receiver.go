package mailbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventium/eventium/pkg/logger"
	"github.com/eventium/eventium/pkg/messaging"

	"github.com/eventium/eventium/internal/model"
)

// Receiver is the transport-facing side of a module's inbox. For every event
// type the module consumes it subscribes on the bus and persists arriving
// envelopes into the inbox table. Receipt is acknowledged by persistence
// alone; handler execution happens later on the inbox dispatcher's schedule,
// so transport redelivery is decoupled from handler failures.
type Receiver struct {
	name   string
	broker messaging.Broker
	inbox  Store
	types  []string
	logger *logger.Logger
}

func NewReceiver(name string, broker messaging.Broker, inbox Store, types []string, logger *logger.Logger) *Receiver {
	return &Receiver{
		name:   name,
		broker: broker,
		inbox:  inbox,
		types:  types,
		logger: logger.WithFields(map[string]interface{}{"inbox": name}),
	}
}

// Start subscribes to every consumed event type and spawns one consuming
// goroutine per subscription. It returns after the subscriptions are
// established; the goroutines run until ctx is cancelled.
func (r *Receiver) Start(ctx context.Context) error {
	for _, eventType := range r.types {
		ch, err := r.broker.Subscribe(ctx, eventType)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
		}
		go r.consume(ctx, eventType, ch)
	}
	return nil
}

func (r *Receiver) consume(ctx context.Context, eventType string, ch <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			if err := r.persist(ctx, raw); err != nil {
				r.logger.Error(err, "failed to persist inbound message", "event_type", eventType)
			}
		}
	}
}

// persist writes the envelope into the inbox, ignoring redelivered
// duplicates by message id.
func (r *Receiver) persist(ctx context.Context, raw []byte) error {
	var msg model.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("failed to decode envelope: %w", err)
	}
	if msg.ID == uuid.Nil {
		return fmt.Errorf("envelope has no message id")
	}

	return r.inbox.InsertIfAbsent(ctx, &msg)
}
