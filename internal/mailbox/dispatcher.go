package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/pkg/logger"
	"github.com/eventium/eventium/pkg/metrics"
)

type DispatcherConfig struct {
	BatchSize      int
	PollInterval   time.Duration
	HandlerTimeout time.Duration
}

// Dispatcher polls one mailbox and runs the registered handlers for each
// pending message, oldest first. The same type serves both directions: an
// outbox dispatcher's handlers publish to the bus, an inbox dispatcher's
// handlers run local commands. A message is marked processed only when every
// resolved handler has succeeded; any failure leaves the row pending with its
// error recorded, to be retried on a later tick. There is no retry cap and no
// dead letter: a permanently failing handler blocks its row until an operator
// intervenes, which beats losing the message silently.
type Dispatcher struct {
	name     string
	store    Store
	registry *Registry
	guard    *Guard
	config   DispatcherConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(
	name string,
	store Store,
	registry *Registry,
	config DispatcherConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Dispatcher {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.HandlerTimeout <= 0 {
		panic("HandlerTimeout must be greater than 0")
	}

	return &Dispatcher{
		name:     name,
		store:    store,
		registry: registry,
		guard:    NewGuard(store),
		config:   config,
		logger:   logger.WithFields(map[string]interface{}{"mailbox": name}),
		metrics:  metrics,
	}
}

// Start runs the polling loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	d.logger.Info("starting mailbox dispatcher")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down mailbox dispatcher")
			return
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				d.logger.Error(err, "dispatch tick failed")
			}
		}
	}
}

// Tick processes one batch of pending messages in occurrence order.
func (d *Dispatcher) Tick(ctx context.Context) error {
	timer := prometheus.NewTimer(d.metrics.DispatchLatency.WithLabelValues(d.name))
	defer timer.ObserveDuration()

	msgs, err := d.store.FetchPending(ctx, d.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending messages: %w", err)
	}
	d.metrics.MailboxBacklog.WithLabelValues(d.name).Set(float64(len(msgs)))

	for _, msg := range msgs {
		d.dispatch(ctx, msg)
	}
	return nil
}

// dispatch runs every handler for one message and records the outcome on the
// row. Handlers that already completed are skipped by the guard, so a retried
// row only re-runs the handlers that failed.
func (d *Dispatcher) dispatch(ctx context.Context, msg *model.Message) {
	var lastErr error
	for _, h := range d.registry.Resolve(msg.EventType) {
		if err := d.execute(ctx, msg, h); err != nil {
			lastErr = fmt.Errorf("%s: %w", h.Name(), err)
			d.metrics.MessagesFailed.WithLabelValues(d.name, msg.EventType).Inc()
			d.logger.Error(err, "handler failed",
				"message_id", msg.ID.String(),
				"event_type", msg.EventType,
				"handler", h.Name())
		}
	}

	if lastErr != nil {
		if err := d.store.MarkFailed(ctx, msg.ID, lastErr.Error()); err != nil {
			d.logger.Error(err, "failed to record message failure", "message_id", msg.ID.String())
		}
		return
	}

	if err := d.store.MarkProcessed(ctx, msg.ID); err != nil {
		d.logger.Error(err, "failed to mark message processed", "message_id", msg.ID.String())
		return
	}
	d.metrics.MessagesDispatched.WithLabelValues(d.name, msg.EventType).Inc()
}

func (d *Dispatcher) execute(ctx context.Context, msg *model.Message, h Handler) error {
	hctx, cancel := context.WithTimeout(ctx, d.config.HandlerTimeout)
	defer cancel()
	return d.guard.Execute(hctx, msg, h)
}
