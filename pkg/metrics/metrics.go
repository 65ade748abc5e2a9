package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Mailbox related metrics
	MessagesDispatched *prometheus.CounterVec
	MessagesFailed     *prometheus.CounterVec
	DispatchLatency    *prometheus.HistogramVec
	MailboxBacklog     *prometheus.GaugeVec

	// Saga metrics
	SagaTransitions *prometheus.CounterVec
	SagaOldestAge   prometheus.Gauge

	// Inventory metrics
	SoldOutPools       prometheus.Counter
	InsufficientStock  prometheus.Counter
	PurchasesCompleted prometheus.Counter
}

// New creates and registers all application metrics on the default registry.
func New(namespace string) *Metrics {
	return NewWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on a caller-supplied registry. Tests use this
// to avoid duplicate registration panics.
func NewWithRegisterer(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_messages_dispatched_total",
			Help:      "Total number of mailbox messages fully processed",
		}, []string{"mailbox", "event_type"}),
		MessagesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_handler_failures_total",
			Help:      "Total number of failed handler invocations",
		}, []string{"mailbox", "event_type"}),
		DispatchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mailbox_dispatch_duration_seconds",
			Help:      "Time spent per dispatch tick",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"mailbox"}),
		MailboxBacklog: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mailbox_backlog_size",
			Help:      "Pending messages seen by the latest dispatch tick",
		}, []string{"mailbox"}),

		SagaTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_transitions_total",
			Help:      "Total number of cancellation saga state transitions",
		}, []string{"to_state"}),
		SagaOldestAge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "saga_oldest_unfinished_age_seconds",
			Help:      "Age of the oldest saga instance not yet finalized; alerts on stalls",
		}),

		SoldOutPools: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_pools_sold_out_total",
			Help:      "Total number of ticket pools that reached zero availability",
		}),
		InsufficientStock: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_insufficient_stock_total",
			Help:      "Total number of purchases rejected for insufficient stock",
		}),
		PurchasesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_completed_total",
			Help:      "Total number of committed purchase transactions",
		}),
	}
}
