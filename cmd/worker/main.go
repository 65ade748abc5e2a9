package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"

	"github.com/eventium/eventium/internal/config"
	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/orders"
	"github.com/eventium/eventium/internal/payments"
	"github.com/eventium/eventium/internal/repository/postgres"
	"github.com/eventium/eventium/internal/saga"
	"github.com/eventium/eventium/internal/shows"
	"github.com/eventium/eventium/internal/tickets"
	"github.com/eventium/eventium/pkg/email"
	"github.com/eventium/eventium/pkg/logger"
	redisbroker "github.com/eventium/eventium/pkg/messaging/redis"
	"github.com/eventium/eventium/pkg/metrics"
)

// overrides lets deployments tune dispatcher behavior per worker instance
// without a config file change.
type overrides struct {
	BatchSize    int           `envconfig:"DISPATCHER_BATCH_SIZE"`
	PollInterval time.Duration `envconfig:"DISPATCHER_POLL_INTERVAL"`
}

func setupHealthCheck(lg *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			lg.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env overrides
	if err := envconfig.Process("eventium", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to read environment overrides")
	}
	if env.BatchSize > 0 {
		cfg.Dispatcher.BatchSize = env.BatchSize
	}
	if env.PollInterval > 0 {
		cfg.Dispatcher.PollInterval = env.PollInterval
	}

	lg := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.New("eventium")

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	showRepo := postgres.NewShowRepository(baseRepo)
	ticketRepo := postgres.NewTicketRepository(baseRepo)
	paymentRepo := postgres.NewPaymentRepository(baseRepo)
	orderRepo := postgres.NewOrderRepository(baseRepo)
	sagaRepo := postgres.NewSagaRepository(baseRepo)

	// One outbox and one inbox per module, each with its own consumer
	// marker table.
	showsOutbox := postgres.NewMailboxStore(baseRepo, "shows", postgres.DirectionOutbox)
	showsInbox := postgres.NewMailboxStore(baseRepo, "shows", postgres.DirectionInbox)
	ticketsOutbox := postgres.NewMailboxStore(baseRepo, "tickets", postgres.DirectionOutbox)
	ticketsInbox := postgres.NewMailboxStore(baseRepo, "tickets", postgres.DirectionInbox)
	paymentsOutbox := postgres.NewMailboxStore(baseRepo, "payments", postgres.DirectionOutbox)
	paymentsInbox := postgres.NewMailboxStore(baseRepo, "payments", postgres.DirectionInbox)
	ordersOutbox := postgres.NewMailboxStore(baseRepo, "orders", postgres.DirectionOutbox)
	ordersInbox := postgres.NewMailboxStore(baseRepo, "orders", postgres.DirectionInbox)
	sagaOutbox := postgres.NewMailboxStore(baseRepo, "saga", postgres.DirectionOutbox)
	sagaInbox := postgres.NewMailboxStore(baseRepo, "saga", postgres.DirectionInbox)

	showQuery := shows.NewQueryService(showRepo)
	sender := email.NewSMTPSender(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	// Outbox registries: pending rows become bus publications.
	showsOutReg := mailbox.NewRegistry()
	showsOutReg.Register(model.EventTypeShowCancellationRequested,
		shows.NewCancellationPublisher(showQuery, broker))

	ticketsOutReg := mailbox.NewRegistry()
	ticketsOutReg.Register(model.EventTypeTicketsArchived,
		mailbox.NewPublishHandler("tickets-publisher", broker))
	ticketsOutReg.Register(model.EventTypeTicketPoolSoldOut,
		mailbox.NewPublishHandler("tickets-publisher", broker))

	paymentsOutReg := mailbox.NewRegistry()
	paymentsOutReg.Register(model.EventTypePaymentsRefunded,
		mailbox.NewPublishHandler("payments-publisher", broker))

	ordersOutReg := mailbox.NewRegistry()
	ordersOutReg.Register(model.EventTypeOrderPlaced,
		mailbox.NewPublishHandler("orders-publisher", broker))

	sagaOutReg := mailbox.NewRegistry()
	sagaOutReg.Register(model.EventTypeShowCancellationStarted,
		mailbox.NewPublishHandler("saga-publisher", broker))
	sagaOutReg.Register(model.EventTypeShowCancellationCompleted,
		mailbox.NewPublishHandler("saga-publisher", broker))

	// Inbox registries: persisted envelopes become local commands.
	sagaHandler := saga.NewHandler(sagaRepo, sagaOutbox, lg, m)
	sagaInReg := mailbox.NewRegistry()
	sagaInReg.Register(model.EventTypeShowCancellationRequested, sagaHandler)
	sagaInReg.Register(model.EventTypePaymentsRefunded, sagaHandler)
	sagaInReg.Register(model.EventTypeTicketsArchived, sagaHandler)

	ticketsInReg := mailbox.NewRegistry()
	ticketsInReg.Register(model.EventTypeShowCancellationStarted,
		tickets.NewArchiver(ticketRepo, ticketsOutbox, lg))

	paymentsInReg := mailbox.NewRegistry()
	paymentsInReg.Register(model.EventTypeShowCancellationStarted,
		payments.NewRefunder(paymentRepo, paymentsOutbox, lg))

	ordersInReg := mailbox.NewRegistry()
	ordersInReg.Register(model.EventTypeShowCancellationCompleted,
		orders.NewCanceller(orderRepo, lg))

	showsInReg := mailbox.NewRegistry()
	showsInReg.Register(model.EventTypeShowCancellationCompleted,
		shows.NewCancellationFinisher(showRepo, showQuery),
		shows.NewOrganizerNotifier(showQuery, sender, lg))

	setupHealthCheck(lg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		lg.Info("shutting down worker")
		cancel()
	}()

	// Receivers persist bus traffic into the inboxes; each subscribes to
	// exactly the types its registry handles.
	receivers := []*mailbox.Receiver{
		mailbox.NewReceiver("saga", broker, sagaInbox, sagaInReg.EventTypes(), lg),
		mailbox.NewReceiver("tickets", broker, ticketsInbox, ticketsInReg.EventTypes(), lg),
		mailbox.NewReceiver("payments", broker, paymentsInbox, paymentsInReg.EventTypes(), lg),
		mailbox.NewReceiver("orders", broker, ordersInbox, ordersInReg.EventTypes(), lg),
		mailbox.NewReceiver("shows", broker, showsInbox, showsInReg.EventTypes(), lg),
	}
	for _, r := range receivers {
		if err := r.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start receiver")
		}
	}

	dispatchers := []*mailbox.Dispatcher{
		mailbox.NewDispatcher("shows-outbox", showsOutbox, showsOutReg, mailboxConfig(cfg), lg, m),
		mailbox.NewDispatcher("tickets-outbox", ticketsOutbox, ticketsOutReg, mailboxConfig(cfg), lg, m),
		mailbox.NewDispatcher("payments-outbox", paymentsOutbox, paymentsOutReg, mailboxConfig(cfg), lg, m),
		mailbox.NewDispatcher("orders-outbox", ordersOutbox, ordersOutReg, mailboxConfig(cfg), lg, m),
		mailbox.NewDispatcher("saga-outbox", sagaOutbox, sagaOutReg, mailboxConfig(cfg), lg, m),
		mailbox.NewDispatcher("shows-inbox", showsInbox, showsInReg, mailboxConfig(cfg), lg, m),
		mailbox.NewDispatcher("tickets-inbox", ticketsInbox, ticketsInReg, mailboxConfig(cfg), lg, m),
		mailbox.NewDispatcher("payments-inbox", paymentsInbox, paymentsInReg, mailboxConfig(cfg), lg, m),
		mailbox.NewDispatcher("orders-inbox", ordersInbox, ordersInReg, mailboxConfig(cfg), lg, m),
		mailbox.NewDispatcher("saga-inbox", sagaInbox, sagaInReg, mailboxConfig(cfg), lg, m),
	}
	for _, d := range dispatchers {
		go d.Start(ctx)
	}

	monitor := saga.NewMonitor(sagaRepo, cfg.Saga.MonitorInterval, lg, m)
	monitor.Start(ctx)
}

func mailboxConfig(cfg *config.Config) mailbox.DispatcherConfig {
	return mailbox.DispatcherConfig{
		BatchSize:      cfg.Dispatcher.BatchSize,
		PollInterval:   cfg.Dispatcher.PollInterval,
		HandlerTimeout: cfg.Dispatcher.HandlerTimeout,
	}
}
