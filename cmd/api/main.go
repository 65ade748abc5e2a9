package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	_ "github.com/lib/pq"

	"github.com/eventium/eventium/internal/config"
	healthHandler "github.com/eventium/eventium/internal/handler/health"
	orderHandler "github.com/eventium/eventium/internal/handler/orders"
	showHandler "github.com/eventium/eventium/internal/handler/shows"
	ticketHandler "github.com/eventium/eventium/internal/handler/tickets"
	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/orders"
	"github.com/eventium/eventium/internal/payments"
	"github.com/eventium/eventium/internal/repository/postgres"
	"github.com/eventium/eventium/internal/router"
	"github.com/eventium/eventium/internal/shows"
	"github.com/eventium/eventium/internal/tickets"
	"github.com/eventium/eventium/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.New("eventium")

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	showRepo := postgres.NewShowRepository(baseRepo)
	poolRepo := postgres.NewTicketPoolRepository(baseRepo)
	ticketRepo := postgres.NewTicketRepository(baseRepo)
	paymentRepo := postgres.NewPaymentRepository(baseRepo)
	orderRepo := postgres.NewOrderRepository(baseRepo)

	// Outboxes the API writes to inside its business transactions. Draining
	// them is the worker's job.
	showsOutbox := postgres.NewMailboxStore(baseRepo, "shows", postgres.DirectionOutbox)
	ticketsOutbox := postgres.NewMailboxStore(baseRepo, "tickets", postgres.DirectionOutbox)
	ordersOutbox := postgres.NewMailboxStore(baseRepo, "orders", postgres.DirectionOutbox)

	// Services
	showSvc := shows.NewService(showRepo, mailbox.NewCapture(showsOutbox))
	ticketSvc := tickets.NewService(poolRepo, ticketRepo)
	inventory := tickets.NewInventory(poolRepo, mailbox.NewCapture(ticketsOutbox), m)
	paymentSvc := payments.NewService(paymentRepo)
	orderSvc := orders.NewService(orderRepo, inventory, ticketSvc, paymentSvc,
		mailbox.NewCapture(ordersOutbox), m)

	// Router
	r := router.NewRouter(
		healthHandler.NewHandler(db),
		showHandler.NewHandler(showSvc),
		ticketHandler.NewHandler(ticketSvc),
		orderHandler.NewHandler(orderSvc),
		router.RouterConfig{
			RateLimit:     rate.Limit(50),
			RateBurst:     100,
			MetricsPrefix: "eventium_http",
		},
	)
	r.Setup()

	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down API server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
