// Package orders drives the purchase transaction: inventory locks, ticket
// issuance, and the payment charge commit or roll back as one unit.
package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/payments"
	"github.com/eventium/eventium/internal/repository"
	"github.com/eventium/eventium/internal/tickets"
	"github.com/eventium/eventium/pkg/metrics"
)

type PurchaseItem struct {
	PoolID   uuid.UUID
	Quantity int
}

type Service struct {
	repo      repository.OrderRepository
	inventory *tickets.Inventory
	tickets   *tickets.Service
	payments  *payments.Service
	capture   *mailbox.Capture
	metrics   *metrics.Metrics
}

func NewService(
	repo repository.OrderRepository,
	inventory *tickets.Inventory,
	ticketSvc *tickets.Service,
	paymentSvc *payments.Service,
	capture *mailbox.Capture,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		repo:      repo,
		inventory: inventory,
		tickets:   ticketSvc,
		payments:  paymentSvc,
		capture:   capture,
		metrics:   metrics,
	}
}

// PlacePurchase buys tickets from one or more pools of a show. Pool locks
// are acquired one item at a time and held until commit, so the duration of
// this transaction bounds throughput under contention for the same pool.
// Insufficient stock on any item aborts the whole purchase synchronously.
func (s *Service) PlacePurchase(ctx context.Context, showID uuid.UUID, buyerEmail string, items []PurchaseItem) (*model.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("purchase needs at least one item")
	}

	order := &model.Order{
		ID:         uuid.New(),
		ShowID:     showID,
		BuyerEmail: buyerEmail,
	}

	err := s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		var total int64
		for _, item := range items {
			pool, err := s.inventory.AcquireAndDecrement(ctx, tx, item.PoolID, item.Quantity)
			if err != nil {
				return err
			}

			line := model.OrderItem{
				OrderID:   order.ID,
				PoolID:    item.PoolID,
				Quantity:  item.Quantity,
				UnitPrice: pool.UnitPrice,
			}
			order.Items = append(order.Items, line)
			total += pool.UnitPrice * int64(item.Quantity)

			if err := s.tickets.IssueTickets(ctx, tx, order, line); err != nil {
				return err
			}
		}

		order.TotalAmount = total
		if err := s.payments.Charge(ctx, tx, order); err != nil {
			return err
		}

		order.Place()
		if err := s.repo.CreateTx(ctx, tx, order); err != nil {
			return err
		}
		return s.capture.Drain(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PurchasesCompleted.Inc()
	return order, nil
}
