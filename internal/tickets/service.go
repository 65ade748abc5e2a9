package tickets

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
)

// Service issues tickets within the purchase transaction and owns pool
// administration.
type Service struct {
	pools   repository.TicketPoolRepository
	tickets repository.TicketRepository
}

func NewService(pools repository.TicketPoolRepository, tickets repository.TicketRepository) *Service {
	return &Service{pools: pools, tickets: tickets}
}

func (s *Service) CreatePool(ctx context.Context, pool *model.TicketPool) error {
	return s.pools.Create(ctx, pool)
}

// IssueTickets writes one ticket row per purchased seat inside the purchase
// transaction. The inventory controller has already decremented the pool
// under its lock by the time this runs.
func (s *Service) IssueTickets(ctx context.Context, tx *sqlx.Tx, order *model.Order, item model.OrderItem) error {
	for n := 0; n < item.Quantity; n++ {
		ticket := &model.Ticket{
			PoolID:  item.PoolID,
			ShowID:  order.ShowID,
			OrderID: order.ID,
		}
		if err := s.tickets.CreateTx(ctx, tx, ticket); err != nil {
			return err
		}
	}
	return nil
}
