// Package payments owns captured charges and their refunds.
package payments

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
)

type Service struct {
	repo repository.PaymentRepository
}

func NewService(repo repository.PaymentRepository) *Service {
	return &Service{repo: repo}
}

// Charge captures a payment inside the purchase transaction. A failure here
// rolls back the whole purchase, releasing any inventory locks held by it.
func (s *Service) Charge(ctx context.Context, tx *sqlx.Tx, order *model.Order) error {
	payment := &model.Payment{
		OrderID: order.ID,
		ShowID:  order.ShowID,
		Amount:  order.TotalAmount,
	}
	return s.repo.CreateTx(ctx, tx, payment)
}
