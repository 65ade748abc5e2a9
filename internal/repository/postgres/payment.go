package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
)

type paymentRepository struct {
	BaseRepository
}

func NewPaymentRepository(base BaseRepository) repository.PaymentRepository {
	return &paymentRepository{base}
}

func (r *paymentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, payment *model.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, show_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	payment.ID = uuid.New()
	payment.Status = model.PaymentStatusCaptured
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		payment.ID, payment.OrderID, payment.ShowID, payment.Amount,
		payment.Status, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) RefundByShow(ctx context.Context, tx *sqlx.Tx, showID uuid.UUID) (int64, error) {
	query := `
		UPDATE payments
		SET status = $2, updated_at = NOW()
		WHERE show_id = $1 AND status = $3
	`
	res, err := tx.ExecContext(ctx, query, showID, model.PaymentStatusRefunded, model.PaymentStatusCaptured)
	if err != nil {
		return 0, fmt.Errorf("failed to refund payments: %w", err)
	}
	return res.RowsAffected()
}
