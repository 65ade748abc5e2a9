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

type orderRepository struct {
	BaseRepository
}

func NewOrderRepository(base BaseRepository) repository.OrderRepository {
	return &orderRepository{base}
}

func (r *orderRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, show_id, buyer_email, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		order.ID, order.ShowID, order.BuyerEmail, order.TotalAmount,
		order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, pool_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
	`
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			order.ID, item.PoolID, item.Quantity, item.UnitPrice,
		); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) CancelByShow(ctx context.Context, tx *sqlx.Tx, showID uuid.UUID) (int64, error) {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE show_id = $1 AND status = $3
	`
	res, err := tx.ExecContext(ctx, query, showID, model.OrderStatusCancelled, model.OrderStatusPlaced)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel orders: %w", err)
	}
	return res.RowsAffected()
}
