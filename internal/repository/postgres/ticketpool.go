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

type ticketPoolRepository struct {
	BaseRepository
}

func NewTicketPoolRepository(base BaseRepository) repository.TicketPoolRepository {
	return &ticketPoolRepository{base}
}

func (r *ticketPoolRepository) Create(ctx context.Context, pool *model.TicketPool) error {
	query := `
		INSERT INTO ticket_pools (
			id, show_id, name, unit_price, total_quantity, available_quantity,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	pool.ID = uuid.New()
	pool.AvailableQuantity = pool.TotalQuantity
	pool.CreatedAt = time.Now()
	pool.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		pool.ID, pool.ShowID, pool.Name, pool.UnitPrice,
		pool.TotalQuantity, pool.AvailableQuantity,
		pool.CreatedAt, pool.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket pool: %w", err)
	}
	return nil
}

func (r *ticketPoolRepository) Get(ctx context.Context, id uuid.UUID) (*model.TicketPool, error) {
	query := `
		SELECT id, show_id, name, unit_price, total_quantity, available_quantity,
		       created_at, updated_at
		FROM ticket_pools
		WHERE id = $1
	`
	var pool model.TicketPool
	if err := r.db.GetContext(ctx, &pool, query, id); err != nil {
		return nil, fmt.Errorf("failed to get ticket pool: %w", err)
	}
	return &pool, nil
}

// GetForUpdate re-reads the pool under an exclusive row lock. The lock is
// held until the enclosing transaction commits or rolls back, serializing
// concurrent purchases of the same pool.
func (r *ticketPoolRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.TicketPool, error) {
	query := `
		SELECT id, show_id, name, unit_price, total_quantity, available_quantity,
		       created_at, updated_at
		FROM ticket_pools
		WHERE id = $1
		FOR UPDATE
	`
	var pool model.TicketPool
	if err := tx.GetContext(ctx, &pool, query, id); err != nil {
		return nil, fmt.Errorf("failed to lock ticket pool: %w", err)
	}
	return &pool, nil
}

func (r *ticketPoolRepository) DecrementAvailable(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, qty int) error {
	query := `
		UPDATE ticket_pools
		SET available_quantity = available_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND available_quantity >= $2
	`
	res, err := tx.ExecContext(ctx, query, id, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement ticket pool: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// The caller checks availability under the lock first, so this only
		// trips if that check was skipped.
		return model.ErrInsufficientStock
	}
	return nil
}
