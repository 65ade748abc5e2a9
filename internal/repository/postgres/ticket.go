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

type ticketRepository struct {
	BaseRepository
}

func NewTicketRepository(base BaseRepository) repository.TicketRepository {
	return &ticketRepository{base}
}

func (r *ticketRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, ticket *model.Ticket) error {
	query := `
		INSERT INTO tickets (id, pool_id, show_id, order_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	ticket.ID = uuid.New()
	ticket.Status = model.TicketStatusIssued
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		ticket.ID, ticket.PoolID, ticket.ShowID, ticket.OrderID,
		ticket.Status, ticket.CreatedAt, ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (r *ticketRepository) ArchiveByShow(ctx context.Context, tx *sqlx.Tx, showID uuid.UUID) (int64, error) {
	query := `
		UPDATE tickets
		SET status = $2, updated_at = NOW()
		WHERE show_id = $1 AND status = $3
	`
	res, err := tx.ExecContext(ctx, query, showID, model.TicketStatusArchived, model.TicketStatusIssued)
	if err != nil {
		return 0, fmt.Errorf("failed to archive tickets: %w", err)
	}
	return res.RowsAffected()
}
