package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
)

type sagaRepository struct {
	BaseRepository
}

func NewSagaRepository(base BaseRepository) repository.SagaRepository {
	return &sagaRepository{base}
}

func (r *sagaRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, correlationID uuid.UUID) (*model.CancellationSaga, error) {
	query := `
		SELECT correlation_id, current_state, payments_refunded, tickets_archived,
		       version, created_at, updated_at
		FROM cancellation_sagas
		WHERE correlation_id = $1
		FOR UPDATE
	`
	var saga model.CancellationSaga
	err := tx.GetContext(ctx, &saga, query, correlationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saga instance: %w", err)
	}
	return &saga, nil
}

func (r *sagaRepository) Save(ctx context.Context, tx *sqlx.Tx, saga *model.CancellationSaga) error {
	query := `
		INSERT INTO cancellation_sagas (
			correlation_id, current_state, payments_refunded, tickets_archived,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (correlation_id) DO UPDATE SET
			current_state = EXCLUDED.current_state,
			payments_refunded = EXCLUDED.payments_refunded,
			tickets_archived = EXCLUDED.tickets_archived,
			version = cancellation_sagas.version + 1,
			updated_at = NOW()
	`
	_, err := tx.ExecContext(ctx, query,
		saga.CorrelationID, saga.CurrentState,
		saga.PaymentsRefunded, saga.TicketsArchived, saga.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save saga instance: %w", err)
	}
	return nil
}

func (r *sagaRepository) OldestUnfinishedAge(ctx context.Context) (time.Duration, error) {
	query := `
		SELECT COALESCE(MIN(created_at), NOW())
		FROM cancellation_sagas
		WHERE current_state != $1
	`
	var oldest time.Time
	if err := r.db.GetContext(ctx, &oldest, query, model.SagaStateFinalized); err != nil {
		return 0, fmt.Errorf("failed to query saga ages: %w", err)
	}
	return time.Since(oldest), nil
}
