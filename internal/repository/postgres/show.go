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
	apperrors "github.com/eventium/eventium/pkg/errors"
)

type showRepository struct {
	BaseRepository
}

func NewShowRepository(base BaseRepository) repository.ShowRepository {
	return &showRepository{base}
}

func (r *showRepository) Create(ctx context.Context, show *model.Show) error {
	query := `
		INSERT INTO shows (id, name, organizer_email, starts_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	show.ID = uuid.New()
	show.Status = model.ShowStatusScheduled
	show.CreatedAt = time.Now()
	show.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		show.ID, show.Name, show.OrganizerEmail, show.StartsAt,
		show.Status, show.CreatedAt, show.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create show: %w", err)
	}
	return nil
}

func (r *showRepository) Get(ctx context.Context, id uuid.UUID) (*model.Show, error) {
	query := `
		SELECT id, name, organizer_email, starts_at, status, created_at, updated_at
		FROM shows
		WHERE id = $1
	`
	var show model.Show
	if err := r.db.GetContext(ctx, &show, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("show", err)
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	return &show, nil
}

func (r *showRepository) GetTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Show, error) {
	query := `
		SELECT id, name, organizer_email, starts_at, status, created_at, updated_at
		FROM shows
		WHERE id = $1
		FOR UPDATE
	`
	var show model.Show
	if err := tx.GetContext(ctx, &show, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("show", err)
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	return &show, nil
}

func (r *showRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, show *model.Show) error {
	query := `
		UPDATE shows SET status = $2, updated_at = NOW() WHERE id = $1
	`
	_, err := tx.ExecContext(ctx, query, show.ID, show.Status)
	if err != nil {
		return fmt.Errorf("failed to update show status: %w", err)
	}
	return nil
}
