package shows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/model"
	"github.com/eventium/eventium/internal/repository"
)

// Service owns the Show aggregate. Cancellation here only records intent:
// the status flips to cancelling and the domain event lands in the shows
// outbox inside the same transaction. Everything downstream happens through
// the mailbox pipeline.
type Service struct {
	repo    repository.ShowRepository
	capture *mailbox.Capture
}

func NewService(repo repository.ShowRepository, capture *mailbox.Capture) *Service {
	return &Service{repo: repo, capture: capture}
}

func (s *Service) CreateShow(ctx context.Context, show *model.Show) error {
	if err := s.repo.Create(ctx, show); err != nil {
		return fmt.Errorf("failed to create show: %w", err)
	}
	return nil
}

func (s *Service) GetShow(ctx context.Context, id uuid.UUID) (*model.Show, error) {
	return s.repo.Get(ctx, id)
}

// RequestCancellation starts the cancellation workflow. If the transaction
// rolls back, the outbox row rolls back with it and no workflow ever starts.
func (s *Service) RequestCancellation(ctx context.Context, showID uuid.UUID) error {
	return s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		show, err := s.repo.GetTx(ctx, tx, showID)
		if err != nil {
			return err
		}
		if err := show.RequestCancellation(); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, tx, show); err != nil {
			return err
		}
		return s.capture.Drain(ctx, tx, show)
	})
}
