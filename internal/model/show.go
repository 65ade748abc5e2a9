package model

import (
	"time"

	"github.com/google/uuid"
)

type ShowStatus string

const (
	ShowStatusScheduled  ShowStatus = "scheduled"
	ShowStatusCancelling ShowStatus = "cancelling"
	ShowStatusCancelled  ShowStatus = "cancelled"
)

// Show is the performance a pool of tickets is sold for.
type Show struct {
	AggregateRoot `db:"-"`

	ID             uuid.UUID  `db:"id"`
	Name           string     `db:"name"`
	OrganizerEmail string     `db:"organizer_email"`
	StartsAt       time.Time  `db:"starts_at"`
	Status         ShowStatus `db:"status"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// RequestCancellation moves the show into the cancelling state and raises the
// domain event that starts the cancellation workflow.
func (s *Show) RequestCancellation() error {
	if s.Status != ShowStatusScheduled {
		return ErrShowNotCancellable
	}

	s.Status = ShowStatusCancelling
	s.Raise(EventTypeShowCancellationRequested, ShowCancellationRequested{ShowID: s.ID})
	return nil
}

// FinishCancellation marks the show cancelled once the saga has completed.
func (s *Show) FinishCancellation() {
	s.Status = ShowStatusCancelled
}
