package model

import (
	"time"

	"github.com/google/uuid"
)

// TicketPool is the finite inventory for one ticket tier of a show.
// AvailableQuantity is only ever mutated under an exclusive row lock held by
// the purchase transaction.
type TicketPool struct {
	AggregateRoot `db:"-"`

	ID                uuid.UUID `db:"id"`
	ShowID            uuid.UUID `db:"show_id"`
	Name              string    `db:"name"`
	UnitPrice         int64     `db:"unit_price"`
	TotalQuantity     int       `db:"total_quantity"`
	AvailableQuantity int       `db:"available_quantity"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// Reserve decrements availability by qty. The caller must hold the row lock
// and have re-read the pool under it.
func (p *TicketPool) Reserve(qty int) error {
	if qty <= 0 {
		return ErrInsufficientStock
	}
	if p.AvailableQuantity < qty {
		return ErrInsufficientStock
	}

	p.AvailableQuantity -= qty
	if p.AvailableQuantity == 0 {
		p.Raise(EventTypeTicketPoolSoldOut, TicketPoolSoldOut{PoolID: p.ID, ShowID: p.ShowID})
	}
	return nil
}

type TicketStatus string

const (
	TicketStatusIssued   TicketStatus = "issued"
	TicketStatusArchived TicketStatus = "archived"
)

// Ticket is a single issued seat, owned by the tickets module.
type Ticket struct {
	ID        uuid.UUID    `db:"id"`
	PoolID    uuid.UUID    `db:"pool_id"`
	ShowID    uuid.UUID    `db:"show_id"`
	OrderID   uuid.UUID    `db:"order_id"`
	Status    TicketStatus `db:"status"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}
