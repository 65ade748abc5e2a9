package model

import "github.com/google/uuid"

// Integration event types carried through the mailbox pipeline. Each module
// subscribes to the types it consumes; ordering is FIFO per mailbox only.
const (
	EventTypeShowCancellationRequested = "show.cancellation_requested"
	EventTypeShowCancellationStarted   = "show.cancellation_started"
	EventTypeShowCancellationCompleted = "show.cancellation_completed"
	EventTypePaymentsRefunded          = "payments.refunded"
	EventTypeTicketsArchived           = "tickets.archived"
	EventTypeTicketPoolSoldOut         = "tickets.pool_sold_out"
	EventTypeOrderPlaced               = "order.placed"
)

// ShowCancellationRequested is raised by the Show aggregate with only the
// show id set. The shows outbox handler fills the remaining fields from the
// read side before publishing.
type ShowCancellationRequested struct {
	ShowID         uuid.UUID `json:"show_id"`
	Name           string    `json:"name,omitempty"`
	OrganizerEmail string    `json:"organizer_email,omitempty"`
}

// ShowCancellationStarted fans out to every module that must clean up after
// a cancelled show.
type ShowCancellationStarted struct {
	ShowID         uuid.UUID `json:"show_id"`
	Name           string    `json:"name"`
	OrganizerEmail string    `json:"organizer_email"`
}

// ShowCancellationCompleted is emitted once payments and tickets have both
// confirmed their cleanup.
type ShowCancellationCompleted struct {
	ShowID uuid.UUID `json:"show_id"`
}

type PaymentsRefunded struct {
	ShowID   uuid.UUID `json:"show_id"`
	Refunded int       `json:"refunded"`
}

type TicketsArchived struct {
	ShowID   uuid.UUID `json:"show_id"`
	Archived int       `json:"archived"`
}

type TicketPoolSoldOut struct {
	PoolID uuid.UUID `json:"pool_id"`
	ShowID uuid.UUID `json:"show_id"`
}

type OrderPlaced struct {
	OrderID uuid.UUID `json:"order_id"`
	ShowID  uuid.UUID `json:"show_id"`
}
