package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a purchase of one or more ticket pools for a single show.
type Order struct {
	AggregateRoot `db:"-"`

	ID          uuid.UUID   `db:"id"`
	ShowID      uuid.UUID   `db:"show_id"`
	BuyerEmail  string      `db:"buyer_email"`
	TotalAmount int64       `db:"total_amount"`
	Status      OrderStatus `db:"status"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`

	Items []OrderItem `db:"-"`
}

// OrderItem is one pool/quantity line of an order.
type OrderItem struct {
	OrderID   uuid.UUID `db:"order_id"`
	PoolID    uuid.UUID `db:"pool_id"`
	Quantity  int       `db:"quantity"`
	UnitPrice int64     `db:"unit_price"`
}

// Place finalizes the order and raises its integration event.
func (o *Order) Place() {
	o.Status = OrderStatusPlaced
	o.Raise(EventTypeOrderPlaced, OrderPlaced{OrderID: o.ID, ShowID: o.ShowID})
}
