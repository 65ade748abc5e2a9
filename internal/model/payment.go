package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusCaptured PaymentStatus = "captured"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Payment is a captured charge for an order, owned by the payments module.
type Payment struct {
	ID        uuid.UUID     `db:"id"`
	OrderID   uuid.UUID     `db:"order_id"`
	ShowID    uuid.UUID     `db:"show_id"`
	Amount    int64         `db:"amount"`
	Status    PaymentStatus `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}
