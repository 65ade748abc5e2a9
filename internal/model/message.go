package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is a single mailbox row. Outbox and inbox rows share this shape,
// and the same struct doubles as the wire envelope published on the bus.
// A row with a nil ProcessedAt is pending; Error holds the latest failure
// reason for rows that stay pending after a failed dispatch.
type Message struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	EventType   string          `db:"event_type" json:"event_type"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	OccurredAt  time.Time       `db:"occurred_at" json:"occurred_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"-"`
	Error       *string         `db:"error" json:"-"`
}

// NewMessage builds a message from a domain event, serializing its payload.
func NewMessage(evt DomainEvent) (*Message, error) {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", evt.Type, err)
	}

	return &Message{
		ID:         uuid.New(),
		EventType:  evt.Type,
		Payload:    payload,
		OccurredAt: evt.OccurredAt,
	}, nil
}
