package messaging

import (
	"context"
)

// Broker is the event bus between module outboxes and inboxes. Delivery is
// at-least-once; ordering is preserved only among messages published from a
// single dispatcher, never across publishers. Subscribers must not block the
// publisher.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
