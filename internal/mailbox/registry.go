package mailbox

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/model"
)

// Handler processes one mailbox message. Implementations receive the guard's
// transaction and must perform all side effects through it so the consumer
// marker commits atomically with them.
type Handler interface {
	Name() string
	Handle(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error
}

func (h HandlerFunc) Name() string { return h.HandlerName }

func (h HandlerFunc) Handle(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	return h.Fn(ctx, tx, msg)
}

// Registry maps event types to their ordered handler lists. Registration
// happens once at startup; lookups are read-only afterwards.
type Registry struct {
	handlers map[string][]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]Handler)}
}

// Register appends handlers for an event type, preserving order.
func (r *Registry) Register(eventType string, hs ...Handler) {
	r.handlers[eventType] = append(r.handlers[eventType], hs...)
}

// Resolve returns the handlers registered for an event type, possibly none.
func (r *Registry) Resolve(eventType string) []Handler {
	return r.handlers[eventType]
}

// EventTypes lists every event type with at least one handler. The inbox
// receiver subscribes to exactly this set.
func (r *Registry) EventTypes() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
