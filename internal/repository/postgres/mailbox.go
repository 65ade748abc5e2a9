package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eventium/eventium/internal/mailbox"
	"github.com/eventium/eventium/internal/model"
)

// Mailbox direction, used to derive table names.
const (
	DirectionOutbox = "outbox"
	DirectionInbox  = "inbox"
)

// MailboxStore is the sqlx-backed implementation of mailbox.Store for one
// module's outbox or inbox. Each module owns its tables: the store for module
// "shows" and direction "outbox" reads and writes shows_outbox and
// shows_outbox_consumers, nothing else.
type MailboxStore struct {
	BaseRepository
	table       string
	markerTable string
}

func NewMailboxStore(base BaseRepository, module, direction string) *MailboxStore {
	table := fmt.Sprintf("%s_%s", module, direction)
	return &MailboxStore{
		BaseRepository: base,
		table:          table,
		markerTable:    table + "_consumers",
	}
}

var _ mailbox.Store = (*MailboxStore)(nil)

func (s *MailboxStore) Begin(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, nil)
}

func (s *MailboxStore) Commit(tx *sqlx.Tx) error {
	return tx.Commit()
}

func (s *MailboxStore) Rollback(tx *sqlx.Tx) error {
	return tx.Rollback()
}

func (s *MailboxStore) Insert(ctx context.Context, tx *sqlx.Tx, msg *model.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, event_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, s.table)

	_, err := tx.ExecContext(ctx, query, msg.ID, msg.EventType, msg.Payload, msg.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", s.table, err)
	}
	return nil
}

func (s *MailboxStore) InsertIfAbsent(ctx context.Context, msg *model.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, event_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, s.table)

	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.EventType, msg.Payload, msg.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", s.table, err)
	}
	return nil
}

func (s *MailboxStore) FetchPending(ctx context.Context, limit int) ([]*model.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, event_type, payload, occurred_at, processed_at, error
		FROM %s
		WHERE processed_at IS NULL
		ORDER BY occurred_at ASC
		LIMIT $1
	`, s.table)

	var msgs []*model.Message
	err := s.db.SelectContext(ctx, &msgs, query, limit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending from %s: %w", s.table, err)
	}
	return msgs, nil
}

func (s *MailboxStore) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`
		UPDATE %s SET processed_at = NOW(), error = NULL WHERE id = $1
	`, s.table)

	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

func (s *MailboxStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET error = $2 WHERE id = $1
	`, s.table)

	_, err := s.db.ExecContext(ctx, query, id, reason)
	return err
}

func (s *MailboxStore) HasMarker(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, handlerName string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s WHERE message_id = $1 AND handler_name = $2
		)
	`, s.markerTable)

	var exists bool
	if err := tx.QueryRowxContext(ctx, query, id, handlerName).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *MailboxStore) InsertMarker(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, handlerName string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (message_id, handler_name) VALUES ($1, $2)
	`, s.markerTable)

	_, err := tx.ExecContext(ctx, query, id, handlerName)
	return err
}
