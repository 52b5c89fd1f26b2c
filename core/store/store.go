// Package store persists one record per WhatsApp sender in the SQLite
// conversation database.
package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"refurbot/core/logger"
	"log/slog"
)

const component = "service.senders"

// Sender is one conversation record, keyed by the WhatsApp sender id.
type Sender struct {
	ID              string    `db:"id" json:"id"`
	LastMessage     string    `db:"last_message" json:"last_message"`
	LastService     *string   `db:"last_service" json:"last_service,omitempty"`
	LastInteraction time.Time `db:"last_interaction" json:"last_interaction"`
}

// SenderStore reads and writes sender records.
type SenderStore struct {
	db *sqlx.DB
}

// NewSenderStore wraps an open database handle.
func NewSenderStore(db *sqlx.DB) *SenderStore {
	return &SenderStore{db: db}
}

// RecordMessage upserts the sender record for one inbound message.
// The insert-or-update is a single statement so concurrent webhook
// deliveries for the same sender cannot lose the row to a
// check-then-write race.
func (s *SenderStore) RecordMessage(ctx context.Context, senderID, text string, now time.Time) error {
	const q = `
		INSERT INTO senders (id, last_message, last_interaction)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_message     = excluded.last_message,
			last_interaction = excluded.last_interaction`

	start := time.Now()
	_, err := s.db.ExecContext(ctx, q, senderID, text, now.UTC())
	if err != nil {
		logger.Error(ctx, component, "senders.record_message",
			slog.String("status", "fail"),
			slog.String("sender_id", senderID),
			slog.String("err", err.Error()),
		)
		return wrap("record message", err)
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, component, "senders.record_message",
			slog.String("status", "ok"),
			slog.String("sender_id", senderID),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return nil
}

// RecordService stores the last classified service for an existing sender.
// Calling it for a sender without a record is a contract violation and
// yields ErrUnknownSender wrapped in a StoreError.
func (s *SenderStore) RecordService(ctx context.Context, senderID, service string, now time.Time) error {
	const q = `
		UPDATE senders
		SET last_service = ?, last_interaction = ?
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q, service, now.UTC(), senderID)
	if err != nil {
		logger.Error(ctx, component, "senders.record_service",
			slog.String("status", "fail"),
			slog.String("sender_id", senderID),
			slog.String("service", service),
			slog.String("err", err.Error()),
		)
		return wrap("record service", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrap("record service", err)
	}
	if affected == 0 {
		logger.Warn(ctx, component, "senders.record_service",
			slog.String("status", "skip"),
			slog.String("sender_id", senderID),
			slog.String("service", service),
			slog.String("cause", "no record"),
		)
		return wrap("record service", ErrUnknownSender)
	}
	return nil
}

// ListAll returns every sender record, most recently active first.
// An empty store yields an empty slice, not an error.
func (s *SenderStore) ListAll(ctx context.Context) ([]Sender, error) {
	const q = `
		SELECT id, last_message, last_service, last_interaction
		FROM senders
		ORDER BY last_interaction DESC, id ASC`

	senders := make([]Sender, 0)
	if err := s.db.SelectContext(ctx, &senders, q); err != nil {
		logger.Error(ctx, component, "senders.list",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return nil, wrap("list", err)
	}
	return senders, nil
}
