package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// MessageEntry is one free-form log line about a call, such as "Incoming call started".
type MessageEntry struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	CallSID   string         `db:"call_sid" json:"call_sid,omitempty"`
	Caller    string         `db:"caller" json:"caller"`
	Message   string         `db:"message" json:"message"`
	Extra     types.JSONText `db:"extra" json:"extra,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

const sqlInsertMessage = `
INSERT INTO call_messages (call_sid, caller, message, extra)
VALUES ($1, $2, $3, $4)
RETURNING id, call_sid, caller, message, extra, created_at`

// LogMessage appends a message entry and returns it as stored.
func (s *Store) LogMessage(ctx context.Context, entry MessageEntry) (MessageEntry, error) {
	extra := entry.Extra
	if len(extra) == 0 {
		extra = types.JSONText("{}")
	}

	var stored MessageEntry
	err := s.db.GetContext(ctx, &stored, sqlInsertMessage, entry.CallSID, entry.Caller, entry.Message, extra)
	if err != nil {
		s.logger.Error(ctx, "failed to log message", err)
		return MessageEntry{}, fmt.Errorf("failed to log message: %w", err)
	}
	return stored, nil
}

const sqlListMessages = `
SELECT id, call_sid, caller, message, extra, created_at
FROM call_messages
ORDER BY created_at DESC, id
LIMIT $1`

// ListMessages returns the newest message entries first.
func (s *Store) ListMessages(ctx context.Context, limit int) ([]MessageEntry, error) {
	messages := []MessageEntry{}
	err := s.db.SelectContext(ctx, &messages, sqlListMessages, clampLimit(limit))
	if err != nil {
		s.logger.Error(ctx, "failed to list messages", err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
