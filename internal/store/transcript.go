package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TranscriptEntry is one conversational turn: what the caller said and how the assistant
// answered.
type TranscriptEntry struct {
	ID            uuid.UUID `db:"id" json:"id"`
	CallSID       string    `db:"call_sid" json:"call_sid,omitempty"`
	Caller        string    `db:"caller" json:"caller"`
	UserText      string    `db:"user_text" json:"user"`
	AssistantText string    `db:"assistant_text" json:"assistant"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

const sqlInsertTranscript = `
INSERT INTO call_transcripts (call_sid, caller, user_text, assistant_text)
VALUES ($1, $2, $3, $4)
RETURNING id, call_sid, caller, user_text, assistant_text, created_at`

// SaveTranscript appends one conversational turn.
func (s *Store) SaveTranscript(ctx context.Context, entry TranscriptEntry) (TranscriptEntry, error) {
	var stored TranscriptEntry
	err := s.db.GetContext(ctx, &stored, sqlInsertTranscript, entry.CallSID, entry.Caller, entry.UserText, entry.AssistantText)
	if err != nil {
		s.logger.Error(ctx, "failed to save transcript", err)
		return TranscriptEntry{}, fmt.Errorf("failed to save transcript: %w", err)
	}
	return stored, nil
}

const sqlListTranscriptsByCaller = `
SELECT id, call_sid, caller, user_text, assistant_text, created_at
FROM (
	SELECT id, call_sid, caller, user_text, assistant_text, created_at
	FROM call_transcripts
	WHERE caller = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2
) recent
ORDER BY created_at ASC, id ASC`

// ListTranscripts returns a caller's most recent turns, oldest first.
func (s *Store) ListTranscripts(ctx context.Context, caller string, limit int) ([]TranscriptEntry, error) {
	transcripts := []TranscriptEntry{}
	err := s.db.SelectContext(ctx, &transcripts, sqlListTranscriptsByCaller, caller, clampLimit(limit))
	if err != nil {
		s.logger.Error(ctx, "failed to list transcripts", err)
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	return transcripts, nil
}
