package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voice-relay/internal/observability"
	"voice-relay/internal/store"
	"voice-relay/internal/voicecall/callsession"
)

// StartCall registers a new inbound call and returns the token the media stream must
// present when it connects.
func (p *VoiceCallProcessor) StartCall(ctx context.Context, callSID, caller string) (string, error) {
	if callSID == "" {
		return "", ErrInvalidCall
	}
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: callSID},
		observability.Field{Key: "caller", Value: caller},
	)

	err := p.sessions.Register(ctx, callsession.Session{
		CallSID:   callSID,
		Caller:    caller,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error(ctx, "failed to register call session", err)
		return "", fmt.Errorf("failed to register call: %w", err)
	}

	token, err := p.tokens.Issue(callSID, caller)
	if err != nil {
		p.logger.Error(ctx, "failed to issue stream token", err)
		_ = p.sessions.Remove(ctx, callSID)
		return "", err
	}

	p.logMessage(ctx, callSID, caller, "Incoming call started", map[string]any{"call_sid": callSID})
	p.logger.Info(ctx, "Incoming call started")
	return token, nil
}

// EndCall asks the telephony provider to hang up callSID.
func (p *VoiceCallProcessor) EndCall(ctx context.Context, callSID string) error {
	if callSID == "" {
		return ErrInvalidCall
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: callSID})

	if err := p.terminator.EndCall(ctx, callSID); err != nil {
		p.metrics.CallTerminated("failure")
		return err
	}
	p.metrics.CallTerminated("success")

	caller := ""
	if session, err := p.sessions.Get(ctx, callSID); err == nil {
		caller = session.Caller
	}
	p.logMessage(ctx, callSID, caller, "Call ended", nil)
	return nil
}

// GetCall returns the live session for callSID.
func (p *VoiceCallProcessor) GetCall(ctx context.Context, callSID string) (callsession.Session, error) {
	session, err := p.sessions.Get(ctx, callSID)
	if errors.Is(err, callsession.ErrSessionNotFound) {
		return callsession.Session{}, ErrCallNotFound
	}
	return session, err
}

// ListCalls returns the calls currently being served.
func (p *VoiceCallProcessor) ListCalls(ctx context.Context) ([]callsession.Session, error) {
	sessions, err := p.sessions.List(ctx)
	if err != nil {
		p.logger.Error(ctx, "failed to list call sessions", err)
		return nil, err
	}
	return sessions, nil
}

func (p *VoiceCallProcessor) ListMessages(ctx context.Context, limit int) ([]store.MessageEntry, error) {
	if p.history == nil {
		return nil, ErrHistoryUnavailable
	}
	return p.history.ListMessages(ctx, limit)
}

func (p *VoiceCallProcessor) ListTranscripts(ctx context.Context, caller string, limit int) ([]store.TranscriptEntry, error) {
	if p.history == nil {
		return nil, ErrHistoryUnavailable
	}
	return p.history.ListTranscripts(ctx, caller, limit)
}

// logMessage appends to the conversation log. Failures are logged and never fail the call.
func (p *VoiceCallProcessor) logMessage(ctx context.Context, callSID, caller, message string, extra map[string]any) {
	entry := store.MessageEntry{CallSID: callSID, Caller: caller, Message: message}
	if extra != nil {
		if raw, err := json.Marshal(extra); err == nil {
			entry.Extra = raw
		}
	}
	if err := p.conversations.LogMessage(ctx, entry); err != nil {
		p.logger.Error(ctx, "failed to log message", err)
	}
}
