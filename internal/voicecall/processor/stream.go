package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"voice-relay/internal/clients/openai"
	"voice-relay/internal/observability"
	"voice-relay/internal/store"
	"voice-relay/internal/voicecall/callsession"
	"voice-relay/internal/voicecall/relay"
	"voice-relay/internal/voicecall/streamtoken"
	"voice-relay/internal/voicecall/twilio"

	"github.com/google/uuid"
)

// HandleMediaStream serves one Twilio media stream from connect to hang-up. It owns the
// telephony transport and always closes it before returning. The AI service is only
// dialed once the stream has presented a valid token.
func (p *VoiceCallProcessor) HandleMediaStream(ctx context.Context, telephony relay.Telephony) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "session_id", Value: uuid.New().String()})
	p.logger.Info(ctx, "Client connected")

	p.metrics.CallStarted()
	defer p.metrics.CallEnded()

	start, err := p.awaitStart(telephony)
	if err != nil {
		p.logger.InfoWithError(ctx, "Media stream ended before it started", err)
		_ = telephony.Close()
		return err
	}

	call := newCallHooks(p)
	startCtx := observability.WithFields(ctx,
		observability.Field{Key: "stream_sid", Value: start.StreamSid},
		observability.Field{Key: "call_sid", Value: start.CallSid},
	)
	p.logger.Info(startCtx, "Incoming stream has started")
	if err := call.OnStreamStart(startCtx, start); err != nil {
		_ = telephony.Close()
		return err
	}

	upstream, err := p.upstream.Dial(ctx)
	if err != nil {
		p.logger.Error(call.withCall(ctx), "Unable to reach the AI service, closing media stream", err)
		call.finish(ctx)
		_ = telephony.Close()
		return err
	}

	r := relay.New(telephony, upstream, call, p.logger, p.metrics)
	r.State().SetStreamSID(start.StreamSid)
	runErr := r.Run(ctx)

	call.finish(ctx)
	_ = telephony.Close()

	if runErr != nil {
		p.logger.Error(ctx, "Media stream ended with error", runErr)
		return runErr
	}
	p.logger.Info(ctx, "Media stream ended")
	return nil
}

// awaitStart reads the stream until Twilio announces it. Connections that stay silent
// past the start timeout are closed.
func (p *VoiceCallProcessor) awaitStart(telephony relay.Telephony) (twilio.StartPayload, error) {
	timer := time.AfterFunc(p.startTimeout, func() { _ = telephony.Close() })
	defer timer.Stop()

	for {
		data, err := telephony.ReadMessage()
		if err != nil {
			return twilio.StartPayload{}, fmt.Errorf("%w: no start event: %w", ErrStreamRejected, err)
		}
		event, err := twilio.ParseMediaEvent(data)
		if err != nil || event.Event != twilio.EventStart {
			continue
		}
		if !timer.Stop() {
			return twilio.StartPayload{}, fmt.Errorf("%w: start event arrived after %s", ErrStreamRejected, p.startTimeout)
		}
		return event.Start, nil
	}
}

func (p *VoiceCallProcessor) removeSession(ctx context.Context, callSID string) {
	if callSID == "" {
		return
	}
	if err := p.sessions.Remove(ctx, callSID); err != nil {
		p.logger.Error(ctx, "failed to remove call session", err)
	}
}

// callHooks ties relay events for one media stream to its call session.
type callHooks struct {
	processor *VoiceCallProcessor

	mu      sync.Mutex
	session callsession.Session
	turns   *turnLog
	ending  bool

	classifying sync.WaitGroup
}

func newCallHooks(p *VoiceCallProcessor) *callHooks {
	return &callHooks{processor: p, turns: newTurnLog()}
}

func (h *callHooks) current() callsession.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

func (h *callHooks) withCall(ctx context.Context) context.Context {
	s := h.current()
	return observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: s.CallSID},
		observability.Field{Key: "stream_sid", Value: s.StreamSID},
	)
}

// OnStreamStart verifies the stream token and attaches the stream to its call session.
func (h *callHooks) OnStreamStart(ctx context.Context, start twilio.StartPayload) error {
	p := h.processor

	token := start.CustomParameters[streamtoken.ParameterName]
	if token == "" {
		p.logger.Info(ctx, "Rejecting media stream without a token")
		return fmt.Errorf("%w: %w", ErrStreamRejected, streamtoken.ErrMissingToken)
	}
	claims, err := p.tokens.Verify(token, start.CallSid)
	if err != nil {
		p.logger.Error(ctx, "Rejecting media stream with invalid token", err)
		return fmt.Errorf("%w: %w", ErrStreamRejected, err)
	}
	callSID, caller := claims.Subject, claims.Caller
	if callSID == "" {
		return fmt.Errorf("%w: token carries no call SID", ErrStreamRejected)
	}

	session, err := p.sessions.AttachStream(ctx, callSID, start.StreamSid)
	if errors.Is(err, callsession.ErrSessionNotFound) {
		session = callsession.Session{CallSID: callSID, Caller: caller, StreamSID: start.StreamSid, CreatedAt: time.Now().UTC()}
		err = p.sessions.Register(ctx, session)
	}
	if err != nil {
		p.logger.Error(ctx, "failed to attach media stream to call session", err)
		session = callsession.Session{CallSID: callSID, Caller: caller, StreamSID: start.StreamSid}
	}

	h.mu.Lock()
	h.session = session
	h.mu.Unlock()

	p.logMessage(ctx, session.CallSID, session.Caller, "Media stream started", map[string]any{"stream_sid": start.StreamSid})
	return nil
}

// OnConversationItem tracks caller and assistant items in conversation order so their
// transcripts can be paired however late they arrive.
func (h *callHooks) OnConversationItem(ctx context.Context, itemID, role string, inputAudio bool) {
	switch {
	case role == openai.RoleAssistant:
		h.mu.Lock()
		h.turns.add(itemID, role, false)
		h.mu.Unlock()
	case role == openai.RoleUser && inputAudio:
		h.mu.Lock()
		h.turns.add(itemID, role, !h.processor.transcribesCaller)
		h.mu.Unlock()
		h.recordReady(ctx)
	}
}

// OnUserTranscript fills in the caller's words for an item and checks whether the caller
// asked to hang up.
func (h *callHooks) OnUserTranscript(ctx context.Context, itemID, text string) {
	h.mu.Lock()
	h.turns.transcribe(itemID, openai.RoleUser, text)
	h.mu.Unlock()
	h.recordReady(ctx)

	text = strings.TrimSpace(text)
	if text == "" || h.processor.classifier == nil {
		return
	}
	h.classifying.Add(1)
	go func() {
		defer h.classifying.Done()
		h.classifyEndOfCall(h.withCall(context.WithoutCancel(ctx)), text)
	}()
}

// OnAssistantTranscript fills in the assistant's reply for an item.
func (h *callHooks) OnAssistantTranscript(ctx context.Context, itemID, text string) {
	h.mu.Lock()
	h.turns.transcribe(itemID, openai.RoleAssistant, text)
	h.mu.Unlock()
	h.recordReady(ctx)
}

func (h *callHooks) recordReady(ctx context.Context) {
	h.mu.Lock()
	turns := h.turns.ready()
	h.mu.Unlock()
	for _, t := range turns {
		h.record(ctx, t.user, t.assistant)
	}
}

func (h *callHooks) record(ctx context.Context, user, assistant string) {
	if user == "" && assistant == "" {
		return
	}
	p := h.processor
	s := h.current()
	entry := store.TranscriptEntry{
		CallSID:       s.CallSID,
		Caller:        s.Caller,
		UserText:      user,
		AssistantText: assistant,
	}
	if err := p.conversations.SaveTranscript(h.withCall(ctx), entry); err != nil {
		p.logger.Error(h.withCall(ctx), "failed to save transcript", err)
		return
	}
	p.metrics.TranscriptRecorded()
}

func (h *callHooks) classifyEndOfCall(ctx context.Context, utterance string) {
	p := h.processor
	classifyCtx, cancel := context.WithTimeout(ctx, classificationTimeout)
	defer cancel()

	if !p.classifier.WantsToEndCall(classifyCtx, utterance) {
		return
	}

	h.mu.Lock()
	callSID := h.session.CallSID
	alreadyEnding := h.ending
	h.ending = true
	h.mu.Unlock()
	if alreadyEnding || callSID == "" {
		return
	}

	p.logger.Info(ctx, "Caller asked to end the call")
	if err := p.EndCall(ctx, callSID); err != nil {
		p.logger.Error(ctx, "End-of-call termination failed", err)
	}
}

// finish records turns still waiting on a transcript, waits for in-flight classification
// and removes the call session.
func (h *callHooks) finish(ctx context.Context) {
	h.classifying.Wait()

	h.mu.Lock()
	turns := h.turns.drain()
	h.mu.Unlock()
	for _, t := range turns {
		h.record(ctx, t.user, t.assistant)
	}

	s := h.current()
	h.processor.removeSession(ctx, s.CallSID)
	if s.CallSID != "" {
		h.processor.logMessage(h.withCall(ctx), s.CallSID, s.Caller, "Media stream stopped", nil)
	}
}
