package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"voice-relay/internal/clients/openai"
	"voice-relay/internal/metrics"
	"voice-relay/internal/observability"
	"voice-relay/internal/voicecall/twilio"

	"golang.org/x/sync/errgroup"
)

var (
	ErrTransportDisconnected = errors.New("transport disconnected")
	ErrEventProcessing       = errors.New("event processing failed")
)

const markName = "responsePart"

// Telephony is the caller side of the relay.
type Telephony interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Upstream is the AI service side of the relay.
type Upstream interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	IsOpen() bool
	Close() error
}

// Hooks lets the owner of a call react to session lifecycle and conversation events.
// Hook methods run on the relay goroutines and should not block for long.
type Hooks interface {
	// OnStreamStart runs when the media stream announces itself. An error ends the relay.
	OnStreamStart(ctx context.Context, start twilio.StartPayload) error
	// OnConversationItem runs as items join the conversation, in conversation order.
	// inputAudio marks caller audio items whose transcript follows separately.
	OnConversationItem(ctx context.Context, itemID, role string, inputAudio bool)
	// OnUserTranscript delivers the transcript of a caller audio item. A failed
	// transcription is delivered as empty text.
	OnUserTranscript(ctx context.Context, itemID, text string)
	OnAssistantTranscript(ctx context.Context, itemID, text string)
}

type nopHooks struct{}

func (nopHooks) OnStreamStart(context.Context, twilio.StartPayload) error { return nil }
func (nopHooks) OnConversationItem(context.Context, string, string, bool) {}
func (nopHooks) OnUserTranscript(context.Context, string, string)         {}
func (nopHooks) OnAssistantTranscript(context.Context, string, string)    {}

// Stats counts what one relay moved between the two transports.
type Stats struct {
	ChunksToUpstream  int64
	ChunksToTelephony int64
	MarksSent         int64
	MarksAcked        int64
	Interruptions     int64
	Truncations       int64
	DroppedEvents     int64
	StartTime         time.Time
	EndTime           time.Time
}

// Relay pumps audio between a telephony media stream and an AI realtime session for one
// call, and handles barge-in when the caller talks over the assistant.
type Relay struct {
	telephony Telephony
	upstream  Upstream
	hooks     Hooks
	state     *State
	logger    *observability.Logger
	metrics   *metrics.Metrics

	stats Stats
	mu    sync.Mutex
}

func New(telephony Telephony, upstream Upstream, hooks Hooks, logger *observability.Logger, m *metrics.Metrics) *Relay {
	if hooks == nil {
		hooks = nopHooks{}
	}
	return &Relay{
		telephony: telephony,
		upstream:  upstream,
		hooks:     hooks,
		state:     NewState(),
		logger:    logger,
		metrics:   m,
	}
}

func (r *Relay) State() *State {
	return r.state
}

func (r *Relay) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Relay) count(update func(*Stats)) {
	r.mu.Lock()
	update(&r.stats)
	r.mu.Unlock()
}

// Run relays until either side ends the call. Disconnects are the normal way a call ends
// and are not returned as errors.
func (r *Relay) Run(ctx context.Context) error {
	r.count(func(s *Stats) { s.StartTime = time.Now() })

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	// A leg that fails cancels gctx through the group once its error is recorded. A leg that
	// ends cleanly has to stop the other one itself.
	g.Go(func() error {
		err := r.receiveFromTwilio(gctx)
		if err == nil {
			cancel()
		}
		return err
	})
	g.Go(func() error {
		err := r.sendToTwilio(gctx)
		if err == nil {
			cancel()
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		r.closeUpstream(ctx)
		_ = r.telephony.Close()
		return nil
	})

	err := g.Wait()
	r.count(func(s *Stats) { s.EndTime = time.Now() })

	stats := r.Stats()
	r.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "chunks_to_upstream", Value: stats.ChunksToUpstream},
		observability.Field{Key: "chunks_to_telephony", Value: stats.ChunksToTelephony},
		observability.Field{Key: "interruptions", Value: stats.Interruptions},
		observability.Field{Key: "duration_ms", Value: stats.EndTime.Sub(stats.StartTime).Milliseconds()},
	), "Relay finished")

	if errors.Is(err, ErrTransportDisconnected) {
		r.logger.InfoWithError(ctx, "Relay ended by disconnect", err)
		return nil
	}
	return err
}

// receiveFromTwilio consumes telephony events and forwards caller audio upstream.
func (r *Relay) receiveFromTwilio(ctx context.Context) error {
	for {
		data, err := r.telephony.ReadMessage()
		if err != nil {
			r.closeUpstream(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: telephony read: %w", ErrTransportDisconnected, err)
		}

		event, err := twilio.ParseMediaEvent(data)
		if err != nil {
			r.dropEvent(ctx, metrics.LegInbound, fmt.Errorf("%w: decode telephony event: %w", ErrEventProcessing, err))
			continue
		}

		switch event.Event {
		case twilio.EventStart:
			r.state.SetStreamSID(event.Start.StreamSid)
			startCtx := observability.WithFields(ctx,
				observability.Field{Key: "stream_sid", Value: event.Start.StreamSid},
				observability.Field{Key: "call_sid", Value: event.Start.CallSid},
			)
			r.logger.Info(startCtx, "Incoming stream has started")
			if err := r.hooks.OnStreamStart(startCtx, event.Start); err != nil {
				return err
			}

		case twilio.EventMedia:
			r.state.ObserveMedia(int64(event.Media.Timestamp))
			if !r.upstream.IsOpen() {
				continue
			}
			if err := r.upstream.WriteJSON(openai.NewAppendAudio(event.Media.Payload)); err != nil {
				r.logger.InfoWithError(ctx, "Dropping caller audio, upstream write failed", err)
				continue
			}
			r.metrics.ChunkRelayed(metrics.DirectionToUpstream)
			r.count(func(s *Stats) { s.ChunksToUpstream++ })

		case twilio.EventMark:
			if r.state.AckMark() {
				r.count(func(s *Stats) { s.MarksAcked++ })
			}

		case twilio.EventStop:
			r.logger.Info(observability.WithFields(ctx,
				observability.Field{Key: "call_sid", Value: event.Stop.CallSid},
			), "Media stream stopped")
			r.closeUpstream(ctx)
			return nil

		default:
			r.logger.Debug(observability.WithFields(ctx,
				observability.Field{Key: "event", Value: event.Event},
			), "Ignoring telephony event")
		}
	}
}

// sendToTwilio consumes AI service events, plays assistant audio to the caller and reacts
// to the caller starting to speak.
func (r *Relay) sendToTwilio(ctx context.Context) error {
	for {
		data, err := r.upstream.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: upstream read: %w", ErrTransportDisconnected, err)
		}

		event, err := openai.ParseServerEvent(data)
		if err != nil {
			r.dropEvent(ctx, metrics.LegOutbound, fmt.Errorf("%w: decode upstream event: %w", ErrEventProcessing, err))
			continue
		}

		if openai.DiagnosticEventTypes[event.Type] {
			r.logger.Info(observability.WithFields(ctx,
				observability.Field{Key: "event_type", Value: event.Type},
				observability.Field{Key: "event_id", Value: event.EventID},
			), "Received event")
		}

		switch event.Type {
		case openai.EventResponseAudioDelta:
			if event.Delta == "" {
				continue
			}
			if err := r.relayAudio(ctx, event); err != nil {
				if errors.Is(err, ErrEventProcessing) {
					r.dropEvent(ctx, metrics.LegOutbound, err)
					continue
				}
				return err
			}

		case openai.EventSpeechStarted:
			if err := r.handleSpeechStarted(ctx); err != nil {
				return err
			}

		case openai.EventConversationItemCreated:
			if event.Item != nil {
				r.hooks.OnConversationItem(ctx, event.Item.ID, event.Item.Role, event.Item.HasInputAudio())
			}

		case openai.EventInputTranscriptionCompleted:
			r.hooks.OnUserTranscript(ctx, event.ItemID, event.Transcript)

		case openai.EventInputTranscriptionFailed:
			var transcriptionErr error = errors.New("unspecified error")
			if event.Error != nil {
				transcriptionErr = event.Error
			}
			r.logger.InfoWithError(observability.WithFields(ctx,
				observability.Field{Key: "item_id", Value: event.ItemID},
			), "Caller audio could not be transcribed", transcriptionErr)
			r.hooks.OnUserTranscript(ctx, event.ItemID, "")

		case openai.EventResponseAudioTranscriptDone:
			r.hooks.OnAssistantTranscript(ctx, event.ItemID, event.Transcript)

		case openai.EventError:
			var serviceErr error = errors.New("unspecified error")
			if event.Error != nil {
				serviceErr = event.Error
			}
			r.logger.Error(ctx, "AI service reported an error", serviceErr)
		}
	}
}

// relayAudio plays one assistant audio delta and marks its position in the playback
// queue.
func (r *Relay) relayAudio(ctx context.Context, event openai.ServerEvent) error {
	audio, err := base64.StdEncoding.DecodeString(event.Delta)
	if err != nil {
		return fmt.Errorf("%w: invalid audio delta: %w", ErrEventProcessing, err)
	}

	streamSID := r.state.StreamSID()
	media := twilio.NewMediaMessage(streamSID, base64.StdEncoding.EncodeToString(audio))
	if err := r.telephony.WriteJSON(media); err != nil {
		return fmt.Errorf("%w: telephony write: %w", ErrTransportDisconnected, err)
	}
	r.metrics.ChunkRelayed(metrics.DirectionToTelephony)
	r.count(func(s *Stats) { s.ChunksToTelephony++ })

	r.state.BeginChunk(event.ItemID)
	return r.sendMark(ctx, streamSID)
}

func (r *Relay) sendMark(ctx context.Context, streamSID string) error {
	if streamSID == "" {
		return nil
	}
	if err := r.telephony.WriteJSON(twilio.NewMarkMessage(streamSID, markName)); err != nil {
		return fmt.Errorf("%w: telephony write: %w", ErrTransportDisconnected, err)
	}
	r.state.PushMark(markName)
	r.count(func(s *Stats) { s.MarksSent++ })
	return nil
}

// handleSpeechStarted cuts the assistant off when the caller talks over it: the unheard
// part of the current item is truncated upstream and buffered playback is cleared.
func (r *Relay) handleSpeechStarted(ctx context.Context) error {
	in, ok := r.state.Interrupt()
	if !ok {
		return nil
	}

	r.metrics.Interrupted(in.Truncate)
	r.count(func(s *Stats) {
		s.Interruptions++
		if in.Truncate {
			s.Truncations++
		}
	})

	if in.Truncate {
		truncCtx := observability.WithFields(ctx,
			observability.Field{Key: "item_id", Value: in.ItemID},
			observability.Field{Key: "audio_end_ms", Value: in.AudioEndMs},
		)
		r.logger.Info(truncCtx, "Truncating interrupted assistant item")
		if r.upstream.IsOpen() {
			if err := r.upstream.WriteJSON(openai.NewTruncate(in.ItemID, in.AudioEndMs)); err != nil {
				r.logger.Error(truncCtx, "Failed to send truncate", err)
			}
		}
	}

	if err := r.telephony.WriteJSON(twilio.NewClearMessage(in.StreamSID)); err != nil {
		return fmt.Errorf("%w: telephony write: %w", ErrTransportDisconnected, err)
	}
	return nil
}

func (r *Relay) closeUpstream(ctx context.Context) {
	if !r.upstream.IsOpen() {
		return
	}
	if err := r.upstream.Close(); err != nil {
		r.logger.InfoWithError(ctx, "Error closing upstream session", err)
	}
}

func (r *Relay) dropEvent(ctx context.Context, leg string, err error) {
	r.metrics.EventError(leg)
	r.count(func(s *Stats) { s.DroppedEvents++ })
	r.logger.Error(observability.WithFields(ctx,
		observability.Field{Key: "leg", Value: leg},
	), "Dropping event", err)
}
