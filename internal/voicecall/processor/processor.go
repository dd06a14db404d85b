package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"time"

	"voice-relay/internal/metrics"
	"voice-relay/internal/observability"
	"voice-relay/internal/store"
	"voice-relay/internal/voicecall/callsession"
	"voice-relay/internal/voicecall/relay"
	"voice-relay/internal/voicecall/streamtoken"
)

// UpstreamDialer opens a configured AI realtime session for one call.
type UpstreamDialer interface {
	Dial(ctx context.Context) (relay.Upstream, error)
}

// CallTerminator hangs up a live call at the telephony provider.
type CallTerminator interface {
	EndCall(ctx context.Context, callSID string) error
}

// ConversationLog receives the append-only call logs.
type ConversationLog interface {
	LogMessage(ctx context.Context, entry store.MessageEntry) error
	SaveTranscript(ctx context.Context, entry store.TranscriptEntry) error
}

// CallHistory reads back what ConversationLog stored.
type CallHistory interface {
	ListMessages(ctx context.Context, limit int) ([]store.MessageEntry, error)
	ListTranscripts(ctx context.Context, caller string, limit int) ([]store.TranscriptEntry, error)
}

// IntentClassifier decides whether a caller asked to hang up.
type IntentClassifier interface {
	WantsToEndCall(ctx context.Context, utterance string) bool
}

// StreamTokens issues and checks the token that binds a media stream to its call.
type StreamTokens interface {
	Issue(callSID, caller string) (string, error)
	Verify(token, callSID string) (streamtoken.Claims, error)
}

var (
	ErrInvalidCall        = errors.New("call SID is required")
	ErrStreamRejected     = errors.New("media stream rejected")
	ErrHistoryUnavailable = errors.New("call history storage is not configured")
	ErrCallNotFound       = errors.New("call not found")
)

const (
	defaultStartTimeout   = 5 * time.Second
	classificationTimeout = 10 * time.Second
)

// Dependencies are the collaborators of a VoiceCallProcessor. Classifier and History may be
// nil, which disables end-of-call detection and the history queries. Tokens is required:
// media streams that do not present a valid token are rejected.
type Dependencies struct {
	Upstream      UpstreamDialer
	Sessions      callsession.Registry
	Terminator    CallTerminator
	Conversations ConversationLog
	History       CallHistory
	Classifier    IntentClassifier
	Tokens        StreamTokens
	Metrics       *metrics.Metrics

	// TranscribesCaller is set when the AI service transcribes caller audio. Turns are then
	// held until the caller's words arrive.
	TranscribesCaller bool
	// StartTimeout bounds the wait for a media stream's start event. Defaults to 5s.
	StartTimeout time.Duration
}

type VoiceCallProcessor struct {
	upstream      UpstreamDialer
	sessions      callsession.Registry
	terminator    CallTerminator
	conversations ConversationLog
	history       CallHistory
	classifier    IntentClassifier
	tokens        StreamTokens
	metrics       *metrics.Metrics
	logger        *observability.Logger

	transcribesCaller bool
	startTimeout      time.Duration
}

func New(deps Dependencies, logger *observability.Logger) *VoiceCallProcessor {
	conversations := deps.Conversations
	if conversations == nil {
		conversations = NewLoggerConversationLog(logger)
	}
	startTimeout := deps.StartTimeout
	if startTimeout <= 0 {
		startTimeout = defaultStartTimeout
	}
	return &VoiceCallProcessor{
		upstream:      deps.Upstream,
		sessions:      deps.Sessions,
		terminator:    deps.Terminator,
		conversations: conversations,
		history:       deps.History,
		classifier:    deps.Classifier,
		tokens:        deps.Tokens,
		metrics:       deps.Metrics,
		logger:        logger,

		transcribesCaller: deps.TranscribesCaller,
		startTimeout:      startTimeout,
	}
}
