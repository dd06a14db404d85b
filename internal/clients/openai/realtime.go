package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"voice-relay/internal/metrics"
	"voice-relay/internal/observability"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
)

var (
	ErrConnectionFailed = errors.New("openai realtime connection failed")
	ErrMissingAPIKey    = errors.New("OpenAI API key is required")
)

const (
	maxConnectAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	closeGracePeriod   = time.Second
)

// Dialer opens websocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// SessionSettings is the configuration sent in the session.update handshake.
type SessionSettings struct {
	Voice              string
	Instructions       string
	Temperature        float64
	GreetingPrompt     string
	TranscriptsEnabled bool
}

// RealtimeConfig holds connection settings for the realtime endpoint.
type RealtimeConfig struct {
	APIKey    string
	URL       string // e.g. wss://api.openai.com/v1/realtime
	Model     string
	Session   SessionSettings
	Dialer    Dialer        // websocket.DefaultDialer when nil
	BaseDelay time.Duration // first retry delay, doubled on each further retry
}

// RealtimeConnector dials the realtime endpoint and performs the session handshake.
type RealtimeConnector struct {
	endpoint   string
	apiKey     string
	settings   SessionSettings
	dialer     Dialer
	newBackoff func() retry.Backoff
	logger     *observability.Logger
	metrics    *metrics.Metrics
}

func NewRealtimeConnector(cfg RealtimeConfig, logger *observability.Logger, m *metrics.Metrics) (*RealtimeConnector, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime URL %q: %w", cfg.URL, err)
	}
	if cfg.Model != "" {
		query := endpoint.Query()
		query.Set("model", cfg.Model)
		endpoint.RawQuery = query.Encode()
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	return &RealtimeConnector{
		endpoint: endpoint.String(),
		apiKey:   cfg.APIKey,
		settings: cfg.Session,
		dialer:   dialer,
		newBackoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxConnectAttempts-1, retry.NewExponential(baseDelay))
		},
		logger:  logger,
		metrics: m,
	}, nil
}

// Connect dials the realtime endpoint, retrying with exponential backoff, and configures
// the session. It returns ErrConnectionFailed once all attempts are exhausted.
func (c *RealtimeConnector) Connect(ctx context.Context) (*RealtimeSession, error) {
	var session *RealtimeSession
	attempts := 0

	err := retry.Do(ctx, c.newBackoff(), func(ctx context.Context) error {
		attempts++
		s, err := c.dialAndConfigure(ctx)
		if err != nil {
			c.metrics.UpstreamConnect("failure")
			c.logger.Error(observability.WithFields(ctx,
				observability.Field{Key: "attempt", Value: attempts},
			), "Failed to connect to OpenAI realtime endpoint", err)
			return retry.RetryableError(err)
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrConnectionFailed, attempts, err)
	}

	c.metrics.UpstreamConnect("success")
	c.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "attempts", Value: attempts},
	), "Connected to OpenAI realtime endpoint")
	return session, nil
}

func (c *RealtimeConnector) dialAndConfigure(ctx context.Context) (*RealtimeSession, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial realtime endpoint: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial realtime endpoint: %w", err)
	}

	session := newRealtimeSession(conn)
	if err := c.configure(ctx, session); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

// configure sends the session configuration followed by a synthetic user turn that makes
// the assistant open the conversation.
func (c *RealtimeConnector) configure(ctx context.Context, session *RealtimeSession) error {
	update := SessionUpdate{
		Type: EventSessionUpdate,
		Session: SessionConfig{
			TurnDetection:     TurnDetection{Type: TurnDetectionServer},
			InputAudioFormat:  AudioFormatG711Ulaw,
			OutputAudioFormat: AudioFormatG711Ulaw,
			Voice:             c.settings.Voice,
			Instructions:      c.settings.Instructions,
			Modalities:        []string{"text", "audio"},
			Temperature:       c.settings.Temperature,
		},
	}
	if c.settings.TranscriptsEnabled {
		update.Session.InputAudioTranscription = &InputAudioTranscription{Model: TranscriptionModel}
	}

	c.logger.Debug(observability.WithFields(ctx,
		observability.Field{Key: "voice", Value: c.settings.Voice},
		observability.Field{Key: "transcripts", Value: c.settings.TranscriptsEnabled},
	), "Sending session update")
	if err := session.WriteJSON(update); err != nil {
		return fmt.Errorf("send session update: %w", err)
	}

	if err := session.WriteJSON(newUserTextItem(c.settings.GreetingPrompt)); err != nil {
		return fmt.Errorf("send initial conversation item: %w", err)
	}
	if err := session.WriteJSON(ResponseCreate{Type: EventResponseCreate}); err != nil {
		return fmt.Errorf("send response create: %w", err)
	}
	return nil
}

// RealtimeSession is one open realtime websocket. Reads happen on a single goroutine;
// writes may come from any goroutine and are serialized.
type RealtimeSession struct {
	conn       *websocket.Conn
	writeMutex sync.Mutex
	open       atomic.Bool
	closeOnce  sync.Once
}

func newRealtimeSession(conn *websocket.Conn) *RealtimeSession {
	s := &RealtimeSession{conn: conn}
	s.open.Store(true)
	return s
}

// ReadMessage blocks until the next server event arrives. Any read error marks the session
// closed.
func (s *RealtimeSession) ReadMessage() ([]byte, error) {
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		s.open.Store(false)
		return nil, err
	}
	return msg, nil
}

// WriteJSON sends one client instruction.
func (s *RealtimeSession) WriteJSON(v any) error {
	if !s.open.Load() {
		return net.ErrClosed
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	return s.conn.WriteJSON(v)
}

// IsOpen reports whether the session can still carry instructions.
func (s *RealtimeSession) IsOpen() bool {
	return s.open.Load()
}

// Close sends a normal close frame and releases the connection. Safe to call repeatedly.
func (s *RealtimeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.open.Store(false)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = s.conn.Close()
	})
	return err
}
