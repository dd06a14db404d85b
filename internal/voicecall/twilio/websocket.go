package twilio

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"voice-relay/internal/observability"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// MediaStream is the server side of one Twilio Media Stream websocket. Reads happen on a
// single goroutine; writes may come from any goroutine and are serialized.
type MediaStream struct {
	conn       *websocket.Conn
	logger     *observability.Logger
	writeMutex sync.Mutex
	closeOnce  sync.Once
	closed     chan struct{}
}

func NewMediaStream(conn *websocket.Conn, logger *observability.Logger) *MediaStream {
	return &MediaStream{
		conn:   conn,
		logger: logger,
		closed: make(chan struct{}),
	}
}

// ReadMessage blocks until the next frame arrives or the connection fails.
func (s *MediaStream) ReadMessage() ([]byte, error) {
	_, msg, err := s.conn.ReadMessage()
	return msg, err
}

// WriteJSON sends one outbound event.
func (s *MediaStream) WriteJSON(v any) error {
	select {
	case <-s.closed:
		return net.ErrClosed
	default:
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	return s.conn.WriteJSON(v)
}

// Close sends a normal close frame and releases the connection. Safe to call repeatedly.
func (s *MediaStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.logger.Info(context.Background(), "Closing Twilio media stream")

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = s.conn.Close()
	})
	return err
}

// IsDisconnect reports whether err means the peer went away rather than a protocol fault.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure) {
		return true
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent)
}
