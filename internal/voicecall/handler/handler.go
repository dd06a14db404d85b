package handler

import (
	"net/http"
	"strings"

	"voice-relay/internal/clients/twilio"
	"voice-relay/internal/observability"
	"voice-relay/internal/voicecall/processor"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	mediaStreamPath  = "/media-stream"
	signatureHeader  = "X-Twilio-Signature"
	defaultPauseSecs = 60
)

// Config controls how calls are answered.
type Config struct {
	// PublicHost is the host Twilio reaches this server on. The request host is used when
	// empty.
	PublicHost   string
	Greeting     string
	PauseSeconds int
	// APIKey authorizes requests to the call management API.
	APIKey string
}

type Handler struct {
	voiceProcessor *processor.VoiceCallProcessor
	signatures     *twilio.SignatureValidator
	cfg            Config
	upgrader       websocket.Upgrader
	logger         *observability.Logger
}

// New builds the voice call handler. A nil signatures validator disables webhook signature
// checks.
func New(voiceProcessor *processor.VoiceCallProcessor, signatures *twilio.SignatureValidator, cfg Config, logger *observability.Logger) Handler {
	if cfg.PauseSeconds <= 0 {
		cfg.PauseSeconds = defaultPauseSecs
	}
	return Handler{
		voiceProcessor: voiceProcessor,
		signatures:     signatures,
		cfg:            cfg,
		upgrader:       websocket.Upgrader{},
		logger:         logger,
	}
}

func (h *Handler) HandleIndex(c *gin.Context) {
	c.String(http.StatusOK, "Twilio Media Stream Server is running!")
}

func (h *Handler) host(c *gin.Context) string {
	if h.cfg.PublicHost != "" {
		return strings.TrimSuffix(h.cfg.PublicHost, "/")
	}
	return c.Request.Host
}
