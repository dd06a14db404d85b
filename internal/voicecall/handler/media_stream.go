package handler

import (
	"voice-relay/internal/voicecall/twilio"

	"github.com/gin-gonic/gin"
)

// HandleMediaStream upgrades a Twilio Media Stream request and relays it until the call
// ends.
func (h *Handler) HandleMediaStream(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "WebSocket upgrade failed", err)
		return
	}

	stream := twilio.NewMediaStream(conn, h.logger)
	if err := h.voiceProcessor.HandleMediaStream(ctx, stream); err != nil {
		h.logger.InfoWithError(ctx, "Media stream closed", err)
	}
}
