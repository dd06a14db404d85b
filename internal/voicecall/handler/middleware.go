package handler

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"voice-relay/internal/apierrors"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// APIKeyMiddleware guards the call management API. Requests must carry the configured key
// in X-API-Key or as a bearer token. With no key configured every request is refused.
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	expected := sha256.Sum256([]byte(h.cfg.APIKey))

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		apiKey := c.GetHeader(apiKeyHeader)
		if apiKey == "" {
			apiKey = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if apiKey == "" {
			apierrors.RespondWithError(c, apierrors.Unauthorized("missing API key"))
			c.Abort()
			return
		}

		// Hash both sides so the comparison does not leak the key length
		provided := sha256.Sum256([]byte(apiKey))
		if h.cfg.APIKey == "" || subtle.ConstantTimeCompare(provided[:], expected[:]) != 1 {
			h.logger.Info(ctx, "invalid API key")
			apierrors.RespondWithError(c, apierrors.Unauthorized("invalid API key"))
			c.Abort()
			return
		}

		c.Next()
	}
}
