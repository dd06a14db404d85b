package handler

import (
	"net/http"
	"strconv"

	"voice-relay/internal/apierrors"

	"github.com/gin-gonic/gin"
)

const defaultListLimit = 50

func (h *Handler) HandleListCalls(c *gin.Context) {
	calls, err := h.voiceProcessor.ListCalls(c.Request.Context())
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

func (h *Handler) HandleGetCall(c *gin.Context) {
	call, err := h.voiceProcessor.GetCall(c.Request.Context(), c.Param("callSid"))
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// HandleEndCall hangs up a live call.
func (h *Handler) HandleEndCall(c *gin.Context) {
	callSID := c.Param("callSid")
	if err := h.voiceProcessor.EndCall(c.Request.Context(), callSID); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_sid": callSID, "status": "completed"})
}

func (h *Handler) HandleListMessages(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	messages, err := h.voiceProcessor.ListMessages(c.Request.Context(), limit)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// HandleListTranscripts returns a caller's conversation history, oldest turn first.
func (h *Handler) HandleListTranscripts(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	transcripts, err := h.voiceProcessor.ListTranscripts(c.Request.Context(), c.Param("caller"), limit)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"caller": c.Param("caller"), "transcripts": transcripts})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "limit must be a positive integer"))
		return 0, false
	}
	return limit, true
}
