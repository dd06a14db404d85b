package handler

import (
	"net/http"
	"strconv"

	"voice-relay/internal/apierrors"
	"voice-relay/internal/observability"
	"voice-relay/internal/voicecall/streamtoken"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
)

type IncomingCallRequest struct {
	CallSid string `form:"CallSid" binding:"required"`
	From    string `form:"From"`
}

// HandleIncomingCall answers a Twilio voice webhook with TwiML that greets the caller and
// connects the call audio to the media stream endpoint.
func (h *Handler) HandleIncomingCall(c *gin.Context) {
	ctx := c.Request.Context()

	if h.signatures != nil && !h.validSignature(c) {
		apierrors.RespondWithError(c, apierrors.Forbidden(apierrors.CodeInvalidSignature, "Invalid Twilio signature"))
		return
	}

	var req IncomingCallRequest
	if err := c.ShouldBind(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: req.CallSid},
		observability.Field{Key: "caller", Value: req.From},
	)

	token, err := h.voiceProcessor.StartCall(ctx, req.CallSid, req.From)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	say := &twiml.VoiceSay{
		Message: h.cfg.Greeting,
	}

	stream := twiml.VoiceStream{
		Url: "wss://" + h.host(c) + mediaStreamPath,
		InnerElements: []twiml.Element{
			twiml.VoiceParameter{Name: streamtoken.ParameterName, Value: token},
		},
	}

	connect := twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}

	pause := &twiml.VoicePause{
		Length: strconv.Itoa(h.cfg.PauseSeconds),
	}

	twimlResult, err := twiml.Voice([]twiml.Element{say, connect, pause})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	h.logger.Info(ctx, "Answered incoming call")
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twimlResult)
}

// validSignature checks X-Twilio-Signature against the public URL Twilio called and the
// posted form values.
func (h *Handler) validSignature(c *gin.Context) bool {
	if err := c.Request.ParseForm(); err != nil {
		return false
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for key := range c.Request.PostForm {
		params[key] = c.Request.PostForm.Get(key)
	}
	url := "https://" + h.host(c) + c.Request.URL.RequestURI()
	return h.signatures.Validate(url, params, c.GetHeader(signatureHeader))
}
