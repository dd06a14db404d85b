package api

import (
	"net/http"

	voiceCallHandler "voice-relay/internal/voicecall/handler"

	"github.com/gin-gonic/gin"
)

type API struct {
	router           *gin.RouterGroup
	voiceCallHandler voiceCallHandler.Handler
	metricsHandler   http.Handler
}

func New(router *gin.RouterGroup, voiceCallHandler voiceCallHandler.Handler, metricsHandler http.Handler) API {
	return API{
		router:           router,
		voiceCallHandler: voiceCallHandler,
		metricsHandler:   metricsHandler,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	a.router.GET("/metrics", gin.WrapH(a.metricsHandler))

	a.router.GET("/", a.voiceCallHandler.HandleIndex)
	// Twilio voice webhooks may be configured as GET or POST
	a.router.GET("/incoming-call", a.voiceCallHandler.HandleIncomingCall)
	a.router.POST("/incoming-call", a.voiceCallHandler.HandleIncomingCall)
	a.router.GET("/media-stream", a.voiceCallHandler.HandleMediaStream)

	apiGroup := a.router.Group("/api")
	apiGroup.Use(a.voiceCallHandler.APIKeyMiddleware())
	{
		callsGroup := apiGroup.Group("/calls")
		callsGroup.GET("", a.voiceCallHandler.HandleListCalls)
		callsGroup.GET("/:callSid", a.voiceCallHandler.HandleGetCall)
		callsGroup.POST("/:callSid/end", a.voiceCallHandler.HandleEndCall)

		apiGroup.GET("/messages", a.voiceCallHandler.HandleListMessages)
		apiGroup.GET("/transcripts/:caller", a.voiceCallHandler.HandleListTranscripts)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
