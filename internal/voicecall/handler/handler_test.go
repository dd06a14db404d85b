package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"voice-relay/internal/clients/twilio"
	"voice-relay/internal/observability"
	"voice-relay/internal/store"
	"voice-relay/internal/voicecall/callsession"
	"voice-relay/internal/voicecall/processor"
	"voice-relay/internal/voicecall/relay"
	"voice-relay/internal/voicecall/streamtoken"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const (
	testAuthToken = "twilio-auth-token"
	testAPIKey    = "ops-api-key"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingDialer struct{}

func (failingDialer) Dial(context.Context) (relay.Upstream, error) {
	return nil, errors.New("connection refused")
}

type fakeTerminator struct {
	ended []string
	err   error
}

func (f *fakeTerminator) EndCall(_ context.Context, callSID string) error {
	f.ended = append(f.ended, callSID)
	return f.err
}

type fakeHistory struct {
	messages    []store.MessageEntry
	transcripts []store.TranscriptEntry
	lastCaller  string
	lastLimit   int
}

func (f *fakeHistory) ListMessages(_ context.Context, limit int) ([]store.MessageEntry, error) {
	f.lastLimit = limit
	return f.messages, nil
}

func (f *fakeHistory) ListTranscripts(_ context.Context, caller string, limit int) ([]store.TranscriptEntry, error) {
	f.lastCaller = caller
	f.lastLimit = limit
	return f.transcripts, nil
}

type testEnv struct {
	router     *gin.Engine
	sessions   *callsession.MemoryRegistry
	signer     *streamtoken.Signer
	terminator *fakeTerminator
	history    *fakeHistory
}

type envOption func(*processor.Dependencies, *Config, **twilio.SignatureValidator)

func withSignatureValidation() envOption {
	return func(_ *processor.Dependencies, _ *Config, v **twilio.SignatureValidator) {
		*v = twilio.NewSignatureValidator(testAuthToken)
	}
}

func withoutAPIKey() envOption {
	return func(_ *processor.Dependencies, cfg *Config, _ **twilio.SignatureValidator) {
		cfg.APIKey = ""
	}
}

func withoutHistory() envOption {
	return func(d *processor.Dependencies, _ *Config, _ **twilio.SignatureValidator) {
		d.History = nil
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	signer, err := streamtoken.NewSigner("stream-secret", time.Minute)
	require.NoError(t, err)

	env := &testEnv{
		sessions:   callsession.NewMemoryRegistry(),
		signer:     signer,
		terminator: &fakeTerminator{},
		history:    &fakeHistory{},
	}
	logger := observability.NewLoggerWithCore(zapcore.NewNopCore())

	deps := processor.Dependencies{
		Upstream:   failingDialer{},
		Sessions:   env.sessions,
		Terminator: env.terminator,
		History:    env.history,
		Tokens:     signer,
	}
	cfg := Config{PublicHost: "voice.example.com", Greeting: "Hello! Please hold.", APIKey: testAPIKey}
	var validator *twilio.SignatureValidator
	for _, opt := range opts {
		opt(&deps, &cfg, &validator)
	}

	h := New(processor.New(deps, logger), validator, cfg, logger)
	router := gin.New()
	router.GET("/", h.HandleIndex)
	router.POST("/incoming-call", h.HandleIncomingCall)
	router.GET("/media-stream", h.HandleMediaStream)
	api := router.Group("/api", h.APIKeyMiddleware())
	api.GET("/calls", h.HandleListCalls)
	api.GET("/calls/:callSid", h.HandleGetCall)
	api.POST("/calls/:callSid/end", h.HandleEndCall)
	api.GET("/messages", h.HandleListMessages)
	api.GET("/transcripts/:caller", h.HandleListTranscripts)
	env.router = router
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func apiRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("X-API-Key", testAPIKey)
	return req
}

func incomingCallRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/incoming-call", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func twilioSignature(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data := fullURL
	for _, k := range keys {
		data += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHandler_HandleIndex(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Twilio Media Stream Server is running!", w.Body.String())
}

func TestHandler_HandleIncomingCall(t *testing.T) {
	env := newTestEnv(t)
	form := url.Values{"CallSid": {"CA123"}, "From": {"+15550001"}}

	w := env.do(incomingCallRequest(form))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")

	body := w.Body.String()
	assert.Contains(t, body, "<Say>Hello! Please hold.</Say>")
	assert.Contains(t, body, `url="wss://voice.example.com/media-stream"`)
	assert.Contains(t, body, `<Pause length="60"`)
	assert.Less(t, strings.Index(body, "<Say>"), strings.Index(body, "<Connect>"))
	assert.Less(t, strings.Index(body, "<Connect>"), strings.Index(body, "<Pause"))

	parameter := regexp.MustCompile(`<Parameter [^>]*>`).FindString(body)
	assert.Contains(t, parameter, `name="token"`)
	match := regexp.MustCompile(`value="([^"]+)"`).FindStringSubmatch(parameter)
	require.Len(t, match, 2, body)
	claims, err := env.signer.Verify(match[1], "CA123")
	require.NoError(t, err)
	assert.Equal(t, "+15550001", claims.Caller)

	session, err := env.sessions.Get(context.Background(), "CA123")
	require.NoError(t, err)
	assert.Equal(t, "+15550001", session.Caller)
}

func TestHandler_HandleIncomingCall_MissingCallSid(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(incomingCallRequest(url.Values{"From": {"+15550001"}}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CallSid is required")
}

func TestHandler_HandleIncomingCall_Signature(t *testing.T) {
	form := url.Values{"CallSid": {"CA123"}, "From": {"+15550001"}}

	tests := []struct {
		name       string
		signature  string
		wantStatus int
	}{
		{name: "valid signature", signature: twilioSignature(testAuthToken, "https://voice.example.com/incoming-call", form), wantStatus: http.StatusOK},
		{name: "signed with another token", signature: twilioSignature("other-token", "https://voice.example.com/incoming-call", form), wantStatus: http.StatusForbidden},
		{name: "missing signature", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, withSignatureValidation())
			req := incomingCallRequest(form)
			if tt.signature != "" {
				req.Header.Set("X-Twilio-Signature", tt.signature)
			}

			w := env.do(req)
			assert.Equal(t, tt.wantStatus, w.Code)

			_, err := env.sessions.Get(context.Background(), "CA123")
			if tt.wantStatus == http.StatusOK {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, callsession.ErrSessionNotFound)
			}
		})
	}
}

func TestHandler_Calls(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.sessions.Register(context.Background(), callsession.Session{CallSID: "CA1", Caller: "+15550001", CreatedAt: time.Now()}))

	w := env.do(apiRequest(http.MethodGet, "/api/calls"))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Calls []callsession.Session `json:"calls"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Calls, 1)
	assert.Equal(t, "CA1", list.Calls[0].CallSID)

	w = env.do(apiRequest(http.MethodGet, "/api/calls/CA404"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "CALL_NOT_FOUND")
}

func TestHandler_HandleEndCall(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "ends the call", wantStatus: http.StatusOK},
		{name: "provider failure", err: fmt.Errorf("%w: 500", twilio.ErrTerminationRequestFailed), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.terminator.err = tt.err

			w := env.do(apiRequest(http.MethodPost, "/api/calls/CA1/end"))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, []string{"CA1"}, env.terminator.ended)
		})
	}
}

func TestHandler_APIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		opts       []envOption
		header     string
		value      string
		wantStatus int
	}{
		{name: "no credentials", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", header: "X-API-Key", value: "guessed", wantStatus: http.StatusUnauthorized},
		{name: "api key header", header: "X-API-Key", value: testAPIKey, wantStatus: http.StatusOK},
		{name: "bearer token", header: "Authorization", value: "Bearer " + testAPIKey, wantStatus: http.StatusOK},
		{name: "no key configured", opts: []envOption{withoutAPIKey()}, header: "X-API-Key", value: "anything", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.opts...)
			req := httptest.NewRequest(http.MethodPost, "/api/calls/CA-live/end", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			w := env.do(req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Empty(t, env.terminator.ended, "rejected requests never reach the provider")
				assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
			} else {
				assert.Equal(t, []string{"CA-live"}, env.terminator.ended)
			}
		})
	}

	t.Run("transcripts need a key", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(httptest.NewRequest(http.MethodGet, "/api/transcripts/+15550001", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, env.history.lastCaller)
	})
}

func TestHandler_History(t *testing.T) {
	t.Run("messages", func(t *testing.T) {
		env := newTestEnv(t)
		env.history.messages = []store.MessageEntry{{CallSID: "CA1", Message: "Incoming call started"}}

		w := env.do(apiRequest(http.MethodGet, "/api/messages?limit=5"))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Incoming call started")
		assert.Equal(t, 5, env.history.lastLimit)
	})

	t.Run("transcripts for a caller", func(t *testing.T) {
		env := newTestEnv(t)
		env.history.transcripts = []store.TranscriptEntry{{Caller: "+15550001", UserText: "hi", AssistantText: "hello"}}

		w := env.do(apiRequest(http.MethodGet, "/api/transcripts/+15550001"))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "+15550001", env.history.lastCaller)
		assert.Equal(t, defaultListLimit, env.history.lastLimit)
		assert.Contains(t, w.Body.String(), `"assistant":"hello"`)
	})

	t.Run("invalid limit", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(apiRequest(http.MethodGet, "/api/messages?limit=abc"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no storage configured", func(t *testing.T) {
		env := newTestEnv(t, withoutHistory())
		w := env.do(apiRequest(http.MethodGet, "/api/messages"))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "HISTORY_UNAVAILABLE")
	})
}

func TestHandler_HandleMediaStream_UpstreamUnavailable(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.sessions.Register(context.Background(), callsession.Session{CallSID: "CA1"}))

	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/media-stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	token, err := env.signer.Issue("CA1", "+15550001")
	require.NoError(t, err)
	start := fmt.Sprintf(`{"event":"start","start":{"streamSid":"MZ1","callSid":"CA1","customParameters":{"token":%q}}}`, token)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(start)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)

	assert.Eventually(t, func() bool {
		_, err := env.sessions.Get(context.Background(), "CA1")
		return errors.Is(err, callsession.ErrSessionNotFound)
	}, time.Second, 10*time.Millisecond)
}

func TestHandler_HandleMediaStream_RejectsStreamWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.sessions.Register(context.Background(), callsession.Session{CallSID: "CA1"}))

	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/media-stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"start","start":{"streamSid":"MZ9","callSid":"CA1"}}`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)

	session, err := env.sessions.Get(context.Background(), "CA1")
	require.NoError(t, err)
	assert.Empty(t, session.StreamSID)
}
