package openai

import "encoding/json"

// Client instructions.
const (
	EventSessionUpdate            = "session.update"
	EventConversationItemCreate   = "conversation.item.create"
	EventResponseCreate           = "response.create"
	EventInputAudioBufferAppend   = "input_audio_buffer.append"
	EventConversationItemTruncate = "conversation.item.truncate"
)

// Server events the relay reacts to.
const (
	EventResponseAudioDelta            = "response.audio.delta"
	EventSpeechStarted                 = "input_audio_buffer.speech_started"
	EventInputTranscriptionCompleted   = "conversation.item.input_audio_transcription.completed"
	EventInputTranscriptionFailed      = "conversation.item.input_audio_transcription.failed"
	EventConversationItemCreated       = "conversation.item.created"
	EventResponseAudioTranscriptDone   = "response.audio_transcript.done"
	EventError                         = "error"
	EventSessionCreated                = "session.created"
	EventResponseDone                  = "response.done"
	EventInputAudioBufferCommitted     = "input_audio_buffer.committed"
	EventInputAudioBufferSpeechStopped = "input_audio_buffer.speech_stopped"
)

// DiagnosticEventTypes are logged when received; they never drive relay behavior.
var DiagnosticEventTypes = map[string]bool{
	"response.content.done":            true,
	"rate_limits.updated":              true,
	EventResponseDone:                  true,
	EventInputAudioBufferCommitted:     true,
	EventInputAudioBufferSpeechStopped: true,
	EventSpeechStarted:                 true,
	EventResponseCreate:                true,
	EventSessionCreated:                true,
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	ContentInputAudio = "input_audio"
)

const (
	AudioFormatG711Ulaw = "g711_ulaw"
	TurnDetectionServer = "server_vad"
	TranscriptionModel  = "whisper-1"
)

// ServerEvent is the subset of realtime server event fields the relay reads.
type ServerEvent struct {
	Type           string       `json:"type"`
	EventID        string       `json:"event_id,omitempty"`
	ItemID         string       `json:"item_id,omitempty"`
	PreviousItemID string       `json:"previous_item_id,omitempty"`
	ResponseID     string       `json:"response_id,omitempty"`
	Delta          string       `json:"delta,omitempty"`
	Transcript     string       `json:"transcript,omitempty"`
	Item           *ServerItem  `json:"item,omitempty"`
	Error          *ServerError `json:"error,omitempty"`
}

// ServerItem is a conversation item as the service reports it in conversation.item.created.
type ServerItem struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// HasInputAudio reports whether the item holds caller audio, which is transcribed
// separately when input transcription is enabled.
func (i ServerItem) HasInputAudio() bool {
	for _, part := range i.Content {
		if part.Type == ContentInputAudio {
			return true
		}
	}
	return false
}

type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return e.Type + " (" + e.Code + "): " + e.Message
	}
	return e.Type + ": " + e.Message
}

// ParseServerEvent decodes one realtime server event.
func ParseServerEvent(data []byte) (ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ServerEvent{}, err
	}
	return event, nil
}

type SessionUpdate struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

type SessionConfig struct {
	TurnDetection           TurnDetection            `json:"turn_detection"`
	InputAudioFormat        string                   `json:"input_audio_format"`
	OutputAudioFormat       string                   `json:"output_audio_format"`
	Voice                   string                   `json:"voice"`
	Instructions            string                   `json:"instructions"`
	Modalities              []string                 `json:"modalities"`
	Temperature             float64                  `json:"temperature"`
	InputAudioTranscription *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
}

type TurnDetection struct {
	Type string `json:"type"`
}

type InputAudioTranscription struct {
	Model string `json:"model"`
}

type ConversationItemCreate struct {
	Type string           `json:"type"`
	Item ConversationItem `json:"item"`
}

type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ResponseCreate struct {
	Type string `json:"type"`
}

type InputAudioBufferAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type ConversationItemTruncate struct {
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int64  `json:"audio_end_ms"`
}

// NewAppendAudio forwards one base64 caller audio chunk into the input buffer.
func NewAppendAudio(payload string) InputAudioBufferAppend {
	return InputAudioBufferAppend{Type: EventInputAudioBufferAppend, Audio: payload}
}

// NewTruncate tells the service the caller only heard audioEndMs of the item's first
// content part.
func NewTruncate(itemID string, audioEndMs int64) ConversationItemTruncate {
	return ConversationItemTruncate{
		Type:         EventConversationItemTruncate,
		ItemID:       itemID,
		ContentIndex: 0,
		AudioEndMs:   audioEndMs,
	}
}

func newUserTextItem(text string) ConversationItemCreate {
	return ConversationItemCreate{
		Type: EventConversationItemCreate,
		Item: ConversationItem{
			Type:    "message",
			Role:    RoleUser,
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}
