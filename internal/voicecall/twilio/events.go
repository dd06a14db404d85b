package twilio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Media Streams event discriminators.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
	EventClear     = "clear"
	EventDTMF      = "dtmf"
)

// MediaEvent is one inbound frame from a Twilio Media Stream.
type MediaEvent struct {
	Event          string       `json:"event"`
	SequenceNumber string       `json:"sequenceNumber,omitempty"`
	StreamSid      string       `json:"streamSid,omitempty"`
	Start          StartPayload `json:"start,omitempty"`
	Media          MediaPayload `json:"media,omitempty"`
	Mark           MarkPayload  `json:"mark,omitempty"`
	Stop           StopPayload  `json:"stop,omitempty"`
}

type StartPayload struct {
	StreamSid        string            `json:"streamSid"`
	AccountSid       string            `json:"accountSid"`
	CallSid          string            `json:"callSid"`
	Tracks           []string          `json:"tracks,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
	MediaFormat      MediaFormat       `json:"mediaFormat"`
}

type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type MediaPayload struct {
	Track     string    `json:"track,omitempty"`
	Chunk     string    `json:"chunk,omitempty"`
	Timestamp Timestamp `json:"timestamp,omitempty"`
	Payload   string    `json:"payload"`
}

type MarkPayload struct {
	Name string `json:"name"`
}

type StopPayload struct {
	AccountSid string `json:"accountSid"`
	CallSid    string `json:"callSid"`
}

// Timestamp is the media clock in milliseconds since the stream started. Twilio sends it as
// a JSON string; plain numbers are accepted too.
type Timestamp int64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*t = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid media timestamp %q: %w", data, err)
	}
	*t = Timestamp(v)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(t), 10))), nil
}

// ParseMediaEvent decodes one inbound frame.
func ParseMediaEvent(data []byte) (MediaEvent, error) {
	var event MediaEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return MediaEvent{}, err
	}
	return event, nil
}

// OutboundMedia plays audio on the call.
type OutboundMedia struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid"`
	Media     MediaPayload `json:"media"`
}

// OutboundMark asks Twilio to echo a mark once playback reaches it.
type OutboundMark struct {
	Event     string      `json:"event"`
	StreamSid string      `json:"streamSid"`
	Mark      MarkPayload `json:"mark"`
}

// OutboundClear drops any buffered audio not yet played.
type OutboundClear struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
}

func NewMediaMessage(streamSid, payload string) OutboundMedia {
	return OutboundMedia{Event: EventMedia, StreamSid: streamSid, Media: MediaPayload{Payload: payload}}
}

func NewMarkMessage(streamSid, name string) OutboundMark {
	return OutboundMark{Event: EventMark, StreamSid: streamSid, Mark: MarkPayload{Name: name}}
}

func NewClearMessage(streamSid string) OutboundClear {
	return OutboundClear{Event: EventClear, StreamSid: streamSid}
}
