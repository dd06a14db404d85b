package processor

import (
	"context"

	"voice-relay/internal/clients/openai"
	"voice-relay/internal/voicecall/relay"
)

type realtimeDialer struct {
	connector *openai.RealtimeConnector
}

// NewRealtimeDialer adapts the OpenAI realtime connector to UpstreamDialer.
func NewRealtimeDialer(connector *openai.RealtimeConnector) UpstreamDialer {
	return realtimeDialer{connector: connector}
}

func (d realtimeDialer) Dial(ctx context.Context) (relay.Upstream, error) {
	session, err := d.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}
