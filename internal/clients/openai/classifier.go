package openai

import (
	"context"
	"fmt"
	"strings"

	"voice-relay/internal/observability"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const endOfCallPrompt = "You are a call intent classifier. Your only job is to answer 'yes' or 'no'. " +
	"Given a caller's last sentence, respond with 'yes' if they want to end the call, " +
	"or 'no' if the conversation should continue. Do not explain."

type chatCompleter interface {
	New(ctx context.Context, body openaisdk.ChatCompletionNewParams, opts ...option.RequestOption) (*openaisdk.ChatCompletion, error)
}

// IntentClassifier decides whether a caller's utterance asks to hang up.
type IntentClassifier struct {
	completions chatCompleter
	model       string
	logger      *observability.Logger
}

// NewIntentClassifier builds a classifier on the chat completions API. Extra options are
// appended after the API key, so tests can point it at a local server.
func NewIntentClassifier(apiKey, model string, logger *observability.Logger, opts ...option.RequestOption) (*IntentClassifier, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client := openaisdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &IntentClassifier{
		completions: &client.Chat.Completions,
		model:       model,
		logger:      logger,
	}, nil
}

// WantsToEndCall returns true when the model answers "yes". Failures are logged and count
// as "no".
func (c *IntentClassifier) WantsToEndCall(ctx context.Context, utterance string) bool {
	if strings.TrimSpace(utterance) == "" {
		return false
	}

	resp, err := c.completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(endOfCallPrompt),
			openaisdk.UserMessage(utterance),
		},
		MaxTokens:   openaisdk.Int(1),
		Temperature: openaisdk.Float(0),
	})
	if err != nil {
		c.logger.Error(ctx, "Intent detection failed", fmt.Errorf("chat completion: %w", err))
		return false
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn(ctx, "Intent detection returned no choices")
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	return strings.HasPrefix(answer, "yes")
}
