package bootstrap

import (
	"context"
	"fmt"

	"voice-relay/internal/clients/amqp"
	"voice-relay/internal/clients/openai"
	redisClient "voice-relay/internal/clients/redis"
	twilioClient "voice-relay/internal/clients/twilio"
	"voice-relay/internal/config"
	"voice-relay/internal/metrics"
	"voice-relay/internal/observability"
	"voice-relay/internal/store"
	"voice-relay/internal/voicecall/callsession"
	voiceCallHandler "voice-relay/internal/voicecall/handler"
	voiceCallProcessor "voice-relay/internal/voicecall/processor"
	"voice-relay/internal/voicecall/streamtoken"

	"github.com/redis/go-redis/v9"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Logger  *observability.Logger
	Metrics *metrics.Metrics

	// Optional infrastructure, nil when not configured
	Store     *store.Store
	Redis     *redis.Client
	Publisher *amqp.Publisher

	// Handlers
	VoiceCallHandler voiceCallHandler.Handler
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger:  logger,
		Metrics: metrics.New(),
	}

	// Initialize AI service clients
	connector, err := openai.NewRealtimeConnector(openai.RealtimeConfig{
		APIKey: cfg.OpenAI.APIKey,
		URL:    cfg.OpenAI.RealtimeURL,
		Model:  cfg.OpenAI.Model,
		Session: openai.SessionSettings{
			Voice:              cfg.OpenAI.Voice,
			Instructions:       cfg.OpenAI.Instructions,
			Temperature:        cfg.OpenAI.Temperature,
			GreetingPrompt:     cfg.OpenAI.GreetingPrompt,
			TranscriptsEnabled: cfg.OpenAI.TranscriptsEnabled,
		},
	}, logger, deps.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create realtime connector: %w", err)
	}

	var classifier voiceCallProcessor.IntentClassifier
	if cfg.OpenAI.EndCallDetection {
		intentClassifier, err := openai.NewIntentClassifier(cfg.OpenAI.APIKey, cfg.OpenAI.ClassifierModel, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create intent classifier: %w", err)
		}
		classifier = intentClassifier
	}

	// Initialize telephony clients
	callControl, err := twilioClient.NewCallControl(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create twilio client: %w", err)
	}
	var signatures *twilioClient.SignatureValidator
	if cfg.Server.ValidateSignature {
		signatures = twilioClient.NewSignatureValidator(cfg.Twilio.AuthToken)
	}

	tokens, err := streamtoken.NewSigner(cfg.StreamToken.Secret, cfg.StreamToken.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream token signer: %w", err)
	}

	// Initialize call session registry, shared through Redis when configured
	var sessions callsession.Registry = callsession.NewMemoryRegistry()
	deps.Redis, err = redisClient.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		deps.Cleanup()
		return nil, err
	}
	if deps.Redis != nil {
		sessions = callsession.NewRedisRegistry(deps.Redis, callsession.DefaultTTL)
	}

	// Initialize conversation logging
	var conversationLogs []voiceCallProcessor.ConversationLog
	var history voiceCallProcessor.CallHistory
	if cfg.Database.Enabled {
		dataStore, err := store.New(ctx, cfg.Database.ConnectionString(), logger)
		if err != nil {
			deps.Cleanup()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		deps.Store = &dataStore
		conversationLogs = append(conversationLogs, voiceCallProcessor.NewStoreConversationLog(deps.Store))
		history = deps.Store
	}

	deps.Publisher, err = amqp.NewPublisher(ctx, cfg.AMQP, logger)
	if err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to create transcript publisher: %w", err)
	}
	if deps.Publisher != nil {
		conversationLogs = append(conversationLogs, voiceCallProcessor.NewPublisherConversationLog(deps.Publisher))
	}

	var conversations voiceCallProcessor.ConversationLog
	if len(conversationLogs) > 0 {
		conversations = voiceCallProcessor.NewFanoutConversationLog(conversationLogs...)
	}

	// Initialize voice call processor and handler
	voiceCallProc := voiceCallProcessor.New(voiceCallProcessor.Dependencies{
		Upstream:      voiceCallProcessor.NewRealtimeDialer(connector),
		Sessions:      sessions,
		Terminator:    callControl,
		Conversations: conversations,
		History:       history,
		Classifier:    classifier,
		Tokens:        tokens,
		Metrics:       deps.Metrics,

		TranscribesCaller: cfg.OpenAI.TranscriptsEnabled,
	}, logger)
	deps.VoiceCallHandler = voiceCallHandler.New(voiceCallProc, signatures, voiceCallHandler.Config{
		PublicHost:   cfg.Server.PublicHost,
		Greeting:     cfg.Twilio.Greeting,
		PauseSeconds: cfg.Twilio.PauseSeconds,
		APIKey:       cfg.Server.APIKey,
	}, logger)
	if cfg.Server.APIKey == "" {
		logger.Info(ctx, "API_KEY is not set, the call management API will refuse all requests")
	}

	return deps, nil
}

// Cleanup closes all resources that need cleanup
func (d *Dependencies) Cleanup() {
	ctx := context.Background()
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Error(ctx, "failed to close transcript publisher", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error(ctx, "failed to close redis client", err)
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.Error(ctx, "failed to close database", err)
		}
	}
}
