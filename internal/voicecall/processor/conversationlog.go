package processor

import (
	"context"
	"errors"

	"voice-relay/internal/clients/amqp"
	"voice-relay/internal/observability"
	"voice-relay/internal/store"
)

// Publisher sends call events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, eventType, callSID string, data any) error
}

type storeConversationLog struct {
	store *store.Store
}

// NewStoreConversationLog appends call logs to Postgres.
func NewStoreConversationLog(s *store.Store) ConversationLog {
	return storeConversationLog{store: s}
}

func (l storeConversationLog) LogMessage(ctx context.Context, entry store.MessageEntry) error {
	_, err := l.store.LogMessage(ctx, entry)
	return err
}

func (l storeConversationLog) SaveTranscript(ctx context.Context, entry store.TranscriptEntry) error {
	_, err := l.store.SaveTranscript(ctx, entry)
	return err
}

type publisherConversationLog struct {
	publisher Publisher
}

// NewPublisherConversationLog publishes call logs for downstream consumers.
func NewPublisherConversationLog(publisher Publisher) ConversationLog {
	return publisherConversationLog{publisher: publisher}
}

func (l publisherConversationLog) LogMessage(ctx context.Context, entry store.MessageEntry) error {
	return l.publisher.Publish(ctx, amqp.EventTypeMessage, entry.CallSID, entry)
}

func (l publisherConversationLog) SaveTranscript(ctx context.Context, entry store.TranscriptEntry) error {
	return l.publisher.Publish(ctx, amqp.EventTypeTranscript, entry.CallSID, entry)
}

type loggerConversationLog struct {
	logger *observability.Logger
}

// NewLoggerConversationLog writes call logs as structured log lines. It is the fallback
// when no storage is configured.
func NewLoggerConversationLog(logger *observability.Logger) ConversationLog {
	return loggerConversationLog{logger: logger}
}

func (l loggerConversationLog) LogMessage(ctx context.Context, entry store.MessageEntry) error {
	l.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "caller", Value: entry.Caller},
		observability.Field{Key: "extra", Value: string(entry.Extra)},
	), entry.Message)
	return nil
}

func (l loggerConversationLog) SaveTranscript(ctx context.Context, entry store.TranscriptEntry) error {
	l.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "caller", Value: entry.Caller},
		observability.Field{Key: "user", Value: entry.UserText},
		observability.Field{Key: "assistant", Value: entry.AssistantText},
	), "Conversation turn")
	return nil
}

type fanoutConversationLog []ConversationLog

// NewFanoutConversationLog writes every entry to all logs. Nil logs are skipped, and a
// failing log does not stop the others.
func NewFanoutConversationLog(logs ...ConversationLog) ConversationLog {
	var fanout fanoutConversationLog
	for _, l := range logs {
		if l != nil {
			fanout = append(fanout, l)
		}
	}
	return fanout
}

func (f fanoutConversationLog) LogMessage(ctx context.Context, entry store.MessageEntry) error {
	var errs []error
	for _, l := range f {
		errs = append(errs, l.LogMessage(ctx, entry))
	}
	return errors.Join(errs...)
}

func (f fanoutConversationLog) SaveTranscript(ctx context.Context, entry store.TranscriptEntry) error {
	var errs []error
	for _, l := range f {
		errs = append(errs, l.SaveTranscript(ctx, entry))
	}
	return errors.Join(errs...)
}
