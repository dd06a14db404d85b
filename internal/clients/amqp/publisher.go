package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voice-relay/internal/config"
	"voice-relay/internal/observability"

	"github.com/streadway/amqp"
)

var ErrPublisherClosed = errors.New("amqp publisher is closed")

// Event types carried in the envelope.
const (
	EventTypeTranscript = "call.transcript"
	EventTypeMessage    = "call.message"
)

// messageTTL keeps unconsumed call logs from piling up in the queue.
const messageTTL = "43200000"

// Envelope is the JSON body of every published message.
type Envelope struct {
	Type      string          `json:"type"`
	CallSID   string          `json:"call_sid,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type publishChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher pushes call events onto a durable queue for downstream consumers.
type Publisher struct {
	conn    *amqp.Connection
	channel publishChannel
	queue   string
	logger  *observability.Logger
	now     func() time.Time
}

// NewPublisher dials the broker and declares the queue. It returns nil when AMQP is
// disabled.
func NewPublisher(ctx context.Context, cfg config.AMQPConfig, logger *observability.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		logger.Info(ctx, "AMQP is disabled, transcripts will not be published")
		return nil, nil
	}

	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial:      amqp.DefaultDial(5 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare AMQP queue: %w", err)
	}

	logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "queue", Value: cfg.Queue},
	), "Connected to AMQP server")

	p := newPublisher(channel, cfg.Queue, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(channel publishChannel, queue string, logger *observability.Logger) *Publisher {
	return &Publisher{channel: channel, queue: queue, logger: logger, now: time.Now}
}

// Publish wraps data in an Envelope and sends it to the queue as a persistent message.
func (p *Publisher) Publish(ctx context.Context, eventType, callSID string, data any) error {
	if p == nil || p.channel == nil {
		return ErrPublisherClosed
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	body, err := json.Marshal(Envelope{
		Type:      eventType,
		CallSID:   callSID,
		Timestamp: p.now().UTC(),
		Data:      payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = p.channel.Publish(
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Type:         eventType,
			Expiration:   messageTTL,
		},
	)
	if err != nil {
		p.logger.Error(observability.WithFields(ctx,
			observability.Field{Key: "event_type", Value: eventType},
		), "Failed to publish to AMQP", err)
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

// Close releases the channel and the connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
