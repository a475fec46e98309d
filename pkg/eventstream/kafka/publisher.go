// Package kafka publishes reading events to a Kafka topic, keyed by reading id
// so every event for a reading lands on the same partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/tarot/pkg/eventstream"
	"github.com/papercomputeco/tarot/pkg/logger"
)

var (
	// ErrNoBrokers is returned when no broker address is configured.
	ErrNoBrokers = errors.New("kafka publisher needs at least one broker")

	// ErrNoTopic is returned when the topic is empty.
	ErrNoTopic = errors.New("kafka publisher needs a topic")
)

const defaultWriteTimeout = 10 * time.Second

// Config configures the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Defaults to 10s.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Publisher writes JSON-encoded events with a kafka-go Writer.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Publisher. No connection is made until the first
// publish.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if c.Topic == "" {
		return nil, ErrNoTopic
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           c.WriteTimeout,
		AllowAutoTopicCreation: true,
	}

	return &Publisher{writer: w, logger: c.Logger}, nil
}

// Topic returns the topic events are written to.
func (p *Publisher) Topic() string {
	return p.writer.Topic
}

// PublishReading writes event to the topic.
func (p *Publisher) PublishReading(ctx context.Context, event *eventstream.ReadingCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilReadingEvent
	}

	msg, err := Message(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s: %w", event.EventType, err)
	}

	p.logger.Debug("reading event published",
		"topic", p.writer.Topic,
		"event_id", event.EventID,
		"reading_id", event.Reading.ID,
	)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Message encodes event as the Kafka message the publisher writes.
func Message(event *eventstream.ReadingCompletedEvent) (kafkago.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("encoding %s: %w", event.EventType, err)
	}

	return kafkago.Message{
		Key:   []byte(event.Reading.ID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: fmt.Appendf(nil, "%d", event.SchemaVersion)},
		},
		Time: event.EmittedAt,
	}, nil
}
