package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
)

// HeaderEventType names the event carried by a message.
const HeaderEventType = "event-type"

// Event is the unit of data published to Kafka. Key picks the partition and
// Value is JSON encoded.
type Event struct {
	Key   string
	Value any
}

// Typed is implemented by event values that name themselves in the
// event-type header.
type Typed interface {
	EventType() string
}

// Publisher publishes events to one topic.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// MessageWriter is the subset of *kafka.Writer used by Producer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON events to a Kafka topic.
type Producer struct {
	writer MessageWriter
	logger *slog.Logger
}

// NewProducer creates a synchronous, lz4-compressed Producer for topic.
// Messages with the same key land on the same partition, so events for one
// document stay ordered.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Lz4,
	}
	return NewProducerWithWriter(w, topic)
}

// NewProducerWithWriter creates a Producer over an existing writer.
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes one event and waits for the brokers to acknowledge it.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch writes events in a single call. Nothing is written when any
// event fails to encode.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	messages := make([]kafka.Message, 0, len(events))
	size := 0
	for _, event := range events {
		msg, err := encode(event)
		if err != nil {
			return err
		}
		size += len(msg.Value)
		messages = append(messages, msg)
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish", "count", len(messages), "error", err)
		return fmt.Errorf("publishing %d messages to kafka: %w", len(messages), err)
	}
	p.logger.Debug("published", "count", len(messages), "bytes", size)
	return nil
}

func encode(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding event %q: %w", event.Key, err)
	}
	msg := kafka.Message{Key: []byte(event.Key), Value: value}
	if typed, ok := event.Value.(Typed); ok {
		msg.Headers = []kafka.Header{{Key: HeaderEventType, Value: []byte(typed.EventType())}}
	}
	return msg, nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
