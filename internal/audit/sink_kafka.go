package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"consents/internal/platform/kafka/producer"
)

// DefaultTopic receives consent lifecycle events.
const DefaultTopic = "consent-events"

// MessageProducer publishes a single message synchronously.
type MessageProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes events as JSON, keyed by consent id so every change to a
// consent lands on the same partition in order.
type KafkaSink struct {
	producer MessageProducer
	topic    string
}

func NewKafkaSink(p MessageProducer, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	headers := map[string]string{"action": event.Action}
	if event.RequestID != "" {
		headers["request_id"] = event.RequestID
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic:   s.topic,
		Key:     []byte(event.ConsentID),
		Value:   value,
		Headers: headers,
	})
}
