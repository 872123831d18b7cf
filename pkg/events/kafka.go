package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"turfbook/pkg/kafka"
)

// KafkaPublisher publishes lifecycle events through the shared Kafka
// producer, keyed by booking id so per-booking ordering is preserved.
type KafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		source:   source,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, key string, payload any) error {
	msg := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventID(uuid.New().String()).
		WithEventType(eventType).
		WithSource(p.source).
		WithSchemaVersion("1").
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
