package repository

import (
	"context"

	"CrediPulse/internal/domain/models"
	"CrediPulse/internal/domain/repository"
	pkgkafka "CrediPulse/pkg/kafka"
)

// KafkaSignalPublisher implements SignalPublisher over the shared producer.
// Keyed by user id so one user's events stay ordered within a partition.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates a Kafka signal publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, ev *models.EmotionEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.UserID), ev)
}

func (p *KafkaSignalPublisher) PublishBatch(ctx context.Context, evs []*models.EmotionEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(evs))
	for i, ev := range evs {
		msgs[i] = pkgkafka.Message{Key: []byte(ev.UserID), Value: ev}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaEventBus implements EventBus over the shared producer.
type KafkaEventBus struct {
	producer           *pkgkafka.Producer
	acceptedTopic      string
	notificationsTopic string
}

// NewKafkaEventBus creates a Kafka event bus.
func NewKafkaEventBus(producer *pkgkafka.Producer, acceptedTopic, notificationsTopic string) repository.EventBus {
	return &KafkaEventBus{
		producer:           producer,
		acceptedTopic:      acceptedTopic,
		notificationsTopic: notificationsTopic,
	}
}

func (b *KafkaEventBus) PublishAccepted(ctx context.Context, ev *models.OfferAcceptedEvent) error {
	return b.producer.Publish(ctx, b.acceptedTopic, []byte(ev.OfferID), ev)
}

func (b *KafkaEventBus) PublishNotification(ctx context.Context, n *models.Notification) error {
	return b.producer.Publish(ctx, b.notificationsTopic, []byte(n.UserID), n)
}

func (b *KafkaEventBus) Close() error {
	if b.producer != nil {
		return b.producer.Close()
	}
	return nil
}

// KafkaLogPublisher adapts the producer to the log collector's Publisher,
// shipping aggregated error logs to an ops topic.
type KafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

// NewKafkaLogPublisher creates a log publisher for the logger collector.
func NewKafkaLogPublisher(producer *pkgkafka.Producer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: producer}
}

func (p *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
