package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/Harborview-Hotels/service-booking/internal/platform/kafka"
)

// Publisher emits booking lifecycle events. Publishing is best-effort from
// the caller's point of view: failures are logged, never returned, so a flaky
// broker cannot fail a booking operation.
type Publisher interface {
	PublishBookingEvent(ctx context.Context, eventType string, evt BookingEvent)
}

// KafkaPublisher publishes events through the shared Kafka producer.
type KafkaPublisher struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewKafkaPublisher creates a KafkaPublisher.
func NewKafkaPublisher(producer *kafka.Producer, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: logger}
}

// PublishBookingEvent wraps the payload in a CloudEvent and writes it to the
// booking events topic.
func (p *KafkaPublisher) PublishBookingEvent(ctx context.Context, eventType string, evt BookingEvent) {
	ce, err := kafka.NewCloudEvent("service-booking", eventType, evt)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := p.producer.PublishEvent(ctx, TopicBookingEvents, ce); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", TopicBookingEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// NopPublisher discards events (tests and local tooling).
type NopPublisher struct{}

// PublishBookingEvent does nothing.
func (NopPublisher) PublishBookingEvent(context.Context, string, BookingEvent) {}
