package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// WatermillPublisher publishes events as JSON messages, one topic per event type
type WatermillPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewWatermillPublisher(publisher message.Publisher, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher, logger: logger}
}

// NewKafkaPublisher connects to the given brokers
func NewKafkaPublisher(brokers []string, logger *slog.Logger) (*WatermillPublisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return NewWatermillPublisher(pub, logger), nil
}

// NewInProcessPublisher returns a publisher backed by an in-memory channel.
// The returned GoChannel is also the subscriber side.
func NewInProcessPublisher(logger *slog.Logger) (*WatermillPublisher, *gochannel.GoChannel) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
	return NewWatermillPublisher(ch, logger), ch
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("user_id", event.UserID)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(event.Type, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.DebugContext(ctx, "Event published", "event_id", event.ID, "type", event.Type)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// RunLogConsumer logs every event received on topics until ctx is done
func RunLogConsumer(ctx context.Context, sub message.Subscriber, logger *slog.Logger, topics ...string) error {
	for _, topic := range topics {
		messages, err := sub.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}

		go func(topic string, messages <-chan *message.Message) {
			for msg := range messages {
				var event Event
				if err := json.Unmarshal(msg.Payload, &event); err != nil {
					logger.Warn("Dropping malformed event", "topic", topic, "error", err)
					msg.Nack()
					continue
				}
				logger.Info("Event received",
					"topic", topic,
					"event_id", event.ID,
					"user_id", event.UserID)
				msg.Ack()
			}
		}(topic, messages)
	}
	return nil
}
