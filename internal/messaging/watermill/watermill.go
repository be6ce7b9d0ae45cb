// Package watermill implements messaging.Broker on top of Watermill. The
// in-process GoChannel transport keeps the services in one process; the Kafka
// transport goes through watermill-kafka and Sarama.
package watermill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/egannguyen/microshop/internal/messaging"
)

const (
	clientID          = "microshop"
	metadataKey       = "key"
	metadataEventType = "event_type"
)

type broker struct {
	publisher message.Publisher
	// newSubscriber returns the subscriber for a consumer group and whether
	// the broker owns it separately from the publisher.
	newSubscriber func(groupID string) (message.Subscriber, bool, error)

	mu      sync.Mutex
	closers []message.Subscriber
	closed  bool
}

// NewGoChannelBroker creates an in-process broker. Every Consume call receives
// every message published after it subscribed; consumer groups are ignored.
func NewGoChannelBroker(logger *slog.Logger) messaging.Broker {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewSlogLogger(logger))
	return &broker{
		publisher: pubSub,
		newSubscriber: func(string) (message.Subscriber, bool, error) {
			return pubSub, false, nil
		},
	}
}

// NewKafkaBroker creates a broker publishing to and consuming from Kafka via
// watermill-kafka. Each consumer group gets its own Sarama consumer.
func NewKafkaBroker(brokers []string, logger *slog.Logger) (messaging.Broker, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	pubCfg := kafka.DefaultSaramaSyncPublisherConfig()
	pubCfg.ClientID = clientID
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: pubCfg,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &broker{
		publisher: publisher,
		newSubscriber: func(groupID string) (message.Subscriber, bool, error) {
			subCfg := kafka.DefaultSaramaSubscriberConfig()
			subCfg.ClientID = clientID
			subCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
			sub, err := kafka.NewSubscriber(kafka.SubscriberConfig{
				Brokers:               brokers,
				Unmarshaler:           kafka.DefaultMarshaler{},
				OverwriteSaramaConfig: subCfg,
				ConsumerGroup:         groupID,
			}, wmLogger)
			return sub, true, err
		},
	}, nil
}

func (b *broker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataKey, key)
	if typed, ok := event.(interface{ EventType() string }); ok {
		msg.Metadata.Set(metadataEventType, typed.EventType())
	}
	msg.SetContext(ctx)

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (b *broker) subscriber(groupID string) (message.Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("broker is closed")
	}
	sub, owned, err := b.newSubscriber(groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriber for group %s: %w", groupID, err)
	}
	if owned {
		b.closers = append(b.closers, sub)
	}
	return sub, nil
}

func (b *broker) Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error) {
	sub, err := b.subscriber(groupID)
	if err != nil {
		slog.Error("Error subscribing", "topic", topic, "err", err)
		return
	}
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		slog.Error("Error subscribing", "topic", topic, "err", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Consumer shutting down", "topic", topic)
			return
		case msg, ok := <-messages:
			if !ok {
				slog.Info("Subscription closed", "topic", topic)
				return
			}
			if err := handler(ctx, msg.Payload); err != nil {
				slog.Error("Error handling message", "topic", topic, "message_uuid", msg.UUID, "err", err)
			}
			// Handler errors are logged, not redelivered.
			msg.Ack()
		}
	}
}

func (b *broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, sub := range b.closers {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
