package messaging

import "context"

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
// Consume blocks until ctx is cancelled.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error)
}

// Broker is a Publisher and Subscriber that owns connections to release.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// Discard is a Broker that drops every event and consumes nothing.
type Discard struct{}

func (Discard) PublishEvent(context.Context, string, string, any) error { return nil }

func (Discard) Consume(ctx context.Context, _ string, _ string, _ func(context.Context, []byte) error) {
	<-ctx.Done()
}

func (Discard) Close() error { return nil }
