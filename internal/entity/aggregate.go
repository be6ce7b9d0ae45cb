package entity

import (
	"encoding/json"
	"time"
)

// EventStoreRecord is one persisted event of a stream.
type EventStoreRecord struct {
	ID         string          `json:"id"`
	StreamID   string          `json:"stream_id"`
	StreamType string          `json:"stream_type"`
	Version    int             `json:"version"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Event represents a domain event.
type Event interface {
	EventType() string
}

// Stream types used by the event store.
const (
	StreamOrder     = "order"
	StreamInventory = "inventory"
)

// AnyVersion skips the optimistic concurrency check when appending.
const AnyVersion = -1

// AggregateBase carries identity and stream version of an aggregate.
type AggregateBase struct {
	ID      string
	Version int
}

func (a *AggregateBase) GetAggregateID() string {
	return a.ID
}

func (a *AggregateBase) GetVersion() int {
	return a.Version
}
