package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
	"github.com/google/uuid"
)

type eventStore struct {
	mu      sync.RWMutex
	streams map[string][]entity.EventStoreRecord
}

// NewEventStore creates an empty in-memory EventStore.
func NewEventStore() repository.EventStore {
	return &eventStore{streams: make(map[string][]entity.EventStoreRecord)}
}

func (s *eventStore) SaveEvents(_ context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Marshal outside the lock; a bad payload must not leave a half-written stream.
	payloads := make([][]byte, len(events))
	for i, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		payloads[i] = payload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	currentVersion := len(stream)
	if expectedVersion != entity.AnyVersion && currentVersion != expectedVersion {
		return fmt.Errorf("%w: expected version %d, got %d", entity.ErrVersionConflict, expectedVersion, currentVersion)
	}

	now := time.Now()
	for i, event := range events {
		stream = append(stream, entity.EventStoreRecord{
			ID:         uuid.NewString(),
			StreamID:   streamID,
			StreamType: streamType,
			Version:    currentVersion + i + 1,
			EventType:  event.EventType(),
			Payload:    payloads[i],
			CreatedAt:  now,
		})
	}
	s.streams[streamID] = stream
	return nil
}

func (s *eventStore) LoadEvents(_ context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.EventStoreRecord(nil), s.streams[streamID]...), nil
}
