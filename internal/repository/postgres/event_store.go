package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
)

const eventColumns = "id, stream_id, stream_type, version, event_type, payload, created_at"

type eventStore struct {
	db *sql.DB
}

// NewEventStore creates an EventStore on the events table. Appends to one
// stream are serialized with a transaction-scoped advisory lock, and the
// (stream_id, version) unique key backs up the version check.
func NewEventStore(db *sql.DB) repository.EventStore {
	return &eventStore{db: db}
}

func (s *eventStore) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	payloads := make([]string, len(events))
	for i, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		// lib/pq sends []byte as bytea; JSONB wants text.
		payloads[i] = string(payload)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", streamID); err != nil {
		return fmt.Errorf("failed to lock stream %s: %w", streamID, err)
	}

	var head int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1", streamID).Scan(&head); err != nil {
		return fmt.Errorf("failed to read head of stream %s: %w", streamID, err)
	}
	if expectedVersion != entity.AnyVersion && expectedVersion != head {
		return fmt.Errorf("%w: stream %s is at version %d, expected %d", entity.ErrVersionConflict, streamID, head, expectedVersion)
	}

	now := time.Now()
	for i, event := range events {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO events ("+eventColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
			uuid.NewString(), streamID, streamType, head+i+1, event.EventType(), payloads[i], now,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: version %d of stream %s already written", entity.ErrVersionConflict, head+i+1, streamID)
		}
		if err != nil {
			return fmt.Errorf("failed to append %s to stream %s: %w", event.EventType(), streamID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

func scanRecord(row rowScanner) (entity.EventStoreRecord, error) {
	var (
		rec     entity.EventStoreRecord
		payload []byte
	)
	if err := row.Scan(&rec.ID, &rec.StreamID, &rec.StreamType, &rec.Version, &rec.EventType, &payload, &rec.CreatedAt); err != nil {
		return entity.EventStoreRecord{}, err
	}
	rec.Payload = json.RawMessage(payload)
	return rec, nil
}

func (s *eventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM events WHERE stream_id = $1 ORDER BY version", streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stream %s: %w", streamID, err)
	}
	defer rows.Close()

	records := []entity.EventStoreRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event of stream %s: %w", streamID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stream %s: %w", streamID, err)
	}
	return records, nil
}
