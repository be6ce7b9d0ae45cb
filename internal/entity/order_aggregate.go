package entity

import (
	"encoding/json"
	"fmt"
)

// OrderAggregate rebuilds the state of an Order by replaying its stream.
type OrderAggregate struct {
	AggregateBase
	Order Order
}

// NewOrderAggregate creates an empty OrderAggregate.
func NewOrderAggregate(id string) *OrderAggregate {
	return &OrderAggregate{
		AggregateBase: AggregateBase{ID: id, Version: 0},
		Order:         Order{ID: id, Status: StatusPending},
	}
}

// ApplyEvent mutates the aggregate state based on the event.
func (a *OrderAggregate) ApplyEvent(e Event) error {
	switch e := e.(type) {
	case OrderPlaced:
		a.Order.Reference = e.Reference
		a.Order.UserID = e.UserID
		a.Order.Items = e.Items
		a.Order.Total = e.TotalPrice
		a.Order.Status = StatusPending
		if a.Order.CreatedAt.IsZero() {
			a.Order.CreatedAt = e.PlacedAt
		}
	case OrderStatusChanged:
		if a.Version == 0 {
			return fmt.Errorf("status change before order was placed: %s", a.ID)
		}
		a.Order.Status = e.To
		changed := e.ChangedAt
		a.Order.UpdatedAt = &changed
	default:
		return fmt.Errorf("unknown event type for OrderAggregate: %s", e.EventType())
	}
	a.Version++
	return nil
}

// Rehydrate rebuilds the aggregate from a list of records.
func (a *OrderAggregate) Rehydrate(records []EventStoreRecord) error {
	for _, rec := range records {
		var err error
		switch rec.EventType {
		case "OrderPlaced":
			var e OrderPlaced
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		case "OrderStatusChanged":
			var e OrderStatusChanged
			if err = json.Unmarshal(rec.Payload, &e); err == nil {
				err = a.ApplyEvent(e)
			}
		default:
			return fmt.Errorf("unknown event type in stream: %s", rec.EventType)
		}
		if err != nil {
			return fmt.Errorf("failed to apply event from stream: %w", err)
		}
	}
	return nil
}
