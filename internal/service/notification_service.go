package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/messaging"
)

const notificationGroup = "notifications"

// NotificationService reacts to order events published by OrderService.
type NotificationService struct {
	subscriber messaging.Subscriber

	placed        atomic.Int64
	statusChanged atomic.Int64
}

// NotificationStats counts handled events.
type NotificationStats struct {
	OrdersPlaced  int64 `json:"orders_placed"`
	StatusChanges int64 `json:"status_changes"`
}

func NewNotificationService(subscriber messaging.Subscriber) *NotificationService {
	return &NotificationService{subscriber: subscriber}
}

// Run consumes order topics until ctx is cancelled.
func (s *NotificationService) Run(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.subscriber.Consume(ctx, entity.TopicOrderStatusChanged, notificationGroup, s.HandleOrderStatusChanged)
	}()
	s.subscriber.Consume(ctx, entity.TopicOrderPlaced, notificationGroup, s.HandleOrderPlaced)
	<-done
}

func (s *NotificationService) HandleOrderPlaced(ctx context.Context, payload []byte) error {
	var event entity.OrderPlaced
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
	}
	s.placed.Add(1)
	slog.InfoContext(ctx, "Notification: order placed",
		"order_id", event.OrderID,
		"reference", event.Reference,
		"user_id", event.UserID,
		"items_count", len(event.Items),
		"total_price", event.TotalPrice.String(),
	)
	return nil
}

func (s *NotificationService) HandleOrderStatusChanged(ctx context.Context, payload []byte) error {
	var event entity.OrderStatusChanged
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal OrderStatusChanged event: %w", err)
	}
	s.statusChanged.Add(1)
	slog.InfoContext(ctx, "Notification: order status changed",
		"order_id", event.OrderID,
		"user_id", event.UserID,
		"from", event.From,
		"to", event.To,
	)
	return nil
}

func (s *NotificationService) Stats() NotificationStats {
	return NotificationStats{
		OrdersPlaced:  s.placed.Load(),
		StatusChanges: s.statusChanged.Load(),
	}
}
