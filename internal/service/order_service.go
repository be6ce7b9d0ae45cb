package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/messaging"
	"github.com/egannguyen/microshop/internal/repository"
)

// UserDirectory answers whether a user exists.
type UserDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// OrderService orchestrates order placement and order lifecycle.
type OrderService struct {
	orderRepo  repository.OrderRepository
	catalog    repository.Catalog
	users      UserDirectory
	eventStore repository.EventStore
	publisher  messaging.Publisher
	now        func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	catalog repository.Catalog,
	users UserDirectory,
	eventStore repository.EventStore,
	publisher messaging.Publisher,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		catalog:    catalog,
		users:      users,
		eventStore: eventStore,
		publisher:  publisher,
		now:        time.Now,
	}
}

// PlaceOrder reserves stock for every line and records a pending order. It is
// all-or-nothing: the catalog reserves every line or none, and a failed save
// releases the reservation again.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, lines []entity.LineRequest) (entity.Order, error) {
	slog.Info("Service: Placing order", "user_id", userID, "items", len(lines))

	if len(lines) == 0 {
		return entity.Order{}, entity.ErrEmptyOrder
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return entity.Order{}, &entity.InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return entity.Order{}, fmt.Errorf("failed to check user %s: %w", userID, err)
	}
	if !exists {
		return entity.Order{}, entity.ErrUserNotFound
	}

	// 1. Resolve every product before touching stock.
	for _, line := range lines {
		if _, err := s.catalog.Lookup(ctx, line.ProductID); err != nil {
			return entity.Order{}, err
		}
	}

	// 2. Reserve every line at once; the catalog applies all or none.
	snapshots, err := s.catalog.ReserveAll(ctx, lines)
	if err != nil {
		slog.Info("Service: Order rejected", "user_id", userID, "err", err)
		return entity.Order{}, err
	}
	reserved := make([]entity.OrderLine, len(lines))
	for i, line := range lines {
		reserved[i] = entity.NewOrderLine(snapshots[i], line.Quantity)
	}

	// 3. Build and store the order.
	order := entity.NewOrder(userID, reserved, s.now())
	if err := s.orderRepo.Save(ctx, order); err != nil {
		saveErr := fmt.Errorf("failed to save order: %w", err)
		if relErr := s.release(ctx, lines); relErr != nil {
			return entity.Order{}, errors.Join(saveErr, relErr)
		}
		return entity.Order{}, saveErr
	}

	s.recordPlaced(ctx, order)
	slog.Info("Service: Order placed", "order_id", order.ID, "reference", order.Reference, "total", order.Total.String())
	return order, nil
}

// release returns reserved stock. It runs even when ctx is already cancelled.
func (s *OrderService) release(ctx context.Context, lines []entity.LineRequest) error {
	if err := s.catalog.ReleaseAll(context.WithoutCancel(ctx), lines); err != nil {
		slog.Error("Failed to release reservation", "lines", len(lines), "err", err)
		return fmt.Errorf("failed to release reserved stock: %w", err)
	}
	return nil
}

// recordPlaced appends the placement to the event store and publishes it.
// The order is already committed, so failures here are only logged.
func (s *OrderService) recordPlaced(ctx context.Context, order entity.Order) {
	placed := entity.OrderPlaced{
		OrderID:    order.ID,
		Reference:  order.Reference,
		UserID:     order.UserID,
		Items:      order.Items,
		TotalPrice: order.Total,
		PlacedAt:   order.CreatedAt,
	}

	if err := s.eventStore.SaveEvents(ctx, order.ID, entity.StreamOrder, 0, []entity.Event{placed}); err != nil {
		slog.Error("Failed to save OrderPlaced event", "order_id", order.ID, "err", err)
	}
	for _, item := range order.Items {
		reservedEvent := entity.InventoryReserved{OrderID: order.ID, ProductID: item.ProductID, Quantity: item.Quantity}
		if err := s.eventStore.SaveEvents(ctx, item.ProductID, entity.StreamInventory, entity.AnyVersion, []entity.Event{reservedEvent}); err != nil {
			slog.Error("Failed to save InventoryReserved event", "order_id", order.ID, "product_id", item.ProductID, "err", err)
		}
	}

	if err := s.publisher.PublishEvent(ctx, entity.TopicOrderPlaced, order.ID, placed); err != nil {
		slog.Error("Failed to publish OrderPlaced", "order_id", order.ID, "err", err)
	}
}

// UpdateStatus moves an order to any recognized status. Transitions between
// recognized statuses are not restricted.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status string) (entity.Order, error) {
	slog.Info("Service: Updating order status", "order_id", orderID, "status", status)

	next, err := entity.ParseOrderStatus(status)
	if err != nil {
		return entity.Order{}, err
	}

	order, prev, err := s.orderRepo.UpdateStatus(ctx, orderID, next)
	if err != nil {
		return entity.Order{}, err
	}

	changedAt := s.now()
	if order.UpdatedAt != nil {
		changedAt = *order.UpdatedAt
	}
	changed := entity.OrderStatusChanged{
		OrderID:   order.ID,
		UserID:    order.UserID,
		From:      prev,
		To:        next,
		ChangedAt: changedAt,
	}
	if err := s.eventStore.SaveEvents(ctx, order.ID, entity.StreamOrder, entity.AnyVersion, []entity.Event{changed}); err != nil {
		slog.Error("Failed to save OrderStatusChanged event", "order_id", order.ID, "err", err)
	}
	if err := s.publisher.PublishEvent(ctx, entity.TopicOrderStatusChanged, order.ID, changed); err != nil {
		slog.Error("Failed to publish OrderStatusChanged", "order_id", order.ID, "err", err)
	}

	return order, nil
}

// GetOrder returns a single order.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (entity.Order, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

// ListOrders returns orders newest first, restricted to userID when it is set.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]entity.Order, error) {
	return s.orderRepo.FindAll(ctx, userID)
}

// OrderHistory is an order rebuilt from its event stream.
type OrderHistory struct {
	Order   entity.Order              `json:"order"`
	Version int                       `json:"version"`
	Events  []entity.EventStoreRecord `json:"events"`
}

// History replays the order's event stream.
func (s *OrderService) History(ctx context.Context, orderID string) (OrderHistory, error) {
	records, err := s.eventStore.LoadEvents(ctx, orderID)
	if err != nil {
		return OrderHistory{}, fmt.Errorf("failed to load order history: %w", err)
	}
	if len(records) == 0 {
		order, err := s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return OrderHistory{}, err
		}
		return OrderHistory{Order: order, Events: []entity.EventStoreRecord{}}, nil
	}

	aggregate := entity.NewOrderAggregate(orderID)
	if err := aggregate.Rehydrate(records); err != nil {
		return OrderHistory{}, fmt.Errorf("failed to rehydrate order aggregate: %w", err)
	}
	return OrderHistory{Order: aggregate.Order, Version: aggregate.GetVersion(), Events: records}, nil
}
