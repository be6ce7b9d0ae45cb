package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
)

type orderRepository struct {
	mu     sync.RWMutex
	orders map[string]entity.Order
	// ids in insertion order; listing walks it backwards for newest first.
	ids []string
}

// NewOrderRepository creates an empty in-memory OrderRepository.
func NewOrderRepository() repository.OrderRepository {
	return &orderRepository{orders: make(map[string]entity.Order)}
}

func (r *orderRepository) Save(_ context.Context, order entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists: %w", order.ID, entity.ErrConflict)
	}
	r.orders[order.ID] = order.Clone()
	r.ids = append(r.ids, order.ID)
	return nil
}

func (r *orderRepository) FindByID(_ context.Context, id string) (entity.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return entity.Order{}, entity.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (r *orderRepository) FindAll(_ context.Context, userID string) ([]entity.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orders := make([]entity.Order, 0, len(r.ids))
	for i := len(r.ids) - 1; i >= 0; i-- {
		o := r.orders[r.ids[i]]
		if userID != "" && o.UserID != userID {
			continue
		}
		orders = append(orders, o.Clone())
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatus(_ context.Context, id string, status entity.OrderStatus) (entity.Order, entity.OrderStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return entity.Order{}, "", entity.ErrOrderNotFound
	}
	prev := o.Status
	o.Status = status
	now := time.Now()
	o.UpdatedAt = &now
	r.orders[id] = o
	return o.Clone(), prev, nil
}
