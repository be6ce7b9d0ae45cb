package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Topics the order events are published on.
const (
	TopicOrderPlaced        = "orders.placed"
	TopicOrderStatusChanged = "orders.status"
)

// OrderPlaced is emitted when an order has been committed.
type OrderPlaced struct {
	OrderID    string          `json:"order_id"`
	Reference  string          `json:"reference"`
	UserID     string          `json:"user_id"`
	Items      []OrderLine     `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	PlacedAt   time.Time       `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderStatusChanged is emitted after a status update.
type OrderStatusChanged struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ChangedAt time.Time   `json:"changed_at"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }

// InventoryReserved is appended to a product stream for every committed order line.
type InventoryReserved struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (e InventoryReserved) EventType() string { return "InventoryReserved" }
