package repository

import (
	"context"

	"github.com/egannguyen/microshop/internal/entity"
)

// UserRepository handles persistence for Users.
type UserRepository interface {
	// Create stores a new user. It fails with entity.ErrUsernameTaken when
	// another user already owns the username.
	Create(ctx context.Context, user entity.User) error
	FindByID(ctx context.Context, id string) (entity.User, error)
	FindAll(ctx context.Context) ([]entity.User, error)
	Update(ctx context.Context, id string, upd entity.UserUpdate) (entity.User, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

// Catalog owns Product records and is the single point of truth for stock.
type Catalog interface {
	// Lookup returns the product or a *entity.ProductNotFoundError. It never
	// mutates state.
	Lookup(ctx context.Context, id string) (entity.Product, error)
	// ReserveAll decrements stock for every line or for none. The touched
	// products stay locked until every line has been checked and applied, so
	// concurrent callers only ever observe committed stock. It returns, per
	// line, the product as it was before the decrement. Failures are
	// *entity.ProductNotFoundError or *entity.InsufficientStockError, the
	// latter carrying the total requested for that product.
	ReserveAll(ctx context.Context, lines []entity.LineRequest) ([]entity.Product, error)
	// ReleaseAll returns the quantities of lines to stock. It undoes a
	// ReserveAll and is also all-or-nothing.
	ReleaseAll(ctx context.Context, lines []entity.LineRequest) error

	Create(ctx context.Context, product entity.Product) error
	FindAll(ctx context.Context) ([]entity.Product, error)
	Update(ctx context.Context, id string, upd entity.ProductUpdate) (entity.Product, error)
	Delete(ctx context.Context, id string) error
}

// OrderRepository handles persistence for Orders.
type OrderRepository interface {
	Save(ctx context.Context, order entity.Order) error
	FindByID(ctx context.Context, id string) (entity.Order, error)
	// FindAll returns orders newest first. An empty userID matches every user.
	FindAll(ctx context.Context, userID string) ([]entity.Order, error)
	// UpdateStatus replaces the status and returns the updated order along
	// with the status it had before.
	UpdateStatus(ctx context.Context, id string, status entity.OrderStatus) (entity.Order, entity.OrderStatus, error)
}

// EventStore handles appending and loading events for an aggregate stream.
type EventStore interface {
	// SaveEvents appends events to a stream. expectedVersion must equal the
	// current stream version unless it is entity.AnyVersion.
	SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
}
