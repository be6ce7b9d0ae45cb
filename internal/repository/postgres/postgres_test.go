package postgres

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/microshop/internal/entity"
)

// openTestDB connects to TEST_DATABASE_URL and skips the test when it is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := InitDB(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newProduct(stock int) entity.Product {
	return entity.Product{
		ID:        "test-" + uuid.NewString(),
		Name:      "Desk Lamp",
		Category:  "Home",
		Price:     decimal.RequireFromString("89.99"),
		Stock:     stock,
		CreatedAt: time.Now(),
	}
}

func TestCatalog_ReserveAllRelease(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	c := NewCatalog(db)
	p := newProduct(5)
	q := newProduct(0)
	require.NoError(t, c.Create(ctx, p))
	require.NoError(t, c.Create(ctx, q))
	t.Cleanup(func() {
		c.Delete(ctx, p.ID)
		c.Delete(ctx, q.ID)
	})

	snapshots, err := c.ReserveAll(ctx, []entity.LineRequest{{ProductID: p.ID, Quantity: 3}})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 5, snapshots[0].Stock)
	assert.True(t, p.Price.Equal(snapshots[0].Price))

	_, err = c.ReserveAll(ctx, []entity.LineRequest{{ProductID: p.ID, Quantity: 1}, {ProductID: q.ID, Quantity: 1}})
	var stockErr *entity.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, q.ID, stockErr.ProductID)
	got, err := c.Lookup(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock, "failed reservation must roll back every line")

	require.NoError(t, c.ReleaseAll(ctx, []entity.LineRequest{{ProductID: p.ID, Quantity: 3}}))
	got, err = c.Lookup(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	_, err = c.ReserveAll(ctx, []entity.LineRequest{{ProductID: "missing-" + uuid.NewString(), Quantity: 1}})
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.ErrorIs(t, c.ReleaseAll(ctx, []entity.LineRequest{{ProductID: "missing-" + uuid.NewString(), Quantity: 1}}), entity.ErrNotFound)
	assert.ErrorIs(t, c.Create(ctx, p), entity.ErrConflict)
}

func TestCatalog_ConcurrentReserveAll(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	c := NewCatalog(db)
	p := newProduct(5)
	q := newProduct(5)
	require.NoError(t, c.Create(ctx, p))
	require.NoError(t, c.Create(ctx, q))
	t.Cleanup(func() {
		c.Delete(ctx, p.ID)
		c.Delete(ctx, q.ID)
	})

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := []entity.LineRequest{{ProductID: p.ID, Quantity: 1}, {ProductID: q.ID, Quantity: 1}}
			if i%2 == 1 {
				order[0], order[1] = order[1], order[0]
			}
			if _, err := c.ReserveAll(ctx, order); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	for _, id := range []string{p.ID, q.ID} {
		got, err := c.Lookup(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Stock)
	}
	assert.Equal(t, 5, ok)
}

func TestUserRepository_UniqueUsername(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	name := "user-" + uuid.NewString()[:8]
	u := entity.User{ID: uuid.NewString(), Username: name, Email: "u@example.com", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, u))
	t.Cleanup(func() { repo.Delete(ctx, u.ID) })

	err := repo.Create(ctx, entity.User{ID: uuid.NewString(), Username: name, Email: "x@example.com", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, entity.ErrUsernameTaken)

	ok, err := repo.Exists(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOrderRepository_SaveAndUpdateStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewOrderRepository(db)
	p := newProduct(1)
	order := entity.NewOrder("u-"+uuid.NewString(), []entity.OrderLine{
		entity.NewOrderLine(p, 2),
		entity.NewOrderLine(entity.Product{ID: "other", Name: "Chair", Price: decimal.NewFromInt(5)}, 1),
	}, time.Now())
	require.NoError(t, repo.Save(ctx, order))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Reference, got.Reference)
	require.Len(t, got.Items, 2)
	assert.Equal(t, p.ID, got.Items[0].ProductID)
	assert.True(t, order.Total.Equal(got.Total))

	updated, prev, err := repo.UpdateStatus(ctx, order.ID, entity.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, prev)
	assert.Equal(t, entity.StatusShipped, updated.Status)

	mine, err := repo.FindAll(ctx, order.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestEventStore_Versions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewEventStore(db)
	streamID := "order-" + uuid.NewString()

	require.NoError(t, store.SaveEvents(ctx, streamID, entity.StreamOrder, 0, []entity.Event{entity.OrderPlaced{OrderID: streamID}}))
	err := store.SaveEvents(ctx, streamID, entity.StreamOrder, 0, []entity.Event{entity.OrderPlaced{OrderID: streamID}})
	assert.ErrorIs(t, err, entity.ErrConflict)
	require.NoError(t, store.SaveEvents(ctx, streamID, entity.StreamOrder, entity.AnyVersion,
		[]entity.Event{entity.OrderStatusChanged{OrderID: streamID, To: entity.StatusShipped}}))

	records, err := store.LoadEvents(ctx, streamID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[1].Version)

	agg := entity.NewOrderAggregate(streamID)
	require.NoError(t, agg.Rehydrate(records))
	assert.Equal(t, entity.StatusShipped, agg.Order.Status)
}
