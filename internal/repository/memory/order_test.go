package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/microshop/internal/entity"
)

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	now := time.Now()

	first := entity.NewOrder("u1", []entity.OrderLine{{ProductID: "p1", Quantity: 1}}, now)
	second := entity.NewOrder("u2", []entity.OrderLine{{ProductID: "p2", Quantity: 2}}, now)
	third := entity.NewOrder("u1", []entity.OrderLine{{ProductID: "p1", Quantity: 3}}, now)
	for _, o := range []entity.Order{first, second, third} {
		require.NoError(t, repo.Save(ctx, o))
	}

	assert.ErrorIs(t, repo.Save(ctx, first), entity.ErrConflict)

	all, err := repo.FindAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)
	assert.Equal(t, first.ID, all[2].ID)

	mine, err := repo.FindAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, third.ID, mine[0].ID)

	updated, prev, err := repo.UpdateStatus(ctx, first.ID, entity.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, prev)
	assert.Equal(t, entity.StatusShipped, updated.Status)
	assert.NotNil(t, updated.UpdatedAt)

	_, _, err = repo.UpdateStatus(ctx, "missing", entity.StatusShipped)
	assert.ErrorIs(t, err, entity.ErrOrderNotFound)
	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestOrderRepository_StoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	order := entity.NewOrder("u1", []entity.OrderLine{{ProductID: "p1", Quantity: 1}}, time.Now())
	require.NoError(t, repo.Save(ctx, order))

	order.Items[0].Quantity = 100
	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items[0].Quantity)
}
