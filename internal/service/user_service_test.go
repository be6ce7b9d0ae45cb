package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository/memory"
)

func TestUserService(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.NewUserRepository())

	alice, err := svc.CreateUser(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	t.Run("validation", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, " ", "x@example.com")
		var vErr *entity.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "username", vErr.Field)

		_, err = svc.CreateUser(ctx, "carol", "")
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "email", vErr.Field)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, "alice", "other@example.com")
		assert.ErrorIs(t, err, entity.ErrConflict)
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := svc.Exists(ctx, alice.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("update ignores blank fields", func(t *testing.T) {
		blank := ""
		email := "alice@shop.example"
		u, err := svc.UpdateUser(ctx, alice.ID, entity.UserUpdate{Username: &blank, Email: &email})
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "alice@shop.example", u.Email)
	})

	t.Run("list and delete", func(t *testing.T) {
		users, err := svc.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)

		require.NoError(t, svc.DeleteUser(ctx, alice.ID))
		_, err = svc.GetUser(ctx, alice.ID)
		assert.ErrorIs(t, err, entity.ErrUserNotFound)
	})
}
