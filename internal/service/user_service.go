package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
)

// UserService manages customers.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// CreateUser stores a new user; the username must be unique.
func (s *UserService) CreateUser(ctx context.Context, username, email string) (entity.User, error) {
	if strings.TrimSpace(username) == "" {
		return entity.User{}, &entity.ValidationError{Field: "username", Reason: "is required"}
	}
	if strings.TrimSpace(email) == "" {
		return entity.User{}, &entity.ValidationError{Field: "email", Reason: "is required"}
	}
	u := entity.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		CreatedAt: time.Now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return entity.User{}, err
	}
	slog.Info("Service: User created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (entity.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]entity.User, error) {
	return s.users.FindAll(ctx)
}

// UpdateUser changes the username and/or email. Empty values are ignored.
func (s *UserService) UpdateUser(ctx context.Context, id string, upd entity.UserUpdate) (entity.User, error) {
	if upd.Username != nil && strings.TrimSpace(*upd.Username) == "" {
		upd.Username = nil
	}
	if upd.Email != nil && strings.TrimSpace(*upd.Email) == "" {
		upd.Email = nil
	}
	return s.users.Update(ctx, id, upd)
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// Exists implements UserDirectory.
func (s *UserService) Exists(ctx context.Context, id string) (bool, error) {
	return s.users.Exists(ctx, id)
}
