package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
)

type userRepository struct {
	mu         sync.RWMutex
	users      map[string]entity.User
	byUsername map[string]string
}

// NewUserRepository creates an empty in-memory UserRepository.
func NewUserRepository() repository.UserRepository {
	return &userRepository{
		users:      make(map[string]entity.User),
		byUsername: make(map[string]string),
	}
}

func (r *userRepository) Create(_ context.Context, user entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, taken := r.byUsername[user.Username]; taken && owner != user.ID {
		return entity.ErrUsernameTaken
	}
	if _, exists := r.users[user.ID]; exists {
		return entity.ErrConflict
	}
	r.users[user.ID] = user
	r.byUsername[user.Username] = user.ID
	return nil
}

func (r *userRepository) FindByID(_ context.Context, id string) (entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return entity.User{}, entity.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepository) FindAll(_ context.Context) ([]entity.User, error) {
	r.mu.RLock()
	users := make([]entity.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	r.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (r *userRepository) Update(_ context.Context, id string, upd entity.UserUpdate) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return entity.User{}, entity.ErrUserNotFound
	}
	if upd.Username != nil && *upd.Username != u.Username {
		if owner, taken := r.byUsername[*upd.Username]; taken && owner != id {
			return entity.User{}, entity.ErrUsernameTaken
		}
		delete(r.byUsername, u.Username)
		u.Username = *upd.Username
		r.byUsername[u.Username] = id
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	now := time.Now()
	u.UpdatedAt = &now
	r.users[id] = u
	return u, nil
}

func (r *userRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return entity.ErrUserNotFound
	}
	delete(r.users, id)
	delete(r.byUsername, u.Username)
	return nil
}

func (r *userRepository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[id]
	return ok, nil
}
