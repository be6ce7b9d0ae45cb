package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository backed by Postgres.
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func scanUser(row rowScanner) (entity.User, error) {
	var u entity.User
	var updatedAt sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &updatedAt); err != nil {
		return entity.User{}, err
	}
	u.UpdatedAt = timePtr(updatedAt)
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (r *userRepository) Create(ctx context.Context, u entity.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, created_at) VALUES ($1, $2, $3, $4)",
		u.ID, u.Username, u.Email, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return entity.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (entity.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT id, username, email, created_at, updated_at FROM users WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.User{}, entity.ErrUserNotFound
	}
	if err != nil {
		return entity.User{}, fmt.Errorf("failed to query user %s: %w", id, err)
	}
	return u, nil
}

func (r *userRepository) FindAll(ctx context.Context) ([]entity.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, username, email, created_at, updated_at FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, id string, upd entity.UserUpdate) (entity.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET
			username = COALESCE($1, username),
			email = COALESCE($2, email),
			updated_at = $3
		WHERE id = $4
		RETURNING id, username, email, created_at, updated_at`,
		upd.Username, upd.Email, time.Now(), id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.User{}, entity.ErrUserNotFound
	}
	if isUniqueViolation(err) {
		return entity.User{}, entity.ErrUsernameTaken
	}
	if err != nil {
		return entity.User{}, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return u, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user %s: %w", id, err)
	}
	return exists, nil
}
