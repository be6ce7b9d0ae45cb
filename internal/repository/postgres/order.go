package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Save(ctx context.Context, o entity.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO orders (id, reference, user_id, total_price, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		o.ID, o.Reference, o.UserID, o.Total, string(o.Status), o.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("order %s already exists: %w", o.ID, entity.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, position, product_id, name, price, quantity) VALUES ($1, $2, $3, $4, $5, $6)",
			o.ID, i, item.ProductID, item.Name, item.UnitPrice, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanOrder(row rowScanner) (entity.Order, error) {
	var o entity.Order
	var status string
	var updatedAt sql.NullTime
	if err := row.Scan(&o.ID, &o.Reference, &o.UserID, &o.Total, &status, &o.CreatedAt, &updatedAt); err != nil {
		return entity.Order{}, err
	}
	o.Status = entity.OrderStatus(status)
	o.UpdatedAt = timePtr(updatedAt)
	return o, nil
}

const orderColumns = "id, reference, user_id, total_price, status, created_at, updated_at"

func (r *orderRepository) FindByID(ctx context.Context, id string) (entity.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, entity.ErrOrderNotFound
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("failed to query order %s: %w", id, err)
	}
	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return entity.Order{}, err
	}
	return o, nil
}

func (r *orderRepository) FindAll(ctx context.Context, userID string) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE ($1 = '' OR user_id = $1) ORDER BY created_at DESC, id",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []entity.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	// Fetch items for each order
	for i := range orders {
		if orders[i].Items, err = r.loadItems(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]entity.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT product_id, name, price, quantity FROM order_items WHERE order_id = $1 ORDER BY position",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var lines []entity.OrderLine
	for rows.Next() {
		var p entity.Product
		var quantity int
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		lines = append(lines, entity.NewOrderLine(p, quantity))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order item rows: %w", err)
	}
	return lines, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus) (entity.Order, entity.OrderStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.Order{}, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var prev string
	err = tx.QueryRowContext(ctx, "SELECT status FROM orders WHERE id = $1 FOR UPDATE", id).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, "", entity.ErrOrderNotFound
	}
	if err != nil {
		return entity.Order{}, "", fmt.Errorf("failed to lock order %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3",
		string(status), time.Now(), id,
	); err != nil {
		return entity.Order{}, "", fmt.Errorf("failed to update order status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return entity.Order{}, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	o, err := r.FindByID(ctx, id)
	if err != nil {
		return entity.Order{}, "", err
	}
	return o, entity.OrderStatus(prev), nil
}
