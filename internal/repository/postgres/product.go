package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
)

const productColumns = "id, name, description, category, price, stock, created_at, updated_at"

type catalog struct {
	db *sql.DB
}

// NewCatalog creates a new Catalog backed by Postgres.
func NewCatalog(db *sql.DB) repository.Catalog {
	return &catalog{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (entity.Product, error) {
	var p entity.Product
	var updatedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock, &p.CreatedAt, &updatedAt); err != nil {
		return entity.Product{}, err
	}
	p.UpdatedAt = timePtr(updatedAt)
	return p, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (c *catalog) Lookup(ctx context.Context, id string) (entity.Product, error) {
	p, err := scanProduct(c.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Product{}, &entity.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to query product %s: %w", id, err)
	}
	return p, nil
}

// ReserveAll runs in one transaction. The touched rows are locked with
// SELECT ... FOR UPDATE in id order, so two placements sharing products queue
// on the same locks instead of deadlocking.
func (c *catalog) ReserveAll(ctx context.Context, lines []entity.LineRequest) ([]entity.Product, error) {
	r, err := entity.NewReservation(lines)
	if err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	products, err := lockProducts(ctx, tx, r.IDs)
	if err != nil {
		return nil, err
	}
	err = r.Check(lines, func(id string) (int, bool) {
		p, ok := products[id]
		return p.Stock, ok
	})
	if err != nil {
		return nil, err
	}

	if err := applyStock(ctx, tx, r, -1); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	snapshots := make([]entity.Product, len(lines))
	for i, l := range lines {
		snapshots[i] = products[l.ProductID]
	}
	return snapshots, nil
}

func (c *catalog) ReleaseAll(ctx context.Context, lines []entity.LineRequest) error {
	r, err := entity.NewReservation(lines)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	products, err := lockProducts(ctx, tx, r.IDs)
	if err != nil {
		return err
	}
	for _, id := range r.IDs {
		if _, ok := products[id]; !ok {
			return &entity.ProductNotFoundError{ProductID: id}
		}
	}
	if err := applyStock(ctx, tx, r, 1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit release: %w", err)
	}
	return nil
}

func lockProducts(ctx context.Context, tx *sql.Tx, ids []string) (map[string]entity.Product, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE",
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	defer rows.Close()

	products := make(map[string]entity.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locked products: %w", err)
	}
	return products, nil
}

// applyStock adds sign*total to the stock of every product in r.
func applyStock(ctx context.Context, tx *sql.Tx, r entity.Reservation, sign int) error {
	for _, id := range r.IDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock + $1 WHERE id = $2",
			sign*r.Totals[id], id,
		); err != nil {
			return fmt.Errorf("failed to update stock for product %s: %w", id, err)
		}
	}
	return nil
}

func (c *catalog) Create(ctx context.Context, p entity.Product) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO products (id, name, description, category, price, stock, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		p.ID, p.Name, p.Description, p.Category, p.Price, p.Stock, p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("product %s already exists: %w", p.ID, entity.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert product %s: %w", p.ID, err)
	}
	return nil
}

func (c *catalog) FindAll(ctx context.Context) ([]entity.Product, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return products, nil
}

func (c *catalog) Update(ctx context.Context, id string, upd entity.ProductUpdate) (entity.Product, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanProduct(tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Product{}, &entity.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to query product %s: %w", id, err)
	}

	upd.Apply(&p)
	now := time.Now()
	p.UpdatedAt = &now
	_, err = tx.ExecContext(ctx,
		"UPDATE products SET name = $1, description = $2, category = $3, price = $4, stock = $5, updated_at = $6 WHERE id = $7",
		p.Name, p.Description, p.Category, p.Price, p.Stock, now, id,
	)
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return entity.Product{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

func (c *catalog) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &entity.ProductNotFoundError{ProductID: id}
	}
	return nil
}
