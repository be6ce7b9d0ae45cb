// Package memory provides process-local implementations of the repository
// interfaces. Every store is owned by the value returned from its constructor.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
)

// productEntry guards a single product so reservations against different
// products never contend.
type productEntry struct {
	mu      sync.Mutex
	p       entity.Product
	removed bool
}

type catalog struct {
	mu       sync.RWMutex
	products map[string]*productEntry
}

// NewCatalog creates an empty in-memory Catalog.
func NewCatalog() repository.Catalog {
	return &catalog{products: make(map[string]*productEntry)}
}

func (c *catalog) entry(id string) (*productEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.products[id]
	return e, ok
}

func (c *catalog) Lookup(_ context.Context, id string) (entity.Product, error) {
	e, ok := c.entry(id)
	if !ok {
		return entity.Product{}, &entity.ProductNotFoundError{ProductID: id}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return entity.Product{}, &entity.ProductNotFoundError{ProductID: id}
	}
	return e.p, nil
}

// lockAll locks the entries of ids in the given (sorted) order. Unknown ids are
// left out of the result. The returned func unlocks everything.
func (c *catalog) lockAll(ids []string) (map[string]*productEntry, func()) {
	c.mu.RLock()
	entries := make(map[string]*productEntry, len(ids))
	for _, id := range ids {
		if e, ok := c.products[id]; ok {
			entries[id] = e
		}
	}
	c.mu.RUnlock()

	locked := make([]*productEntry, 0, len(entries))
	for _, id := range ids {
		if e, ok := entries[id]; ok {
			e.mu.Lock()
			locked = append(locked, e)
		}
	}
	return entries, func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}
}

func stockOf(entries map[string]*productEntry) func(string) (int, bool) {
	return func(id string) (int, bool) {
		e, ok := entries[id]
		if !ok || e.removed {
			return 0, false
		}
		return e.p.Stock, true
	}
}

func (c *catalog) ReserveAll(_ context.Context, lines []entity.LineRequest) ([]entity.Product, error) {
	r, err := entity.NewReservation(lines)
	if err != nil {
		return nil, err
	}
	entries, unlock := c.lockAll(r.IDs)
	defer unlock()

	if err := r.Check(lines, stockOf(entries)); err != nil {
		return nil, err
	}
	snapshots := make([]entity.Product, len(lines))
	for i, l := range lines {
		snapshots[i] = entries[l.ProductID].p
	}
	for id, qty := range r.Totals {
		entries[id].p.Stock -= qty
	}
	return snapshots, nil
}

func (c *catalog) ReleaseAll(_ context.Context, lines []entity.LineRequest) error {
	r, err := entity.NewReservation(lines)
	if err != nil {
		return err
	}
	entries, unlock := c.lockAll(r.IDs)
	defer unlock()

	stock := stockOf(entries)
	for _, id := range r.IDs {
		if _, ok := stock(id); !ok {
			return &entity.ProductNotFoundError{ProductID: id}
		}
	}
	for id, qty := range r.Totals {
		entries[id].p.Stock += qty
	}
	return nil
}

func (c *catalog) Create(_ context.Context, product entity.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.products[product.ID]; exists {
		return fmt.Errorf("product %s already exists: %w", product.ID, entity.ErrConflict)
	}
	c.products[product.ID] = &productEntry{p: product}
	return nil
}

func (c *catalog) FindAll(_ context.Context) ([]entity.Product, error) {
	c.mu.RLock()
	entries := make([]*productEntry, 0, len(c.products))
	for _, e := range c.products {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	products := make([]entity.Product, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			products = append(products, e.p)
		}
		e.mu.Unlock()
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

func (c *catalog) Update(_ context.Context, id string, upd entity.ProductUpdate) (entity.Product, error) {
	e, ok := c.entry(id)
	if !ok {
		return entity.Product{}, &entity.ProductNotFoundError{ProductID: id}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return entity.Product{}, &entity.ProductNotFoundError{ProductID: id}
	}
	upd.Apply(&e.p)
	now := time.Now()
	e.p.UpdatedAt = &now
	return e.p, nil
}

func (c *catalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	e, ok := c.products[id]
	delete(c.products, id)
	c.mu.Unlock()
	if !ok {
		return &entity.ProductNotFoundError{ProductID: id}
	}
	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return nil
}
