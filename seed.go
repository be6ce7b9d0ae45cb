package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
)

// seedData fills empty stores with demo users and products.
func seedData(ctx context.Context, users repository.UserRepository, catalog repository.Catalog) error {
	existingProducts, err := catalog.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if len(existingProducts) == 0 {
		now := time.Now()
		products := []entity.Product{
			{ID: "prod-001", Name: "Wireless Noise-Cancelling Headphones", Description: "Premium over-ear headphones with active noise cancellation and 30-hour battery life.", Price: decimal.RequireFromString("349.99"), Category: "Electronics", Stock: 50},
			{ID: "prod-002", Name: "Mechanical Keyboard RGB", Description: "Cherry MX switches with per-key RGB lighting and aluminum frame.", Price: decimal.RequireFromString("179.99"), Category: "Electronics", Stock: 120},
			{ID: "prod-003", Name: "Ultrawide Curved Monitor 34\"", Description: "UWQHD 3440x1440 144Hz IPS panel with USB-C connectivity.", Price: decimal.RequireFromString("699.99"), Category: "Electronics", Stock: 30},
			{ID: "prod-004", Name: "Ergonomic Office Chair", Description: "Adjustable lumbar support, breathable mesh, and 4D armrests.", Price: decimal.RequireFromString("549.99"), Category: "Furniture", Stock: 25},
			{ID: "prod-005", Name: "Smart LED Desk Lamp", Description: "Adjustable color temperature, brightness levels, and USB charging port.", Price: decimal.RequireFromString("89.99"), Category: "Home", Stock: 200},
			{ID: "prod-006", Name: "Premium Laptop Backpack", Description: "Water-resistant 17\" laptop compartment with anti-theft design.", Price: decimal.RequireFromString("129.99"), Category: "Accessories", Stock: 80},
		}
		for _, p := range products {
			p.CreatedAt = now
			if err := catalog.Create(ctx, p); err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
			}
		}
		slog.Info("Seeded products", "count", len(products))
	}

	existingUsers, err := users.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if len(existingUsers) == 0 {
		now := time.Now()
		demo := []entity.User{
			{ID: "user-001", Username: "alice", Email: "alice@example.com"},
			{ID: "user-002", Username: "bob", Email: "bob@example.com"},
		}
		for _, u := range demo {
			u.CreatedAt = now
			if err := users.Create(ctx, u); err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.ID, err)
			}
		}
		slog.Info("Seeded users", "count", len(demo))
	}
	return nil
}
