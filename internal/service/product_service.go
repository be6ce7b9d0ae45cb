package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
)

// NewProduct is the input of ProductService.CreateProduct.
type NewProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// ProductService manages the product catalog.
type ProductService struct {
	catalog repository.Catalog
}

func NewProductService(catalog repository.Catalog) *ProductService {
	return &ProductService{catalog: catalog}
}

func validateProduct(name string, price decimal.Decimal, stock int) error {
	if strings.TrimSpace(name) == "" {
		return &entity.ValidationError{Field: "name", Reason: "is required"}
	}
	if price.IsNegative() {
		return &entity.ValidationError{Field: "price", Reason: "must be >= 0"}
	}
	if stock < 0 {
		return &entity.ValidationError{Field: "stock", Reason: "must be >= 0"}
	}
	return nil
}

// CreateProduct validates and stores a new product.
func (s *ProductService) CreateProduct(ctx context.Context, in NewProduct) (entity.Product, error) {
	if err := validateProduct(in.Name, in.Price, in.Stock); err != nil {
		return entity.Product{}, err
	}
	p := entity.Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
		Stock:       in.Stock,
		CreatedAt:   time.Now(),
	}
	if err := s.catalog.Create(ctx, p); err != nil {
		return entity.Product{}, err
	}
	slog.Info("Service: Product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

// GetProduct returns a product by id.
func (s *ProductService) GetProduct(ctx context.Context, id string) (entity.Product, error) {
	return s.catalog.Lookup(ctx, id)
}

// ListProducts returns every product ordered by name.
func (s *ProductService) ListProducts(ctx context.Context) ([]entity.Product, error) {
	return s.catalog.FindAll(ctx)
}

// ListByCategory returns the products of an exact category.
func (s *ProductService) ListByCategory(ctx context.Context, category string) ([]entity.Product, error) {
	return s.filter(ctx, func(p entity.Product) bool { return p.Category == category })
}

// Search matches query case-insensitively against name and description.
func (s *ProductService) Search(ctx context.Context, query string) ([]entity.Product, error) {
	query = strings.ToLower(query)
	return s.filter(ctx, func(p entity.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Description), query)
	})
}

func (s *ProductService) filter(ctx context.Context, keep func(entity.Product) bool) ([]entity.Product, error) {
	products, err := s.catalog.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]entity.Product, 0, len(products))
	for _, p := range products {
		if keep(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// UpdateProduct applies a partial update.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, upd entity.ProductUpdate) (entity.Product, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return entity.Product{}, &entity.ValidationError{Field: "name", Reason: "is required"}
	}
	if upd.Price != nil && upd.Price.IsNegative() {
		return entity.Product{}, &entity.ValidationError{Field: "price", Reason: "must be >= 0"}
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return entity.Product{}, &entity.ValidationError{Field: "stock", Reason: "must be >= 0"}
	}
	return s.catalog.Update(ctx, id, upd)
}

// DeleteProduct removes a product. Existing orders keep their snapshots.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	return s.catalog.Delete(ctx, id)
}

// CheckInventory reports whether the product has at least quantity units.
func (s *ProductService) CheckInventory(ctx context.Context, id string, quantity int) (bool, error) {
	p, err := s.catalog.Lookup(ctx, id)
	if err != nil {
		return false, err
	}
	return p.Stock >= quantity, nil
}
