// Package service contains the business logic of the application.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, enforces rules, orchestrates
//	Repository      → loads and saves whole collections
//
// Services accept plain Go values, never *http.Request, and return
// apperror values that the handler layer maps to status codes.
//
// Every write follows Load → modify → Save inside Store.Exclusive so that
// concurrent requests cannot overwrite each other's changes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/stockbook/internal/apperror"
	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/repository"
)

// ProductInput carries the fields of a create or update request.
// A nil field was not provided by the caller.
type ProductInput struct {
	Name     *string
	Category *string
	Quantity *float64
	Price    *float64
}

// ProductFilter narrows List. Zero values match everything.
type ProductFilter struct {
	Query     string // case-insensitive substring of the name
	Category  string // exact, case-insensitive
	LowStock  bool
	Threshold int // used with LowStock; <= 0 means the service default
}

// ProductService manages the product catalogue.
type ProductService struct {
	store     *repository.Store
	threshold int
	logger    *slog.Logger
	now       func() time.Time
}

// NewProductService creates a ProductService. threshold is the default
// low-stock threshold; values <= 0 fall back to model.DefaultLowStockThreshold.
func NewProductService(store *repository.Store, threshold int, logger *slog.Logger) *ProductService {
	if threshold <= 0 {
		threshold = model.DefaultLowStockThreshold
	}
	return &ProductService{
		store:     store,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns the products matching filter, in stored order.
func (s *ProductService) List(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	products, err := s.store.Products.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load products", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/product: loading products: %w", err)
	}

	threshold := filter.Threshold
	if threshold <= 0 {
		threshold = s.threshold
	}
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	category := strings.TrimSpace(filter.Category)

	result := make([]model.Product, 0, len(products))
	for _, p := range products {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if filter.LowStock && !p.IsLowStock(threshold) {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

// GetByID returns the product with the given id or apperror.ErrNotFound.
func (s *ProductService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "product ID is required")
	}

	products, err := s.store.Products.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/product: loading products: %w", err)
	}

	i := indexProduct(products, id)
	if i < 0 {
		return nil, apperror.NotFound("product", id)
	}
	p := products[i]
	return &p, nil
}

// Create validates input and appends a new product. All four fields are
// required; zero is a valid quantity and price.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	if in.Name == nil || in.Category == nil || in.Quantity == nil || in.Price == nil {
		return nil, apperror.ValidationFailed("", "missing fields: name, category, quantity and price are required")
	}

	p := model.Product{}
	if err := applyProductInput(&p, in); err != nil {
		return nil, err
	}
	p.ID = xid.New().String()
	p.CreatedAt = s.now().UTC()

	err := s.store.Exclusive(func() error {
		products, err := s.store.Products.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading products: %w", err)
		}
		products = append(products, p)
		if err := s.store.Products.Save(ctx, products); err != nil {
			return fmt.Errorf("saving products: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to create product",
			slog.String("name", p.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/product: %w", err)
	}

	s.logger.Info("product created",
		slog.String("id", p.ID),
		slog.String("name", p.Name),
	)
	return &p, nil
}

// Update merges the provided fields into the stored product.
func (s *ProductService) Update(ctx context.Context, id string, in ProductInput) (*model.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "product ID is required")
	}

	var updated model.Product
	err := s.store.Exclusive(func() error {
		products, err := s.store.Products.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading products: %w", err)
		}
		i := indexProduct(products, id)
		if i < 0 {
			return apperror.NotFound("product", id)
		}

		updated = products[i]
		if err := applyProductInput(&updated, in); err != nil {
			return err
		}
		updated.ID = id // the id is never taken from the body
		products[i] = updated

		if err := s.store.Products.Save(ctx, products); err != nil {
			return fmt.Errorf("saving products: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("service/product", err)
	}

	s.logger.Info("product updated",
		slog.String("id", updated.ID),
		slog.String("name", updated.Name),
	)
	return &updated, nil
}

// Delete removes the product and returns the removed record.
func (s *ProductService) Delete(ctx context.Context, id string) (*model.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "product ID is required")
	}

	var deleted model.Product
	err := s.store.Exclusive(func() error {
		products, err := s.store.Products.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading products: %w", err)
		}
		i := indexProduct(products, id)
		if i < 0 {
			return apperror.NotFound("product", id)
		}
		deleted = products[i]
		products = slices.Delete(products, i, i+1)
		if err := s.store.Products.Save(ctx, products); err != nil {
			return fmt.Errorf("saving products: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("service/product", err)
	}

	s.logger.Info("product deleted", slog.String("id", id))
	return &deleted, nil
}

func applyProductInput(p *model.Product, in ProductInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperror.ValidationFailed("name", "product name must not be empty")
		}
		p.Name = name
	}
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if category == "" {
			return apperror.ValidationFailed("category", "product category must not be empty")
		}
		p.Category = category
	}
	if in.Quantity != nil {
		q := *in.Quantity
		if math.IsNaN(q) || math.IsInf(q, 0) || q != math.Trunc(q) {
			return apperror.ValidationFailed("quantity", "quantity must be a whole number")
		}
		if q < 0 {
			return apperror.ValidationFailed("quantity", "quantity must not be negative")
		}
		if q > math.MaxInt32 {
			return apperror.ValidationFailed("quantity", "quantity is too large")
		}
		p.Quantity = int(q)
	}
	if in.Price != nil {
		price := *in.Price
		if math.IsNaN(price) || math.IsInf(price, 0) {
			return apperror.ValidationFailed("price", "price must be a number")
		}
		if price < 0 {
			return apperror.ValidationFailed("price", "price must not be negative")
		}
		p.Price = price
	}
	return nil
}

func indexProduct(products []model.Product, id string) int {
	return slices.IndexFunc(products, func(p model.Product) bool { return p.ID == id })
}

// wrapStoreErr passes apperror values through untouched so errors.Is and
// the handler's status mapping keep working, and prefixes everything else.
func wrapStoreErr(prefix string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
