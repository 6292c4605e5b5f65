package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/repository"
)

// DashboardService computes read-only inventory summaries.
type DashboardService struct {
	store     *repository.Store
	threshold int
	logger    *slog.Logger
}

func NewDashboardService(store *repository.Store, threshold int, logger *slog.Logger) *DashboardService {
	if threshold <= 0 {
		threshold = model.DefaultLowStockThreshold
	}
	return &DashboardService{store: store, threshold: threshold, logger: logger}
}

func (s *DashboardService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	products, err := s.store.Products.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/dashboard: loading products: %w", err)
	}
	categories, err := s.store.Categories.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/dashboard: loading categories: %w", err)
	}

	stats := &model.DashboardStats{
		TotalProducts:     len(products),
		CategoriesCount:   len(categories),
		LowStockThreshold: s.threshold,
	}
	value := decimal.Zero
	for _, p := range products {
		stats.TotalStock += p.Quantity
		value = value.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Quantity))))
		if p.IsLowStock(s.threshold) {
			stats.LowStockItems++
		}
	}
	stats.TotalValue = value.InexactFloat64()

	s.logger.Debug("dashboard stats computed", slog.Int("products", stats.TotalProducts))
	return stats, nil
}

// LowStock lists products whose quantity is below threshold.
// threshold <= 0 uses the default.
func (s *DashboardService) LowStock(ctx context.Context, threshold int) ([]model.Product, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	products, err := s.store.Products.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/dashboard: loading products: %w", err)
	}

	low := make([]model.Product, 0)
	for _, p := range products {
		if p.IsLowStock(threshold) {
			low = append(low, p)
		}
	}
	return low, nil
}
