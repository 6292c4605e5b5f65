package service

import (
	"context"
	"testing"

	"github.com/sakif/stockbook/internal/model"
)

func TestDashboardStats(t *testing.T) {
	fs := newFakeStore()
	fs.products.items = []model.Product{
		{ID: "1", Quantity: 2, Price: 0.1},
		{ID: "2", Quantity: 10, Price: 19.99},
		{ID: "3", Quantity: 5, Price: 1},
	}
	fs.categories.items = []model.Category{{ID: "c1", Name: "Tools"}, {ID: "c2", Name: "Paint"}}
	svc := NewDashboardService(fs.Store, 0, testLogger())

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	want := model.DashboardStats{
		TotalProducts:     3,
		TotalStock:        17,
		TotalValue:        205.1,
		LowStockItems:     1, // quantity 5 is not below 5
		CategoriesCount:   2,
		LowStockThreshold: 5,
	}
	if *stats != want {
		t.Errorf("Stats() = %+v, want %+v", *stats, want)
	}
}

func TestDashboardLowStock(t *testing.T) {
	fs := newFakeStore()
	fs.products.items = []model.Product{
		{ID: "1", Quantity: 0},
		{ID: "2", Quantity: 4},
		{ID: "3", Quantity: 9},
	}
	svc := NewDashboardService(fs.Store, 5, testLogger())

	low, err := svc.LowStock(context.Background(), 0)
	if err != nil {
		t.Fatalf("LowStock() error = %v", err)
	}
	if len(low) != 2 {
		t.Errorf("default threshold: got %d products, want 2", len(low))
	}

	low, _ = svc.LowStock(context.Background(), 10)
	if len(low) != 3 {
		t.Errorf("threshold 10: got %d products, want 3", len(low))
	}

	fs.products.items = nil
	low, _ = svc.LowStock(context.Background(), 0)
	if low == nil || len(low) != 0 {
		t.Errorf("empty store: got %v, want empty non-nil slice", low)
	}
}
