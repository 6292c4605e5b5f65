// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. The `json:"..."` struct tags
// fix the wire names the front end already expects, so renaming a Go field
// never changes the API.
package model

import "time"

// DefaultLowStockThreshold is the quantity below which a product is
// reported as "low stock" on the dashboard.
const DefaultLowStockThreshold = 5

// Product is one line of the inventory.
//
// Category holds the category NAME, not a category ID. It is denormalized on
// purpose: deleting or renaming a category never touches existing products.
//
// NOTE: created_at is snake_case while invoices use camelCase. Both shapes
// are consumed by the same front end, so we keep them as they are.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// IsLowStock reports whether the product is under the given threshold.
func (p Product) IsLowStock(threshold int) bool {
	return p.Quantity < threshold
}

// Category is a named product grouping managed from the categories screen.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
