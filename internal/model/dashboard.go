package model

// DashboardStats summarises the inventory for the dashboard cards.
type DashboardStats struct {
	TotalProducts     int     `json:"totalProducts"`
	TotalStock        int     `json:"totalStock"`
	TotalValue        float64 `json:"totalValue"`
	LowStockItems     int     `json:"lowStockItems"`
	CategoriesCount   int     `json:"categoriesCount"`
	LowStockThreshold int     `json:"lowStockThreshold"`
}
