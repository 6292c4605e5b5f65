package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/stockbook/internal/apperror"
	"github.com/sakif/stockbook/internal/service"
)

// ProductHandler serves /api/products.
type ProductHandler struct {
	products  *service.ProductService
	dashboard *service.DashboardService
	logger    *slog.Logger
}

func NewProductHandler(products *service.ProductService, dashboard *service.DashboardService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{products: products, dashboard: dashboard, logger: logger}
}

// productRequest is the create/update body. Pointer fields distinguish
// "absent or null" from zero.
type productRequest struct {
	Name     *string     `json:"name"`
	Category *string     `json:"category"`
	Quantity *flexNumber `json:"quantity"`
	Price    *flexNumber `json:"price"`
}

func (p productRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:     p.Name,
		Category: p.Category,
		Quantity: p.Quantity.float(),
		Price:    p.Price.float(),
	}
}

// HandleList returns the catalogue.
//
// HTTP: GET /api/products?q=&category=&lowStock=true&threshold=
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	threshold, err := parseThreshold(q.Get("threshold"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	lowStock, _ := strconv.ParseBool(q.Get("lowStock"))

	products, err := h.products.List(r.Context(), service.ProductFilter{
		Query:     q.Get("q"),
		Category:  q.Get("category"),
		LowStock:  lowStock,
		Threshold: threshold,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// HandleLowStock lists products under the threshold.
//
// HTTP: GET /api/products/low-stock?threshold=
func (h *ProductHandler) HandleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := parseThreshold(r.URL.Query().Get("threshold"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	products, err := h.dashboard.LowStock(r.Context(), threshold)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// HTTP: GET /api/products/{id}
func (h *ProductHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCreate adds a product. It answers 200, not 201, which existing
// clients of this API expect.
//
// HTTP: POST /api/products
func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.products.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: PUT /api/products/{id}
func (h *ProductHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.products.Update(r.Context(), r.PathValue("id"), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: DELETE /api/products/{id}
func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Success: true, Deleted: p})
}

type deletedResponse struct {
	Success bool `json:"success"`
	Deleted any  `json:"deleted"`
}

// parseThreshold reads an optional positive threshold; "" means default (0).
func parseThreshold(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.ValidationFailed("threshold", "threshold must be a positive integer")
	}
	return n, nil
}
