package handler

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/sakif/stockbook/internal/apperror"
	"github.com/sakif/stockbook/internal/auth"
	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/service"
)

// InvoiceHandler serves /api/invoices.
type InvoiceHandler struct {
	invoices *service.InvoiceService
	logger   *slog.Logger
}

func NewInvoiceHandler(invoices *service.InvoiceService, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, logger: logger}
}

type invoiceRequest struct {
	CustomerName string `json:"customerName"`
	Items        []struct {
		ProductID string      `json:"productId"`
		Quantity  *flexNumber `json:"quantity"`
	} `json:"items"`
}

func (req invoiceRequest) lines() ([]model.InvoiceLine, error) {
	lines := make([]model.InvoiceLine, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity == nil {
			return nil, apperror.ValidationFailed("items", fmt.Sprintf("item %d: quantity is required", i+1))
		}
		q := float64(*item.Quantity)
		if q != math.Trunc(q) || q > math.MaxInt32 || q < math.MinInt32 {
			return nil, apperror.ValidationFailed("items", fmt.Sprintf("item %d: quantity must be a whole number", i+1))
		}
		lines = append(lines, model.InvoiceLine{ProductID: item.ProductID, Quantity: int(q)})
	}
	return lines, nil
}

func (h *InvoiceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.invoices.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// HandleCreate issues an invoice and deducts stock.
//
// HTTP: POST /api/invoices
// REQUEST BODY: {"customerName": "Acme", "items": [{"productId": "...", "quantity": 3}]}
func (h *InvoiceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	lines, err := req.lines()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	inv, err := h.invoices.Create(r.Context(), req.CustomerName, lines)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		h.logger.Info("invoice issued by user",
			slog.String("invoice", inv.ID),
			slog.String("userID", userID),
		)
	}
	writeJSON(w, http.StatusCreated, inv)
}
