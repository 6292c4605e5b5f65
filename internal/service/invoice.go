package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sakif/stockbook/internal/apperror"
	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/repository"
)

// maxInvoiceIDAttempts bounds the search for a free daily invoice number.
const maxInvoiceIDAttempts = 20

var vatRate = decimal.NewFromFloat(model.VATRate)

// InvoiceService creates invoices and deducts the invoiced stock.
type InvoiceService struct {
	store  *repository.Store
	logger *slog.Logger
	now    func() time.Time
	suffix func() int // random number in [0, 9999]
}

func NewInvoiceService(store *repository.Store, logger *slog.Logger) *InvoiceService {
	return &InvoiceService{
		store:  store,
		logger: logger,
		now:    time.Now,
		suffix: func() int { return rand.IntN(10000) },
	}
}

// List returns every invoice in stored order.
func (s *InvoiceService) List(ctx context.Context) ([]model.Invoice, error) {
	invoices, err := s.store.Invoices.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/invoice: loading invoices: %w", err)
	}
	return invoices, nil
}

func (s *InvoiceService) GetByID(ctx context.Context, id string) (*model.Invoice, error) {
	id = strings.TrimSpace(id)
	invoices, err := s.store.Invoices.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/invoice: loading invoices: %w", err)
	}
	i := slices.IndexFunc(invoices, func(inv model.Invoice) bool { return inv.ID == id })
	if i < 0 {
		return nil, apperror.NotFound("invoice", id)
	}
	inv := invoices[i]
	return &inv, nil
}

// Create builds an invoice from lines and deducts their quantities from
// stock. Lines are applied in order to a working copy of the product list,
// so several lines for the same product draw on the same remaining stock.
// Nothing is written unless every line is valid.
func (s *InvoiceService) Create(ctx context.Context, customerName string, lines []model.InvoiceLine) (*model.Invoice, error) {
	customerName = strings.TrimSpace(customerName)
	if customerName == "" || len(lines) == 0 {
		return nil, apperror.ValidationFailed("", "customer name and at least one item are required")
	}
	for i, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return nil, apperror.ValidationFailed("items", fmt.Sprintf("item %d: productId is required", i+1))
		}
		if line.Quantity < 1 {
			return nil, apperror.ValidationFailed("items", fmt.Sprintf("item %d: quantity must be at least 1", i+1))
		}
	}

	var invoice model.Invoice
	err := s.store.Exclusive(func() error {
		products, err := s.store.Products.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading products: %w", err)
		}

		working := slices.Clone(products)
		items := make([]model.InvoiceItem, 0, len(lines))
		totalHT := decimal.Zero

		for _, line := range lines {
			id := strings.TrimSpace(line.ProductID)
			i := indexProduct(working, id)
			if i < 0 {
				return apperror.ValidationFailed("items", fmt.Sprintf("product not found: %s", id))
			}
			p := &working[i]
			if line.Quantity > p.Quantity {
				return apperror.ValidationFailed("items",
					fmt.Sprintf("insufficient stock for %s: %d available, %d requested", p.Name, p.Quantity, line.Quantity))
			}

			subTotal := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(line.Quantity)))
			items = append(items, model.InvoiceItem{
				ProductID: p.ID,
				Name:      p.Name,
				Category:  p.Category,
				UnitPrice: p.Price,
				Quantity:  line.Quantity,
				SubTotal:  subTotal.InexactFloat64(),
			})
			totalHT = totalHT.Add(subTotal)
			p.Quantity -= line.Quantity
		}

		invoices, err := s.store.Invoices.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading invoices: %w", err)
		}

		now := s.now()
		id, err := s.nextInvoiceID(now, invoices)
		if err != nil {
			return err
		}

		tva := totalHT.Mul(vatRate)
		invoice = model.Invoice{
			ID:           id,
			CustomerName: customerName,
			Date:         now.UTC(),
			Items:        items,
			TotalHT:      totalHT.InexactFloat64(),
			TVA:          tva.InexactFloat64(),
			TotalTTC:     totalHT.Add(tva).InexactFloat64(),
			CreatedAt:    now.UTC(),
		}

		// Past this point the two writes must both land or both be undone,
		// so a client hanging up can no longer cancel them.
		if err := ctx.Err(); err != nil {
			return err
		}
		wctx := context.WithoutCancel(ctx)

		if err := s.store.Invoices.Save(wctx, append(slices.Clone(invoices), invoice)); err != nil {
			return fmt.Errorf("saving invoices: %w", err)
		}
		if err := s.store.Products.Save(wctx, working); err != nil {
			// Put the invoice list back so stock and invoices stay consistent.
			if rbErr := s.store.Invoices.Save(wctx, invoices); rbErr != nil {
				s.logger.Error("failed to roll back invoice",
					slog.String("id", id),
					slog.String("error", rbErr.Error()),
				)
			}
			return fmt.Errorf("saving products: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("service/invoice", err)
	}

	s.logger.Info("invoice created",
		slog.String("id", invoice.ID),
		slog.String("customer", invoice.CustomerName),
		slog.Int("items", len(invoice.Items)),
		slog.Float64("totalTTC", invoice.TotalTTC),
	)
	return &invoice, nil
}

// nextInvoiceID returns an unused id of the form FAC-YYYYMMDDNNNN.
func (s *InvoiceService) nextInvoiceID(now time.Time, existing []model.Invoice) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, inv := range existing {
		taken[inv.ID] = struct{}{}
	}

	prefix := model.InvoiceIDPrefix + now.Format("20060102")
	for range maxInvoiceIDAttempts {
		id := fmt.Sprintf("%s%04d", prefix, s.suffix())
		if _, ok := taken[id]; !ok {
			return id, nil
		}
	}
	return "", apperror.Conflict("could not allocate a free invoice number, try again")
}
