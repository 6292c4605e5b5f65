package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/sakif/stockbook/internal/apperror"
	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/repository"
	"github.com/sakif/stockbook/internal/repository/jsonfile"
)

var fixedNow = time.Date(2024, time.March, 7, 14, 30, 0, 0, time.UTC)

func newTestInvoiceService(t *testing.T, products ...model.Product) (*InvoiceService, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	fs.products.items = products
	svc := NewInvoiceService(fs.Store, testLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, fs
}

func TestInvoiceCreate_DeductsStockAndTotals(t *testing.T) {
	svc, fs := newTestInvoiceService(t,
		model.Product{ID: "w", Name: "Widget", Category: "Tools", Quantity: 10, Price: 5},
	)

	inv, err := svc.Create(context.Background(), "Acme", []model.InvoiceLine{{ProductID: "w", Quantity: 3}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if inv.TotalHT != 15 || inv.TVA != 3 || inv.TotalTTC != 18 {
		t.Errorf("totals = %v/%v/%v, want 15/3/18", inv.TotalHT, inv.TVA, inv.TotalTTC)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(inv.Items))
	}
	item := inv.Items[0]
	if item.Name != "Widget" || item.Category != "Tools" || item.UnitPrice != 5 || item.SubTotal != 15 {
		t.Errorf("item = %+v, want snapshot of Widget", item)
	}

	if got := fs.products.snapshot()[0].Quantity; got != 7 {
		t.Errorf("stock = %d, want 7", got)
	}
	stored := fs.invoices.snapshot()
	if len(stored) != 1 || stored[0].ID != inv.ID {
		t.Errorf("stored invoices = %+v", stored)
	}
}

func TestInvoiceCreate_IDFormat(t *testing.T) {
	svc, _ := newTestInvoiceService(t, model.Product{ID: "w", Name: "W", Quantity: 1, Price: 1})
	svc.suffix = func() int { return 42 }

	inv, err := svc.Create(context.Background(), "Acme", []model.InvoiceLine{{ProductID: "w", Quantity: 1}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if inv.ID != "FAC-202403070042" {
		t.Errorf("ID = %s, want FAC-202403070042", inv.ID)
	}
	if !regexp.MustCompile(`^FAC-\d{12}$`).MatchString(inv.ID) {
		t.Errorf("ID %s does not match FAC-YYYYMMDDNNNN", inv.ID)
	}
}

func TestInvoiceCreate_IDCollisionRetries(t *testing.T) {
	svc, fs := newTestInvoiceService(t, model.Product{ID: "w", Name: "W", Quantity: 5, Price: 1})
	fs.invoices.items = []model.Invoice{{ID: "FAC-202403070001"}}

	seq := []int{1, 1, 2}
	svc.suffix = func() int {
		n := seq[0]
		seq = seq[1:]
		return n
	}

	inv, err := svc.Create(context.Background(), "Acme", []model.InvoiceLine{{ProductID: "w", Quantity: 1}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if inv.ID != "FAC-202403070002" {
		t.Errorf("ID = %s, want FAC-202403070002", inv.ID)
	}
}

func TestInvoiceCreate_IDSpaceExhausted(t *testing.T) {
	svc, fs := newTestInvoiceService(t, model.Product{ID: "w", Name: "W", Quantity: 5, Price: 1})
	fs.invoices.items = []model.Invoice{{ID: "FAC-202403070007"}}
	svc.suffix = func() int { return 7 }

	_, err := svc.Create(context.Background(), "Acme", []model.InvoiceLine{{ProductID: "w", Quantity: 1}})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
	if fs.products.snapshot()[0].Quantity != 5 {
		t.Error("stock must be unchanged")
	}
}

func TestInvoiceCreate_StacksLinesForSameProduct(t *testing.T) {
	svc, fs := newTestInvoiceService(t, model.Product{ID: "w", Name: "W", Quantity: 5, Price: 2})

	// 3 + 3 exceeds the 5 in stock even though each line fits alone.
	_, err := svc.Create(context.Background(), "Acme", []model.InvoiceLine{
		{ProductID: "w", Quantity: 3},
		{ProductID: "w", Quantity: 3},
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if fs.products.saveCount() != 0 || fs.invoices.saveCount() != 0 {
		t.Error("nothing should be written")
	}

	inv, err := svc.Create(context.Background(), "Acme", []model.InvoiceLine{
		{ProductID: "w", Quantity: 2},
		{ProductID: "w", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if inv.TotalHT != 10 {
		t.Errorf("TotalHT = %v, want 10", inv.TotalHT)
	}
	if got := fs.products.snapshot()[0].Quantity; got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

func TestInvoiceCreate_RejectsWithoutWriting(t *testing.T) {
	products := []model.Product{
		{ID: "a", Name: "A", Quantity: 10, Price: 1},
		{ID: "b", Name: "B", Quantity: 1, Price: 1},
	}

	tests := []struct {
		name     string
		customer string
		lines    []model.InvoiceLine
		want     error
	}{
		{"blank customer", "  ", []model.InvoiceLine{{ProductID: "a", Quantity: 1}}, apperror.ErrValidation},
		{"no items", "Acme", nil, apperror.ErrValidation},
		{"zero quantity", "Acme", []model.InvoiceLine{{ProductID: "a", Quantity: 0}}, apperror.ErrValidation},
		{"unknown product", "Acme", []model.InvoiceLine{{ProductID: "a", Quantity: 1}, {ProductID: "zzz", Quantity: 1}}, apperror.ErrValidation},
		{"insufficient stock", "Acme", []model.InvoiceLine{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 2}}, apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, fs := newTestInvoiceService(t, products...)
			_, err := svc.Create(context.Background(), tt.customer, tt.lines)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if fs.products.saveCount() != 0 || fs.invoices.saveCount() != 0 {
				t.Error("a rejected invoice must not write anything")
			}
			if fs.products.snapshot()[0].Quantity != 10 {
				t.Error("stock changed")
			}
		})
	}
}

func TestInvoiceCreate_DecimalTotals(t *testing.T) {
	svc, _ := newTestInvoiceService(t,
		model.Product{ID: "a", Name: "A", Quantity: 10, Price: 0.1},
		model.Product{ID: "b", Name: "B", Quantity: 10, Price: 19.99},
	)

	inv, err := svc.Create(context.Background(), "Acme", []model.InvoiceLine{
		{ProductID: "a", Quantity: 3},
		{ProductID: "b", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if inv.Items[0].SubTotal != 0.3 {
		t.Errorf("SubTotal = %v, want 0.3", inv.Items[0].SubTotal)
	}
	if inv.TotalHT != 60.27 {
		t.Errorf("TotalHT = %v, want 60.27", inv.TotalHT)
	}
	if inv.TotalTTC != 72.324 {
		t.Errorf("TotalTTC = %v, want 72.324", inv.TotalTTC)
	}
}

func TestInvoiceCreate_RollsBackInvoiceWhenStockSaveFails(t *testing.T) {
	svc, fs := newTestInvoiceService(t, model.Product{ID: "w", Name: "W", Quantity: 5, Price: 1})
	fs.products.saveErr = errDiskFull

	_, err := svc.Create(context.Background(), "Acme", []model.InvoiceLine{{ProductID: "w", Quantity: 1}})
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("error = %v, want errDiskFull", err)
	}
	if n := len(fs.invoices.snapshot()); n != 0 {
		t.Errorf("invoices = %d, want 0 after rollback", n)
	}
}

func TestInvoiceCreate_ConcurrentRequestsNeverOversell(t *testing.T) {
	svc, fs := newTestInvoiceService(t, model.Product{ID: "w", Name: "W", Quantity: 5, Price: 1})
	var mu sync.Mutex
	next := 0
	svc.suffix = func() int {
		mu.Lock()
		defer mu.Unlock()
		next++
		return next
	}

	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), "Acme", []model.InvoiceLine{{ProductID: "w", Quantity: 1}})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperror.ErrValidation):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if ok != 5 || rejected != workers-5 {
		t.Errorf("ok/rejected = %d/%d, want 5/%d", ok, rejected, workers-5)
	}
	if got := fs.products.snapshot()[0].Quantity; got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
	if got := len(fs.invoices.snapshot()); got != 5 {
		t.Errorf("invoices = %d, want 5", got)
	}
}

func TestInvoiceGetByID(t *testing.T) {
	svc, fs := newTestInvoiceService(t)
	fs.invoices.items = []model.Invoice{{ID: "FAC-1"}, {ID: "FAC-2", CustomerName: "Acme"}}

	inv, err := svc.GetByID(context.Background(), "FAC-2")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if inv.CustomerName != "Acme" {
		t.Errorf("CustomerName = %q", inv.CustomerName)
	}
	if _, err := svc.GetByID(context.Background(), "FAC-3"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	all, err := svc.List(context.Background())
	if err != nil || len(all) != 2 || all[0].ID != "FAC-1" {
		t.Errorf("List() = %v, %v; want stored order", all, err)
	}
}

// cancelAfterSave cancels the request context once the wrapped collection
// has been saved, as if the client hung up between the two writes.
type cancelAfterSave[T any] struct {
	repository.Collection[T]
	cancel context.CancelFunc
}

func (c *cancelAfterSave[T]) Save(ctx context.Context, items []T) error {
	if err := c.Collection.Save(ctx, items); err != nil {
		return err
	}
	c.cancel()
	return nil
}

func TestInvoiceCreate_ClientDisconnectDuringWrites(t *testing.T) {
	store, err := jsonfile.New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("jsonfile.New() error = %v", err)
	}
	seed := []model.Product{{ID: "w", Name: "Widget", Category: "Tools", Quantity: 10, Price: 5}}
	if err := store.Products.Save(context.Background(), seed); err != nil {
		t.Fatalf("seeding products: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.Invoices = &cancelAfterSave[model.Invoice]{Collection: store.Invoices, cancel: cancel}

	svc := NewInvoiceService(store, testLogger())
	svc.now = func() time.Time { return fixedNow }

	inv, err := svc.Create(ctx, "Acme", []model.InvoiceLine{{ProductID: "w", Quantity: 3}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	invoices, err := store.Invoices.Load(context.Background())
	if err != nil {
		t.Fatalf("loading invoices: %v", err)
	}
	products, err := store.Products.Load(context.Background())
	if err != nil {
		t.Fatalf("loading products: %v", err)
	}
	if len(invoices) != 1 || invoices[0].ID != inv.ID {
		t.Errorf("invoices = %+v, want only %s", invoices, inv.ID)
	}
	if products[0].Quantity != 7 {
		t.Errorf("stock = %d, want 7", products[0].Quantity)
	}
}

func TestInvoiceCreate_CancelledBeforeWritesLeavesStore(t *testing.T) {
	svc, fs := newTestInvoiceService(t, model.Product{ID: "w", Name: "W", Quantity: 5, Price: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Create(ctx, "Acme", []model.InvoiceLine{{ProductID: "w", Quantity: 1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if fs.products.saveCount() != 0 || fs.invoices.saveCount() != 0 {
		t.Error("nothing should be written")
	}
}

func TestInvoiceCreate_TimestampsInUTC(t *testing.T) {
	svc, _ := newTestInvoiceService(t, model.Product{ID: "w", Name: "W", Quantity: 5, Price: 1})
	plus2 := time.FixedZone("UTC+2", 2*60*60)
	// 00:30 on 8 March locally is still 7 March in UTC.
	local := time.Date(2024, time.March, 8, 0, 30, 0, 0, plus2)
	svc.now = func() time.Time { return local }
	svc.suffix = func() int { return 1 }

	inv, err := svc.Create(context.Background(), "Acme", []model.InvoiceLine{{ProductID: "w", Quantity: 1}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if inv.Date.Location() != time.UTC || inv.CreatedAt.Location() != time.UTC {
		t.Errorf("Date/CreatedAt zones = %v/%v, want UTC", inv.Date.Location(), inv.CreatedAt.Location())
	}
	if !inv.Date.Equal(inv.CreatedAt) {
		t.Errorf("Date = %v, CreatedAt = %v, want the same instant", inv.Date, inv.CreatedAt)
	}
	if inv.ID != "FAC-202403080001" {
		t.Errorf("ID = %s, want the local date FAC-202403080001", inv.ID)
	}
}
