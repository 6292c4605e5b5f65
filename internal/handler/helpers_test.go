package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/stockbook/internal/auth"
	"github.com/sakif/stockbook/internal/handler"
	"github.com/sakif/stockbook/internal/repository"
	"github.com/sakif/stockbook/internal/repository/jsonfile"
	"github.com/sakif/stockbook/internal/service"
)

// fixture holds handlers backed by a JSON store in a temp directory.
type fixture struct {
	store      *repository.Store
	products   *handler.ProductHandler
	categories *handler.CategoryHandler
	users      *handler.UserHandler
	invoices   *handler.InvoiceHandler
	dashboard  *handler.DashboardHandler
}

func newFixture(t *testing.T, tokens *auth.TokenService) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := jsonfile.New(t.TempDir(), logger)
	require.NoError(t, err)

	products := service.NewProductService(store, 5, logger)
	dashboard := service.NewDashboardService(store, 5, logger)
	users := service.NewUserService(store, auth.NewPasswordServiceForTest(bcrypt.MinCost), tokens, logger)

	return &fixture{
		store:      store,
		products:   handler.NewProductHandler(products, dashboard, logger),
		categories: handler.NewCategoryHandler(service.NewCategoryService(store, logger), logger),
		users:      handler.NewUserHandler(users, 0, logger),
		invoices:   handler.NewInvoiceHandler(service.NewInvoiceService(store, logger), logger),
		dashboard:  handler.NewDashboardHandler(dashboard, logger),
	}
}

// do runs h against a request built from method, target and body. pathID,
// when set, is exposed as the {id} path value.
func do(h http.HandlerFunc, method, target, body, pathID string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if pathID != "" {
		req.SetPathValue("id", pathID)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
}
