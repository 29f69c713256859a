package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcart "github.com/robotshop/cart/internal/application/cart"
	"github.com/robotshop/cart/internal/domain/catalog"
	"github.com/robotshop/cart/internal/domain/shared"
	"github.com/robotshop/cart/internal/infrastructure/cache"
)

// stubCatalogue serves a fixed product set without the HTTP client or the
// breaker in the way.
type stubCatalogue struct {
	products map[string]*catalog.Product
	err      error
	calls    int
}

func (s *stubCatalogue) GetProduct(_ context.Context, sku string) (*catalog.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.products[sku]; ok {
		return p, nil
	}
	return nil, shared.ErrProductNotFound
}

func newTestRouter(t *testing.T) (*gin.Engine, *cache.InMemoryCartStore, *stubCatalogue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := cache.NewInMemoryCartStore(time.Hour)
	catalogue := &stubCatalogue{
		products: map[string]*catalog.Product{
			"Watson": {SKU: "Watson", Name: "Watson", Price: decimal.NewFromFloat(10), InStock: 10},
			"K9":     {SKU: "K9", Name: "K9", Price: decimal.NewFromFloat(0.99), InStock: 0},
		},
	}
	service := appcart.NewService(store, catalogue, nil)

	engine := gin.New()
	NewCartHandler(service).RegisterRoutes(engine.Group(""))
	return engine, store, catalogue
}

func do(engine *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	engine.ServeHTTP(w, req)
	return w
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestGetCart_NotFound(t *testing.T) {
	engine, _, _ := newTestRouter(t)

	w := do(engine, http.MethodGet, "/cart/anonymous-1", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "cart not found", w.Body.String())
}

func TestAddItem_CreatesCartWithTotals(t *testing.T) {
	engine, _, _ := newTestRouter(t)

	w := do(engine, http.MethodGet, "/add/c1/Watson/2", "")

	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeCart(t, w)
	assert.InDelta(t, 20.0, payload["total"], 0.0001)
	assert.InDelta(t, 3.3333333333, payload["tax"], 0.0001)

	items := payload["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "Watson", item["sku"])
	assert.InDelta(t, 2.0, item["qty"], 0.0001)
	assert.InDelta(t, 20.0, item["subtotal"], 0.0001)
}

func TestAddItem_ThenGetReturnsSameCart(t *testing.T) {
	engine, _, _ := newTestRouter(t)

	require.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/add/c1/Watson/1", "").Code)

	w := do(engine, http.MethodGet, "/cart/c1", "")
	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeCart(t, w)
	assert.InDelta(t, 10.0, payload["total"], 0.0001)
}

func TestAddItem_QuantityNotANumber(t *testing.T) {
	engine, store, catalogue := newTestRouter(t)

	w := do(engine, http.MethodGet, "/add/c1/Watson/abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "quantity must be a number", w.Body.String())

	// A rejected request must not touch the catalogue or the store.
	assert.Zero(t, catalogue.calls)
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAddItem_QuantityTooSmall(t *testing.T) {
	engine, _, _ := newTestRouter(t)

	w := do(engine, http.MethodGet, "/add/c1/Watson/0", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "quantity has to be greater than zero", w.Body.String())
}

func TestAddItem_UnknownSKU(t *testing.T) {
	engine, _, _ := newTestRouter(t)

	w := do(engine, http.MethodGet, "/add/c1/no-such-robot/1", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "product not found", w.Body.String())
}

func TestAddItem_OutOfStock(t *testing.T) {
	engine, _, _ := newTestRouter(t)

	w := do(engine, http.MethodGet, "/add/c1/K9/1", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "out of stock", w.Body.String())
}

func TestAddItem_CatalogueDown(t *testing.T) {
	engine, _, catalogue := newTestRouter(t)
	catalogue.err = shared.ErrCatalogueUnavailable

	w := do(engine, http.MethodGet, "/add/c1/Watson/1", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "catalogue temporarily unavailable", w.Body.String())
}

func TestUpdateItem_ChangesQuantity(t *testing.T) {
	engine, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/add/c1/Watson/1", "").Code)

	w := do(engine, http.MethodGet, "/update/c1/Watson/3", "")

	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeCart(t, w)
	assert.InDelta(t, 30.0, payload["total"], 0.0001)
}

func TestUpdateItem_ZeroRemovesLine(t *testing.T) {
	engine, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/add/c1/Watson/2", "").Code)

	w := do(engine, http.MethodGet, "/update/c1/Watson/0", "")

	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeCart(t, w)
	assert.Empty(t, payload["items"])
	assert.InDelta(t, 0.0, payload["total"], 0.0001)
}

func TestUpdateItem_MissingLine(t *testing.T) {
	engine, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/add/c1/Watson/2", "").Code)

	w := do(engine, http.MethodGet, "/update/c1/K9/1", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not in cart", w.Body.String())
}

func TestUpdateItem_NegativeQuantity(t *testing.T) {
	engine, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/add/c1/Watson/2", "").Code)

	w := do(engine, http.MethodGet, "/update/c1/Watson/-1", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "negative quantity not allowed", w.Body.String())
}

func TestDeleteCart(t *testing.T) {
	engine, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/add/c1/Watson/1", "").Code)

	w := do(engine, http.MethodDelete, "/cart/c1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	assert.Equal(t, http.StatusNotFound, do(engine, http.MethodGet, "/cart/c1", "").Code)
}

func TestDeleteCart_Missing(t *testing.T) {
	engine, _, _ := newTestRouter(t)

	w := do(engine, http.MethodDelete, "/cart/ghost", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "cart not found", w.Body.String())
}

func TestRenameCart_CopiesAndKeepsSource(t *testing.T) {
	engine, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/add/anon-7/Watson/2", "").Code)

	w := do(engine, http.MethodGet, "/rename/anon-7/user-42", "")
	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeCart(t, w)
	assert.InDelta(t, 20.0, payload["total"], 0.0001)

	// Both ids resolve; the old one simply ages out.
	assert.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/cart/user-42", "").Code)
	assert.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/cart/anon-7", "").Code)
}

func TestRenameCart_MissingSource(t *testing.T) {
	engine, _, _ := newTestRouter(t)

	w := do(engine, http.MethodGet, "/rename/ghost/user-42", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "cart not found", w.Body.String())
}

func TestAddShipping(t *testing.T) {
	engine, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/add/c1/Watson/1", "").Code)

	body := `{"distance": 420.5, "cost": 4.99, "location": "Orbit City"}`
	w := do(engine, http.MethodPost, "/shipping/c1", body)

	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeCart(t, w)
	assert.InDelta(t, 14.99, payload["total"], 0.0001)

	items := payload["items"].([]interface{})
	require.Len(t, items, 2)
	ship := items[1].(map[string]interface{})
	assert.Equal(t, "SHIP", ship["sku"])
	assert.Equal(t, "shipping to Orbit City", ship["name"])
}

func TestAddShipping_ReplacesPreviousLine(t *testing.T) {
	engine, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/add/c1/Watson/1", "").Code)
	require.Equal(t, http.StatusOK, do(engine, http.MethodPost, "/shipping/c1",
		`{"distance": 10, "cost": 4.99, "location": "near"}`).Code)

	w := do(engine, http.MethodPost, "/shipping/c1",
		`{"distance": 9000, "cost": 17.50, "location": "far"}`)

	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeCart(t, w)
	items := payload["items"].([]interface{})
	require.Len(t, items, 2)
	assert.InDelta(t, 27.5, payload["total"], 0.0001)
}

func TestAddShipping_MissingField(t *testing.T) {
	engine, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/add/c1/Watson/1", "").Code)

	w := do(engine, http.MethodPost, "/shipping/c1", `{"distance": 420.5}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "shipping data missing", w.Body.String())
}

func TestAddShipping_MissingCart(t *testing.T) {
	engine, _, _ := newTestRouter(t)

	body := `{"distance": 420.5, "cost": 4.99, "location": "Orbit City"}`
	w := do(engine, http.MethodPost, "/shipping/ghost", body)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "cart not found", w.Body.String())
}
