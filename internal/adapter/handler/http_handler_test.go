package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/shopzone/internal/adapter/storage"
	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/core/pricing"
	"github.com/rl1809/shopzone/internal/core/service"
)

type fakeCatalog struct {
	products map[int]domain.ResolvedProduct
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id int) (domain.ResolvedProduct, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.ResolvedProduct{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) ListProducts(ctx context.Context) ([]domain.ResolvedProduct, error) {
	out := make([]domain.ResolvedProduct, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) ListCategories(ctx context.Context) ([]string, error) {
	return []string{"electronics", "men's clothing"}, nil
}

type fakePayment struct {
	approve atomic.Bool
	calls   atomic.Int32
}

func (f *fakePayment) Process(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResult, error) {
	f.calls.Add(1)
	if !f.approve.Load() {
		return domain.PaymentResult{Reason: "declined"}, nil
	}
	return domain.PaymentResult{Approved: true, Reference: "ref-1"}, nil
}

type testServer struct {
	echo    *echo.Echo
	redis   *miniredis.Miniredis
	payment *fakePayment
}

func newTestServer(t *testing.T) *testServer {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	catalog := &fakeCatalog{products: map[int]domain.ResolvedProduct{
		1: {ProductID: 1, Title: "Backpack", Category: "men's clothing", UnitPrice: decimal.RequireFromString("10.00"), Rating: domain.Rating{Average: 3.9, Count: 120}},
		2: {ProductID: 2, Title: "Monitor", Category: "electronics", UnitPrice: decimal.RequireFromString("999.99")},
	}}
	payment := &fakePayment{}
	payment.approve.Store(true)

	logger := zap.NewNop()
	resolver := service.NewResolver(catalog, time.Second, 2, logger)
	sessions := service.NewSessions(service.SessionDeps{
		KV:       storage.NewRedisAdapter(client, 0),
		Resolver: resolver,
		Engine:   pricing.NewEngine(pricing.DefaultConfig()),
		Payment:  payment,
		Logger:   logger,
	})

	e := echo.New()
	NewHTTPHandler(sessions, service.NewCatalogService(catalog, resolver), nil, logger).RegisterRoutes(e)
	return &testServer{echo: e, redis: mr, payment: payment}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCartLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/sessions/s1/cart/items", `{"product_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/sessions/s1/cart/items", `{"product_id":1,"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[service.CartView](t, rec)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, "$20.00", cart.Lines[0].LineTotal)
	assert.Equal(t, "$27.59", cart.Summary.Total)

	stored, err := srv.redis.Get("shopzone_cart:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"quantity":2}]`, stored)

	rec = srv.do(t, http.MethodPut, "/api/sessions/s1/cart/items/1", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decode[service.CartView](t, rec).ItemCount)

	rec = srv.do(t, http.MethodDelete, "/api/sessions/s1/cart/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[service.CartView](t, rec).Lines)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/sessions/s1/cart/items", `{"product_id":1,"quantity":0}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_quantity", decode[ErrorResponse](t, rec).Code)
}

func TestInvalidSession(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/sessions/bad%20id/cart", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_session", decode[ErrorResponse](t, rec).Code)
}

func TestCheckout_EmptyCart(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/sessions/s1/checkout", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "empty_cart", decode[ErrorResponse](t, rec).Code)
	assert.Equal(t, int32(0), srv.payment.calls.Load())
}

func TestCheckout_Success(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/api/sessions/s1/cart/items", `{"product_id":1,"quantity":2}`)

	rec := srv.do(t, http.MethodPost, "/api/sessions/s1/checkout", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[OrderResponse](t, rec)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "$27.59", order.Cart.Summary.Total)
	assert.Equal(t, "ref-1", order.PaymentReference)

	stored, err := srv.redis.Get("shopzone_cart:s1")
	require.NoError(t, err)
	assert.Equal(t, "[]", stored)

	rec = srv.do(t, http.MethodGet, "/api/sessions/s1/checkout", "")
	status := decode[CheckoutStatusResponse](t, rec)
	assert.Equal(t, domain.CheckoutSettled, status.State)
	require.NotNil(t, status.LastOrder)
	assert.Equal(t, order.ID, status.LastOrder.ID)
}

func TestCheckout_Declined(t *testing.T) {
	srv := newTestServer(t)
	srv.payment.approve.Store(false)
	srv.do(t, http.MethodPost, "/api/sessions/s1/cart/items", `{"product_id":1,"quantity":2}`)

	rec := srv.do(t, http.MethodPost, "/api/sessions/s1/checkout", "")

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	stored, err := srv.redis.Get("shopzone_cart:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"quantity":2}]`, stored)
}

func TestCheckout_UnresolvedLines(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/api/sessions/s1/cart/items", `{"product_id":42}`)

	rec := srv.do(t, http.MethodPost, "/api/sessions/s1/checkout", "")

	assert.Equal(t, http.StatusFailedDependency, rec.Code)
	assert.Equal(t, "unresolved_lines", decode[ErrorResponse](t, rec).Code)
}

func TestFavorites(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/sessions/s1/favorites/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, FavoriteResponse{ProductID: 2, Favorite: true}, decode[FavoriteResponse](t, rec))

	rec = srv.do(t, http.MethodGet, "/api/sessions/s1/favorites", "")
	assert.JSONEq(t, `{"product_ids":[2]}`, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/sessions/s1/favorites/2", "")
	assert.False(t, decode[FavoriteResponse](t, rec).Favorite)
}

func TestProducts(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/products?sort=price-high", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[service.ProductList](t, rec)
	require.Len(t, list.Products, 2)
	assert.Equal(t, 2, list.Products[0].ProductID)

	rec = srv.do(t, http.MethodGet, "/api/products/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Men's Clothing")

	rec = srv.do(t, http.MethodGet, "/api/products/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/products/77", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductSearch(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/products?q=monitor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[service.ProductList](t, rec)
	require.Len(t, list.Products, 1)
	assert.Equal(t, 2, list.Products[0].ProductID)

	rec = srv.do(t, http.MethodGet, "/api/products?page=9223372036854775807", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[service.ProductList](t, rec).Products, 2)
}

func TestClearCart(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/api/sessions/s1/cart/items", `{"product_id":1,"quantity":2}`)
	srv.do(t, http.MethodPost, "/api/sessions/s1/cart/items", `{"product_id":2}`)

	rec := srv.do(t, http.MethodDelete, "/api/sessions/s1/cart", "")

	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[service.CartView](t, rec)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0, cart.ItemCount)
	stored, err := srv.redis.Get("shopzone_cart:s1")
	require.NoError(t, err)
	assert.Equal(t, "[]", stored)
}
