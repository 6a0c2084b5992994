package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/core/pricing"
)

var errStorageDown = errors.New("storage down")

// Mock KVStore
type mockKV struct {
	mu      sync.Mutex
	data    map[string]string
	failSet bool
	failGet bool
	sets    int
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string]string)}
}

func (m *mockKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, errStorageDown
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errStorageDown
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockKV) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockKV) value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// Mock CatalogClient
type mockCatalog struct {
	mu       sync.Mutex
	products map[int]domain.ResolvedProduct
	failing  map[int]error
	block    chan struct{}
	calls    atomic.Int32
}

func newMockCatalog(products ...domain.ResolvedProduct) *mockCatalog {
	m := &mockCatalog{
		products: make(map[int]domain.ResolvedProduct),
		failing:  make(map[int]error),
	}
	for _, p := range products {
		m.products[p.ProductID] = p
	}
	return m
}

func (m *mockCatalog) GetProduct(ctx context.Context, productID int) (domain.ResolvedProduct, error) {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return domain.ResolvedProduct{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failing[productID]; ok {
		return domain.ResolvedProduct{}, err
	}
	p, ok := m.products[productID]
	if !ok {
		return domain.ResolvedProduct{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) ListProducts(ctx context.Context) ([]domain.ResolvedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ResolvedProduct, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCatalog) ListCategories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, p := range m.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out, nil
}

func (m *mockCatalog) fail(productID int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[productID] = err
}

func (m *mockCatalog) heal(productID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failing, productID)
}

// Mock PaymentProcessor
type mockPayment struct {
	approve bool
	err     error
	// entered is signalled when Process starts, release lets it return
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
	last    domain.PaymentRequest
}

func (m *mockPayment) Process(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResult, error) {
	m.calls.Add(1)
	m.last = req
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return domain.PaymentResult{}, m.err
	}
	if !m.approve {
		return domain.PaymentResult{Approved: false, Reason: "card declined"}, nil
	}
	return domain.PaymentResult{Approved: true, Reference: "pay-" + req.OrderID}, nil
}

func testProduct(id int, price string, title string) domain.ResolvedProduct {
	return domain.ResolvedProduct{
		ProductID: id,
		Title:     title,
		UnitPrice: decimal.RequireFromString(price),
		Category:  "electronics",
		Rating:    domain.Rating{Average: 4.5, Count: 120},
	}
}

type checkoutFixture struct {
	kv         *mockKV
	catalog    *mockCatalog
	payment    *mockPayment
	cart       *CartStore
	reconciler *Reconciler
}

func newCheckoutFixture(approve bool, products ...domain.ResolvedProduct) *checkoutFixture {
	f := &checkoutFixture{
		kv:      newMockKV(),
		catalog: newMockCatalog(products...),
		payment: &mockPayment{approve: approve},
	}
	logger := zap.NewNop()
	f.cart = RestoreCartStore(context.Background(), f.kv, "s1", logger)
	f.reconciler = NewReconciler("s1", ReconcilerDeps{
		Cart:     f.cart,
		Resolver: NewResolver(f.catalog, 0, 4, logger),
		Engine:   pricing.NewEngine(pricing.DefaultConfig()),
		Payment:  f.payment,
		Logger:   logger,
	})
	return f
}
