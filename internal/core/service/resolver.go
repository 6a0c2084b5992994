package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/port"
)

// Resolver looks up catalog products for cart lines. Products are cached for
// the lifetime of the resolver; failed lookups are retried on the next call.
type Resolver struct {
	catalog       port.CatalogClient
	fetchTimeout  time.Duration
	maxConcurrent int
	logger        *zap.Logger

	mu       sync.RWMutex
	products map[int]domain.ResolvedProduct
}

func NewResolver(catalog port.CatalogClient, fetchTimeout time.Duration, maxConcurrent int, logger *zap.Logger) *Resolver {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Resolver{
		catalog:       catalog,
		fetchTimeout:  fetchTimeout,
		maxConcurrent: maxConcurrent,
		logger:        logger,
		products:      make(map[int]domain.ResolvedProduct),
	}
}

// Resolve returns a snapshot of the resolved products for lines and the ids
// that could not be resolved, sorted ascending.
func (r *Resolver) Resolve(ctx context.Context, lines []domain.LineEntry) (map[int]domain.ResolvedProduct, []int) {
	var missing []int
	r.mu.RLock()
	for _, l := range lines {
		if _, ok := r.products[l.ProductID]; !ok && !slices.Contains(missing, l.ProductID) {
			missing = append(missing, l.ProductID)
		}
	}
	r.mu.RUnlock()

	if len(missing) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.maxConcurrent)
		for _, id := range missing {
			g.Go(func() error {
				product, err := r.fetch(gctx, id)
				if err != nil {
					r.logger.Warn("product unresolved",
						zap.Int("product_id", id),
						zap.Error(fmt.Errorf("%w: %w", domain.ErrCatalogFetchFailed, err)))
					return nil
				}
				r.mu.Lock()
				r.products[id] = product
				r.mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	resolved := make(map[int]domain.ResolvedProduct, len(lines))
	var unresolved []int
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range lines {
		if p, ok := r.products[l.ProductID]; ok {
			resolved[l.ProductID] = p
		} else if !slices.Contains(unresolved, l.ProductID) {
			unresolved = append(unresolved, l.ProductID)
		}
	}
	slices.Sort(unresolved)
	return resolved, unresolved
}

func (r *Resolver) fetch(ctx context.Context, id int) (domain.ResolvedProduct, error) {
	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
	}

	product, err := r.catalog.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ResolvedProduct{}, fmt.Errorf("timed out after %s: %w", r.fetchTimeout, err)
		}
		return domain.ResolvedProduct{}, err
	}
	if product.ProductID != id {
		return domain.ResolvedProduct{}, fmt.Errorf("catalog returned product %d for %d", product.ProductID, id)
	}
	return product, nil
}

// Remember seeds the cache with an already fetched product, e.g. from a
// catalog listing.
func (r *Resolver) Remember(products ...domain.ResolvedProduct) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		if _, ok := r.products[p.ProductID]; !ok {
			r.products[p.ProductID] = p
		}
	}
}
