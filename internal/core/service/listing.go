package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/port"
)

const DefaultPageSize = 12

type SortOrder string

const (
	SortDefault   SortOrder = "default"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortRating    SortOrder = "rating"
)

type ListQuery struct {
	Category string
	// Query matches title, description or category, case-insensitively.
	Query string
	Sort  SortOrder
	// Page is 1-based; every page extends the previous one ("load more").
	Page     int
	PageSize int
}

type ProductList struct {
	Products []domain.ResolvedProduct `json:"products"`
	Total    int                      `json:"total"`
	HasMore  bool                     `json:"has_more"`
}

type Category struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

type CatalogService struct {
	catalog  port.CatalogClient
	resolver *Resolver
}

// NewCatalogService wires browsing to the catalog. Listed products are fed
// into resolver so cart pricing does not fetch them again.
func NewCatalogService(catalog port.CatalogClient, resolver *Resolver) *CatalogService {
	return &CatalogService{catalog: catalog, resolver: resolver}
}

func (s *CatalogService) List(ctx context.Context, q ListQuery) (ProductList, error) {
	all, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return ProductList{}, fmt.Errorf("list products: %w", err)
	}
	if s.resolver != nil {
		s.resolver.Remember(all...)
	}

	term := strings.ToLower(strings.TrimSpace(q.Query))
	filtered := make([]domain.ResolvedProduct, 0, len(all))
	for _, p := range all {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if term != "" && !matchesSearch(p, term) {
			continue
		}
		filtered = append(filtered, p)
	}
	SortProducts(filtered, q.Sort)

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	end := len(filtered)
	// Compare pages before multiplying so huge page numbers cannot overflow.
	if page := max(q.Page, 1); page <= (len(filtered)-1)/size {
		end = page * size
	}

	return ProductList{
		Products: filtered[:end],
		Total:    len(filtered),
		HasMore:  end < len(filtered),
	}, nil
}

func matchesSearch(p domain.ResolvedProduct, term string) bool {
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Description), term) ||
		strings.Contains(strings.ToLower(p.Category), term)
}

func (s *CatalogService) Get(ctx context.Context, productID int) (domain.ResolvedProduct, error) {
	resolved, unresolved := s.resolver.Resolve(ctx, []domain.LineEntry{{ProductID: productID, Quantity: 1}})
	if len(unresolved) > 0 {
		return domain.ResolvedProduct{}, fmt.Errorf("%w: %d", domain.ErrProductNotFound, productID)
	}
	return resolved[productID], nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]Category, error) {
	slugs, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]Category, len(slugs))
	for i, slug := range slugs {
		out[i] = Category{Slug: slug, Label: CategoryLabel(slug)}
	}
	return out, nil
}

// SortProducts orders products in place. Unknown orders fall back to id order.
func SortProducts(products []domain.ResolvedProduct, order SortOrder) {
	switch order {
	case SortPriceLow:
		slices.SortStableFunc(products, func(a, b domain.ResolvedProduct) int {
			return a.UnitPrice.Cmp(b.UnitPrice)
		})
	case SortPriceHigh:
		slices.SortStableFunc(products, func(a, b domain.ResolvedProduct) int {
			return b.UnitPrice.Cmp(a.UnitPrice)
		})
	case SortRating:
		slices.SortStableFunc(products, func(a, b domain.ResolvedProduct) int {
			return cmp.Compare(b.Rating.Average, a.Rating.Average)
		})
	default:
		slices.SortStableFunc(products, func(a, b domain.ResolvedProduct) int {
			return cmp.Compare(a.ProductID, b.ProductID)
		})
	}
}

// CategoryLabel title-cases a category slug for display.
func CategoryLabel(slug string) string {
	return cases.Title(language.English).String(slug)
}
