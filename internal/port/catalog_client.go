package port

import (
	"context"

	"github.com/rl1809/shopzone/internal/core/domain"
)

type CatalogClient interface {
	// GetProduct returns domain.ErrProductNotFound for unknown ids
	GetProduct(ctx context.Context, productID int) (domain.ResolvedProduct, error)

	ListProducts(ctx context.Context) ([]domain.ResolvedProduct, error)

	ListCategories(ctx context.Context) ([]string, error)
}
