package port

import (
	"context"

	"github.com/rl1809/shopzone/internal/core/domain"
)

type OrderRepository interface {
	// SaveOrder persists a settled order snapshot with its lines
	SaveOrder(ctx context.Context, order domain.OrderSnapshot) error

	// GetOrder returns domain.ErrOrderNotFound when the id is unknown
	GetOrder(ctx context.Context, orderID string) (*domain.OrderSnapshot, error)
}
