package port

import (
	"context"

	"github.com/rl1809/shopzone/internal/core/domain"
)

type PaymentProcessor interface {
	// Process charges the request amount. A declined payment is reported
	// through PaymentResult.Approved, transport failures through the error.
	Process(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResult, error)
}
