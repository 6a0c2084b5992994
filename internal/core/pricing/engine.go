// Package pricing turns cart lines and resolved catalog prices into a price
// breakdown. Nothing here performs I/O or mutates its inputs.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/shopzone/internal/core/domain"
)

type Config struct {
	// Shipping is waived when the subtotal is strictly greater than this.
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
		FlatShippingFee:       decimal.RequireFromString("5.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// ComputeBreakdown prices the lines whose product is present in resolved.
// Lines without a resolved product are left out of the subtotal.
func (e *Engine) ComputeBreakdown(lines []domain.LineEntry, resolved map[int]domain.ResolvedProduct) domain.PriceBreakdown {
	subtotal := decimal.Zero
	for _, line := range lines {
		product, ok := resolved[line.ProductID]
		if !ok {
			continue
		}
		subtotal = subtotal.Add(LineTotal(product, line.Quantity))
	}

	shipping := e.cfg.FlatShippingFee
	if subtotal.GreaterThan(e.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(e.cfg.TaxRate)

	return domain.PriceBreakdown{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		TaxAmount:   tax,
		Total:       subtotal.Add(shipping).Add(tax),
	}
}

func LineTotal(product domain.ResolvedProduct, quantity int) decimal.Decimal {
	return product.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
