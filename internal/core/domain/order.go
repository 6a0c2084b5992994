package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "idle"
	CheckoutValidating CheckoutState = "validating"
	CheckoutProcessing CheckoutState = "processing"
	CheckoutSettled    CheckoutState = "settled"
	CheckoutFailed     CheckoutState = "failed"
)

// InFlight reports whether a checkout attempt currently holds the session.
func (s CheckoutState) InFlight() bool {
	return s == CheckoutValidating || s == CheckoutProcessing
}

// Transition is emitted every time a checkout changes state.
type Transition struct {
	From CheckoutState
	To   CheckoutState
	Err  error
}

// PriceBreakdown values are kept at full precision. Use Rounded for display.
type PriceBreakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
}

// Rounded returns the breakdown rounded to cents.
func (b PriceBreakdown) Rounded() PriceBreakdown {
	return PriceBreakdown{
		Subtotal:    b.Subtotal.Round(2),
		ShippingFee: b.ShippingFee.Round(2),
		TaxAmount:   b.TaxAmount.Round(2),
		Total:       b.Total.Round(2),
	}
}

// FreeShipping reports whether shipping was waived.
func (b PriceBreakdown) FreeShipping() bool {
	return b.ShippingFee.IsZero()
}

// OrderSnapshot is the immutable record of a settled checkout.
type OrderSnapshot struct {
	ID               string                  `json:"id"`
	SessionID        string                  `json:"session_id"`
	Lines            []LineEntry             `json:"lines"`
	Products         map[int]ResolvedProduct `json:"products"`
	Breakdown        PriceBreakdown          `json:"breakdown"`
	PaymentReference string                  `json:"payment_reference"`
	CreatedAt        time.Time               `json:"created_at"`
}

type PaymentRequest struct {
	OrderID   string
	SessionID string
	Amount    decimal.Decimal
}

type PaymentResult struct {
	Approved  bool
	Reference string
	Reason    string
}
