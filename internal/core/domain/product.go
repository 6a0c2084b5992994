package domain

import "github.com/shopspring/decimal"

type Rating struct {
	Average float64 `json:"rate"`
	Count   int     `json:"count"`
}

// ResolvedProduct holds the catalog attributes of a product. It is treated as
// immutable once fetched for a session.
type ResolvedProduct struct {
	ProductID   int             `json:"id"`
	Title       string          `json:"title"`
	UnitPrice   decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	ImageRef    string          `json:"image"`
	Rating      Rating          `json:"rating"`
}
