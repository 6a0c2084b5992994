package service

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/core/pricing"
)

const (
	CartTitleLimit     = 60
	CheckoutTitleLimit = 40
)

type Stars struct {
	Full  int  `json:"full"`
	Half  bool `json:"half"`
	Empty int  `json:"empty"`
}

type LineView struct {
	ProductID   int     `json:"product_id"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	ImageRef    string  `json:"image"`
	Quantity    int     `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	LineTotal   string  `json:"line_total"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
	Stars       Stars   `json:"stars"`
	Favorite    bool    `json:"favorite"`
}

type SummaryView struct {
	Subtotal     string `json:"subtotal"`
	Shipping     string `json:"shipping"`
	Tax          string `json:"tax"`
	Total        string `json:"total"`
	FreeShipping bool   `json:"free_shipping"`
}

type CartView struct {
	Lines      []LineView  `json:"lines"`
	Unresolved []int       `json:"unresolved,omitempty"`
	ItemCount  int         `json:"item_count"`
	Summary    SummaryView `json:"summary"`
}

// CartSnapshot is everything needed to render a cart without touching stores.
type CartSnapshot struct {
	Lines      []domain.LineEntry
	Resolved   map[int]domain.ResolvedProduct
	Unresolved []int
	Breakdown  domain.PriceBreakdown
	Favorites  []int
}

// RenderCart builds the cart view model. Lines without a resolved product
// are not rendered, matching the totals. titleLimit <= 0 disables truncation.
func RenderCart(snap CartSnapshot, titleLimit int) CartView {
	favorites := make(map[int]bool, len(snap.Favorites))
	for _, id := range snap.Favorites {
		favorites[id] = true
	}

	view := CartView{
		Lines:      make([]LineView, 0, len(snap.Lines)),
		Unresolved: snap.Unresolved,
		ItemCount:  domain.TotalQuantity(snap.Lines),
		Summary:    RenderSummary(snap.Breakdown),
	}
	for _, line := range snap.Lines {
		p, ok := snap.Resolved[line.ProductID]
		if !ok {
			continue
		}
		view.Lines = append(view.Lines, LineView{
			ProductID:   p.ProductID,
			Title:       TruncateTitle(p.Title, titleLimit),
			Category:    p.Category,
			ImageRef:    p.ImageRef,
			Quantity:    line.Quantity,
			UnitPrice:   money(p.UnitPrice),
			LineTotal:   money(pricing.LineTotal(p, line.Quantity)),
			Rating:      p.Rating.Average,
			RatingCount: p.Rating.Count,
			Stars:       StarRating(p.Rating.Average),
			Favorite:    favorites[p.ProductID],
		})
	}
	return view
}

func RenderSummary(b domain.PriceBreakdown) SummaryView {
	shipping := money(b.ShippingFee)
	if b.FreeShipping() {
		shipping = "FREE"
	}
	return SummaryView{
		Subtotal:     money(b.Subtotal),
		Shipping:     shipping,
		Tax:          money(b.TaxAmount),
		Total:        money(b.Total),
		FreeShipping: b.FreeShipping(),
	}
}

func TruncateTitle(title string, limit int) string {
	r := []rune(title)
	if limit <= 0 || len(r) <= limit {
		return title
	}
	return string(r[:limit]) + "..."
}

// StarRating splits a 0..5 rating into full, half and empty stars.
func StarRating(rating float64) Stars {
	rating = math.Max(0, math.Min(5, rating))
	full := int(math.Floor(rating))
	half := rating-float64(full) >= 0.5
	empty := 5 - full
	if half {
		empty--
	}
	return Stars{Full: full, Half: half, Empty: empty}
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
