package domain

// LineEntry is one product/quantity pair inside a cart.
// The JSON shape matches what the storefront has always written to storage.
type LineEntry struct {
	ProductID int `json:"id"`
	Quantity  int `json:"quantity"`
}

// TotalQuantity sums the quantities of the given lines.
func TotalQuantity(lines []LineEntry) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}
