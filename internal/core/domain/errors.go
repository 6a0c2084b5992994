package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidProductID       = errors.New("invalid product id")
	ErrUnresolvedLines        = errors.New("unresolved cart lines")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrPaymentDeclined        = errors.New("payment declined")
	ErrAlreadyProcessing      = errors.New("checkout already in progress")
	ErrPersistenceWriteFailed = errors.New("persistence write failed")
	ErrCatalogFetchFailed     = errors.New("catalog fetch failed")
	ErrProductNotFound        = errors.New("product not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidSession         = errors.New("invalid session id")
)

// UnresolvedLinesError lists the product ids the catalog could not resolve.
type UnresolvedLinesError struct {
	ProductIDs []int
}

func (e *UnresolvedLinesError) Error() string {
	ids := make([]string, len(e.ProductIDs))
	for i, id := range e.ProductIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%s: %s", ErrUnresolvedLines, strings.Join(ids, ","))
}

func (e *UnresolvedLinesError) Unwrap() error {
	return ErrUnresolvedLines
}
