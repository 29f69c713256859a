package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is the read-only view of a catalogue entry. It is fetched per
// add-to-cart request and never cached beyond that request.
type Product struct {
	SKU     string          `json:"sku"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	InStock int             `json:"instock"`
}

// Service fetches product metadata from the external catalogue.
//
// Implementations must keep three outcomes distinguishable for callers:
// a found product, shared.ErrProductNotFound when the catalogue cleanly
// reports the sku as unknown, and shared.ErrCatalogueUnavailable when the
// catalogue cannot be reached (transport failure, timeout, or an open
// circuit). The service layer surfaces the former as 404 and the latter
// as a dependency failure.
type Service interface {
	GetProduct(ctx context.Context, sku string) (*Product, error)
}
