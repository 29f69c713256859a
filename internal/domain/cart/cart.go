package cart

import (
	"github.com/robotshop/cart/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ShippingSKU is the reserved sku for the shipping line. A cart holds at
// most one item with this sku; submitting shipping again replaces it.
const ShippingSKU = "SHIP"

// taxDivisor derives the embedded VAT component from a tax-inclusive total
// at a fixed 20% rate: tax = total - total/1.2
var taxDivisor = decimal.NewFromFloat(1.2)

func init() {
	// The legacy wire contract and the persisted record both carry money
	// fields as bare JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Item is a single line in a cart. Subtotal is always price * qty and is
// never set independently of them.
type Item struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Qty      int             `json:"qty"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Cart is the mutable record of items, total and tax for one customer
// session. Items keep insertion order and are unique by sku.
type Cart struct {
	Total decimal.Decimal `json:"total"`
	Tax   decimal.Decimal `json:"tax"`
	Items []Item          `json:"items"`
}

// New returns the canonical empty cart.
func New() *Cart {
	return &Cart{
		Total: decimal.Zero,
		Tax:   decimal.Zero,
		Items: []Item{},
	}
}

// NewItem builds an item with its subtotal computed from price and qty.
func NewItem(sku, name string, price decimal.Decimal, qty int) Item {
	return Item{
		SKU:      sku,
		Name:     name,
		Price:    price,
		Qty:      qty,
		Subtotal: price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

// Merge folds an item into the list. If the sku is already present the
// existing line's quantity is incremented and its subtotal recomputed from
// its own price; otherwise the item is appended. First match wins, which is
// safe because the sku-uniqueness invariant guarantees at most one match.
func (c *Cart) Merge(item Item) {
	for i := range c.Items {
		if c.Items[i].SKU == item.SKU {
			c.Items[i].Qty += item.Qty
			c.Items[i].Subtotal = c.Items[i].Price.Mul(decimal.NewFromInt(int64(c.Items[i].Qty)))
			c.recalculate()
			return
		}
	}
	c.Items = append(c.Items, item)
	c.recalculate()
}

// UpdateQuantity sets the quantity of the line matching sku, removing the
// line entirely when qty is zero. Returns ErrItemNotFound if no line
// matches.
func (c *Cart) UpdateQuantity(sku string, qty int) error {
	for i := range c.Items {
		if c.Items[i].SKU != sku {
			continue
		}
		if qty == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Qty = qty
			c.Items[i].Subtotal = c.Items[i].Price.Mul(decimal.NewFromInt(int64(qty)))
		}
		c.recalculate()
		return nil
	}
	return shared.ErrItemNotFound
}

// SetShipping applies a shipping line as a pseudo-item with the reserved
// sku. An existing shipping line is replaced in place, preserving its
// position; otherwise the line is appended.
func (c *Cart) SetShipping(cost decimal.Decimal, location string) {
	item := Item{
		SKU:      ShippingSKU,
		Name:     "shipping to " + location,
		Price:    cost,
		Qty:      1,
		Subtotal: cost,
	}
	for i := range c.Items {
		if c.Items[i].SKU == ShippingSKU {
			c.Items[i] = item
			c.recalculate()
			return
		}
	}
	c.Items = append(c.Items, item)
	c.recalculate()
}

// recalculate rebuilds total and tax from the item subtotals. Called after
// every structural change; tax is a pure function of total.
func (c *Cart) recalculate() {
	total := decimal.Zero
	for i := range c.Items {
		total = total.Add(c.Items[i].Subtotal)
	}
	c.Total = total
	c.Tax = total.Sub(total.Div(taxDivisor))
}
