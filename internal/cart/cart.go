package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/pricing"
)

// MaxQuantity is the largest quantity a single line may carry.
const MaxQuantity = 999

// ErrQuantityLimit is returned when a line would exceed MaxQuantity.
var ErrQuantityLimit = errors.New("cart: quantity limit exceeded")

// LineItem is a product snapshot together with the quantity being sold.
type LineItem struct {
	Product      catalog.Product `json:"product"`
	Quantity     int             `json:"quantity"`
	LineDiscount money.Money     `json:"lineDiscount"`
}

// Gross returns unit price x quantity.
func (li LineItem) Gross() money.Money {
	return li.Product.UnitPrice.MulInt(int64(li.Quantity))
}

// Subtotal returns the line amount after its discount.
func (li LineItem) Subtotal() money.Money {
	return li.Gross().Sub(li.LineDiscount)
}

// Cart owns the line items of a checkout and their derived totals. Every
// mutation recomputes the totals with the tax rate and loyalty discount that
// were last supplied.
type Cart struct {
	Items    []LineItem      `json:"items"`
	TaxRate  decimal.Decimal `json:"taxRate"`
	Discount money.Money     `json:"discountAmount"`
	Totals   pricing.Summary `json:"totals"`
}

// New returns an empty cart taxed at taxRate.
func New(taxRate decimal.Decimal) *Cart {
	c := &Cart{TaxRate: taxRate, Items: []LineItem{}}
	c.recompute()
	return c
}

// AddItem increments the quantity of an existing line or appends a new one.
func (c *Cart) AddItem(p catalog.Product) error {
	return c.AddQuantity(p, 1)
}

// AddQuantity adds quantity units of p, merging with an existing line.
// Non-positive quantities count as one. The cart is unchanged on error.
func (c *Cart) AddQuantity(p catalog.Product, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	idx := c.indexOf(p.ID)
	if idx >= 0 {
		return c.SetQuantity(p.ID, c.Items[idx].Quantity+quantity)
	}
	if err := c.checkLine(p.UnitPrice, quantity, -1); err != nil {
		return err
	}
	c.Items = append(c.Items, LineItem{Product: p, Quantity: quantity})
	c.recompute()
	return nil
}

// SetQuantity overwrites the quantity of a line. Non-positive quantities remove
// the line; unknown products are ignored. The cart is unchanged on error.
func (c *Cart) SetQuantity(productID int64, quantity int) error {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return nil
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		return nil
	}
	item := &c.Items[idx]
	if err := c.checkLine(item.Product.UnitPrice, quantity, idx); err != nil {
		return err
	}
	item.Quantity = quantity
	if gross := item.Gross(); item.LineDiscount > gross {
		item.LineDiscount = gross
	}
	c.recompute()
	return nil
}

// checkLine verifies that a line of quantity units at price keeps the cart's
// gross amount within money.MaxAmount. skip is the index of the line being
// replaced, or -1 for a new line.
func (c *Cart) checkLine(price money.Money, quantity, skip int) error {
	if quantity > MaxQuantity {
		return fmt.Errorf("%w: %d > %d", ErrQuantityLimit, quantity, MaxQuantity)
	}
	gross, err := price.MulIntChecked(int64(quantity))
	if err != nil {
		return err
	}
	for i, it := range c.Items {
		if i == skip {
			continue
		}
		line, err := it.Product.UnitPrice.MulIntChecked(int64(it.Quantity))
		if err != nil {
			return err
		}
		if gross, err = gross.AddChecked(line); err != nil {
			return err
		}
	}
	return nil
}

// SetLineDiscount sets the discount for a line, clamped to [0, gross line amount].
// It reports whether the product was in the cart.
func (c *Cart) SetLineDiscount(productID int64, amount money.Money) bool {
	idx := c.indexOf(productID)
	if idx < 0 {
		return false
	}
	item := &c.Items[idx]
	item.LineDiscount = money.Min(amount.NonNegative(), item.Gross())
	c.recompute()
	return true
}

// SetDiscount applies a cart-level discount clamped to [0, subtotal + tax].
func (c *Cart) SetDiscount(amount money.Money) {
	c.Discount = amount.NonNegative()
	c.recompute()
}

// RemoveItem deletes the line for productID if present.
func (c *Cart) RemoveItem(productID int64) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.recompute()
}

// Clear removes every line and resets discount and loyalty state.
func (c *Cart) Clear() {
	c.Items = []LineItem{}
	c.Discount = 0
	c.Totals.LoyaltyDiscount = 0
	c.recompute()
}

// RecomputeTotals derives subtotal, tax, total from the current lines. It only
// writes the derived fields, so repeated calls with the same inputs are stable.
func (c *Cart) RecomputeTotals(taxRate decimal.Decimal, loyaltyDiscount money.Money) pricing.Summary {
	c.TaxRate = taxRate
	items := make([]pricing.Item, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, pricing.Item{
			Qty:          it.Quantity,
			UnitPrice:    it.Product.UnitPrice,
			LineDiscount: it.LineDiscount,
		})
	}
	base := pricing.Compute(items, taxRate, 0, 0)
	discount := money.Min(c.Discount, base.Total.NonNegative())
	c.Totals = pricing.Compute(items, taxRate, discount, loyaltyDiscount)
	return c.Totals
}

// TotalBeforeLoyalty is the amount loyalty points may be redeemed against.
func (c *Cart) TotalBeforeLoyalty() money.Money {
	return c.Totals.BeforeLoyalty()
}

// Total returns the computed total. It may be negative.
func (c *Cart) Total() money.Money {
	return c.Totals.Total
}

// DisplayTotal clamps the total at zero for presentation.
func (c *Cart) DisplayTotal() money.Money {
	return c.Totals.Total.NonNegative()
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the total quantity across lines.
func (c *Cart) ItemCount() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Find returns the line for productID.
func (c *Cart) Find(productID int64) (LineItem, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return LineItem{}, false
	}
	return c.Items[idx], true
}

func (c *Cart) recompute() {
	c.RecomputeTotals(c.TaxRate, c.Totals.LoyaltyDiscount)
}

func (c *Cart) indexOf(productID int64) int {
	for i, it := range c.Items {
		if it.Product.ID == productID {
			return i
		}
	}
	return -1
}
