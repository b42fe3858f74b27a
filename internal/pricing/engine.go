package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// DefaultTaxRate is the VAT rate applied at the register.
var DefaultTaxRate = decimal.RequireFromString("0.08")

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty          int
	UnitPrice    money.Money
	LineDiscount money.Money
}

// Gross returns UnitPrice x Qty before the line discount.
func (it Item) Gross() money.Money {
	return it.UnitPrice.MulInt(int64(it.Qty))
}

// Net returns the line amount after its discount.
func (it Item) Net() money.Money {
	return it.Gross().Sub(it.LineDiscount)
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal        money.Money `json:"subtotal"`
	Tax             money.Money `json:"taxAmount"`
	Discount        money.Money `json:"discountAmount"`
	LoyaltyDiscount money.Money `json:"loyaltyDiscountAmount"`
	Total           money.Money `json:"total"`
}

// BeforeLoyalty returns the total without the loyalty discount applied.
func (s Summary) BeforeLoyalty() money.Money {
	return s.Total.Add(s.LoyaltyDiscount)
}

// Compute calculates cart totals given the provided inputs. The returned total
// always equals Subtotal + Tax - Discount - LoyaltyDiscount and is never clamped.
func Compute(items []Item, taxRate decimal.Decimal, discount, loyaltyDiscount money.Money) Summary {
	var subtotal money.Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal = subtotal.Add(it.Net())
	}
	tax := subtotal.MulRate(taxRate)
	total := subtotal.Add(tax).Sub(discount).Sub(loyaltyDiscount)
	return Summary{
		Subtotal:        subtotal,
		Tax:             tax,
		Discount:        discount,
		LoyaltyDiscount: loyaltyDiscount,
		Total:           total,
	}
}
