package cart

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/pricing"
)

func product(id int64, price string) catalog.Product {
	return catalog.Product{ID: id, Name: "item", UnitPrice: money.MustParse(price), IsActive: true}
}

func TestAddItemMergesAndKeepsInsertionOrder(t *testing.T) {
	c := New(decimal.Zero)
	c.AddItem(product(2, "5.99"))
	c.AddItem(product(1, "12.99"))
	c.AddItem(product(2, "5.99"))

	require.Len(t, c.Items, 2)
	require.Equal(t, int64(2), c.Items[0].Product.ID)
	require.Equal(t, 2, c.Items[0].Quantity)
	require.Equal(t, int64(1), c.Items[1].Product.ID)
	require.Equal(t, 3, c.ItemCount())
	require.Equal(t, money.MustParse("24.97"), c.Totals.Subtotal)
}

func TestRegisterScenarioWithTax(t *testing.T) {
	c := New(pricing.DefaultTaxRate)
	c.AddItem(product(1, "450.00"))

	require.Equal(t, money.MustParse("450.00"), c.Totals.Subtotal)
	require.Equal(t, money.MustParse("36.00"), c.Totals.Tax)
	require.Equal(t, money.MustParse("486.00"), c.Total())
}

func TestSetQuantity(t *testing.T) {
	c := New(decimal.Zero)
	c.AddItem(product(1, "10.00"))
	c.AddItem(product(2, "3.00"))

	c.SetQuantity(1, 4)
	require.Equal(t, money.MustParse("43.00"), c.Totals.Subtotal)

	c.SetQuantity(99, 3)
	require.Len(t, c.Items, 2)

	c.SetQuantity(1, 0)
	_, ok := c.Find(1)
	require.False(t, ok)
	require.Equal(t, money.MustParse("3.00"), c.Totals.Subtotal)

	c.SetQuantity(2, -1)
	require.True(t, c.IsEmpty())
	require.True(t, c.Total().IsZero())
}

func TestLineDiscountClampedToGross(t *testing.T) {
	c := New(decimal.Zero)
	c.AddItem(product(1, "10.00"))
	c.AddItem(product(1, "10.00"))

	require.True(t, c.SetLineDiscount(1, money.MustParse("25.00")))
	line, _ := c.Find(1)
	require.Equal(t, money.MustParse("20.00"), line.LineDiscount)
	require.True(t, line.Subtotal().IsZero())

	require.True(t, c.SetLineDiscount(1, money.MustParse("-4.00")))
	line, _ = c.Find(1)
	require.True(t, line.LineDiscount.IsZero())

	require.True(t, c.SetLineDiscount(1, money.MustParse("15.00")))
	c.SetQuantity(1, 1)
	line, _ = c.Find(1)
	require.Equal(t, money.MustParse("10.00"), line.LineDiscount)

	require.False(t, c.SetLineDiscount(7, money.MustParse("1.00")))
}

func TestCartDiscountClampedToBaseTotal(t *testing.T) {
	c := New(pricing.DefaultTaxRate)
	c.AddItem(product(1, "100.00"))
	c.SetDiscount(money.MustParse("500.00"))

	require.Equal(t, money.MustParse("108.00"), c.Totals.Discount)
	require.True(t, c.Total().IsZero())
}

func TestRecomputeTotalsIsIdempotent(t *testing.T) {
	c := New(pricing.DefaultTaxRate)
	c.AddItem(product(1, "12.99"))
	c.AddItem(product(2, "5.99"))
	c.SetDiscount(money.MustParse("1.50"))

	first := c.RecomputeTotals(pricing.DefaultTaxRate, money.MustParse("2.00"))
	second := c.RecomputeTotals(pricing.DefaultTaxRate, money.MustParse("2.00"))
	require.Equal(t, first, second)
	require.Equal(t, first.Subtotal.Add(first.Tax).Sub(first.Discount).Sub(first.LoyaltyDiscount), first.Total)
	require.Equal(t, first.Total.Add(money.MustParse("2.00")), c.TotalBeforeLoyalty())
}

func TestClearResetsState(t *testing.T) {
	c := New(pricing.DefaultTaxRate)
	c.AddItem(product(1, "12.99"))
	c.SetDiscount(money.MustParse("1.00"))
	c.RecomputeTotals(pricing.DefaultTaxRate, money.MustParse("1.00"))

	c.Clear()
	require.True(t, c.IsEmpty())
	require.Equal(t, pricing.Summary{}, c.Totals)
	require.True(t, c.DisplayTotal().IsZero())
}

func TestQuantityLimit(t *testing.T) {
	c := New(pricing.DefaultTaxRate)
	require.NoError(t, c.AddQuantity(product(1, "450.00"), MaxQuantity))

	require.ErrorIs(t, c.AddItem(product(1, "450.00")), ErrQuantityLimit)
	require.ErrorIs(t, c.SetQuantity(1, 1<<55), ErrQuantityLimit)
	require.ErrorIs(t, c.AddQuantity(product(2, "1.00"), MaxQuantity+1), ErrQuantityLimit)

	line, _ := c.Find(1)
	require.Equal(t, MaxQuantity, line.Quantity)
	require.Len(t, c.Items, 1)
	require.Equal(t, money.MustParse("449550.00"), c.Totals.Subtotal)
}

func TestLineAmountOutOfRange(t *testing.T) {
	c := New(decimal.Zero)
	require.NoError(t, c.AddItem(product(1, "60000000000.00")))

	require.ErrorIs(t, c.SetQuantity(1, 2), money.ErrOutOfRange)
	require.ErrorIs(t, c.AddItem(product(2, "60000000000.00")), money.ErrOutOfRange)
	require.Len(t, c.Items, 1)
	require.Equal(t, money.MustParse("60000000000.00"), c.Totals.Subtotal)
}

func TestTotalsHoldAcrossRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(20240501))
	catalogue := []catalog.Product{
		product(1, "450.00"),
		product(2, "5.99"),
		product(3, "12.99"),
		product(4, "0.25"),
		product(5, "1999.00"),
	}
	c := New(pricing.DefaultTaxRate)

	for step := 0; step < 2000; step++ {
		p := catalogue[rng.Intn(len(catalogue))]
		switch rng.Intn(7) {
		case 0:
			_ = c.AddItem(p)
		case 1:
			_ = c.AddQuantity(p, rng.Intn(5)+1)
		case 2:
			_ = c.SetQuantity(p.ID, rng.Intn(12)-2)
		case 3:
			c.RemoveItem(p.ID)
		case 4:
			c.SetLineDiscount(p.ID, money.Money(rng.Int63n(300_000)-1_000))
		case 5:
			c.SetDiscount(money.Money(rng.Int63n(500_000) - 1_000))
		case 6:
			before := c.TotalBeforeLoyalty().NonNegative()
			c.RecomputeTotals(pricing.DefaultTaxRate, money.Money(rng.Int63n(int64(before)+1)))
		}

		var subtotal money.Money
		for _, it := range c.Items {
			require.GreaterOrEqual(t, it.Quantity, 1, "step %d", step)
			require.LessOrEqual(t, it.Quantity, MaxQuantity, "step %d", step)
			gross := it.Product.UnitPrice.MulInt(int64(it.Quantity))
			require.False(t, it.LineDiscount.IsNegative(), "step %d", step)
			require.LessOrEqual(t, int64(it.LineDiscount), int64(gross), "step %d", step)
			subtotal = subtotal.Add(gross).Sub(it.LineDiscount)
		}
		totals := c.Totals
		require.Equal(t, subtotal, totals.Subtotal, "step %d", step)
		require.Equal(t, subtotal.MulRate(pricing.DefaultTaxRate), totals.Tax, "step %d", step)
		require.Equal(t, totals.Subtotal.Add(totals.Tax).Sub(totals.Discount).Sub(totals.LoyaltyDiscount), totals.Total, "step %d", step)
		require.False(t, totals.Discount.IsNegative(), "step %d", step)
		require.LessOrEqual(t, int64(totals.Discount), int64(totals.Subtotal.Add(totals.Tax)), "step %d", step)
	}
}
