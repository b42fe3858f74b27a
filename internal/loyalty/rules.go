package loyalty

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/money"
)

var (
	// DefaultPointValue is the Baht value of a single point.
	DefaultPointValue = decimal.RequireFromString("0.1")
	// DefaultAccrualDivisor is the Baht spend that earns one point.
	DefaultAccrualDivisor = decimal.NewFromInt(100)

	redemptionTolerance = decimal.RequireFromString("0.01")
)

// ErrRedemptionMismatch is returned when a redemption amount does not match its points.
var ErrRedemptionMismatch = errors.New("redemption amount does not match points")

// Rules holds the point/currency conversion constants.
type Rules struct {
	PointValue     decimal.Decimal
	AccrualDivisor decimal.Decimal
}

// DefaultRules returns 0.1 Baht per point and 1 point per 100 Baht spent.
func DefaultRules() Rules {
	return Rules{PointValue: DefaultPointValue, AccrualDivisor: DefaultAccrualDivisor}
}

// Validate reports whether both constants are positive.
func (r Rules) Validate() error {
	if !r.PointValue.IsPositive() {
		return fmt.Errorf("loyalty: point value must be positive, got %s", r.PointValue)
	}
	if !r.AccrualDivisor.IsPositive() {
		return fmt.Errorf("loyalty: accrual divisor must be positive, got %s", r.AccrualDivisor)
	}
	return nil
}

// MaxRedeemablePoints bounds redemption by the customer's balance and by what
// the cart total can absorb.
func (r Rules) MaxRedeemablePoints(available int64, cartTotal money.Money) int64 {
	if available <= 0 || cartTotal <= 0 || !r.PointValue.IsPositive() {
		return 0
	}
	byTotal := cartTotal.Decimal().Div(r.PointValue).Floor().IntPart()
	if byTotal < available {
		return byTotal
	}
	return available
}

// ClampPointsToUse returns requested limited to [0, max].
func ClampPointsToUse(requested, max int64) int64 {
	if requested > max {
		requested = max
	}
	if requested < 0 {
		return 0
	}
	return requested
}

// DiscountForPoints converts points into their Baht value.
func (r Rules) DiscountForPoints(points int64) money.Money {
	if points <= 0 {
		return 0
	}
	return money.FromDecimal(decimal.NewFromInt(points).Mul(r.PointValue))
}

// PointsEarned returns the points accrued on a completed sale of finalTotal.
func (r Rules) PointsEarned(finalTotal money.Money) int64 {
	if finalTotal <= 0 || !r.AccrualDivisor.IsPositive() {
		return 0
	}
	return finalTotal.Decimal().Div(r.AccrualDivisor).Floor().IntPart()
}

// PointsForValue returns how many whole points are worth at most amount.
func (r Rules) PointsForValue(amount money.Money) int64 {
	if amount <= 0 || !r.PointValue.IsPositive() {
		return 0
	}
	return amount.Decimal().Div(r.PointValue).Floor().IntPart()
}

// ValidateRedemption checks that amount equals points x point value within 0.01 Baht.
func (r Rules) ValidateRedemption(points int64, amount money.Money) error {
	if points <= 0 {
		return fmt.Errorf("points must be positive: %w", ErrRedemptionMismatch)
	}
	expected := decimal.NewFromInt(points).Mul(r.PointValue)
	if expected.Sub(amount.Decimal()).Abs().GreaterThan(redemptionTolerance) {
		return fmt.Errorf("%d points are worth %s, got %s: %w", points, expected.StringFixed(2), amount.Amount(), ErrRedemptionMismatch)
	}
	return nil
}

// Selection is the redemption chosen for the active checkout.
type Selection struct {
	PointsToUse int64       `json:"pointsToUse"`
	MaxPoints   int64       `json:"maxPoints"`
	Discount    money.Money `json:"discount"`
}

// Reclamp bounds requested against the available balance and the pre-loyalty
// total and returns the resulting selection.
func (r Rules) Reclamp(requested, available int64, totalBeforeLoyalty money.Money) Selection {
	max := r.MaxRedeemablePoints(available, totalBeforeLoyalty)
	points := ClampPointsToUse(requested, max)
	return Selection{PointsToUse: points, MaxPoints: max, Discount: r.DiscountForPoints(points)}
}
