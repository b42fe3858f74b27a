package loyalty

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/money"
)

func TestMaxRedeemablePoints(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		name      string
		available int64
		total     string
		want      int64
	}{
		{"balance bound", 1000, "486.00", 1000},
		{"total bound", 50000, "486.00", 4860},
		{"fractional total floors", 10000, "12.35", 123},
		{"zero balance", 0, "486.00", 0},
		{"zero total", 500, "0.00", 0},
		{"negative total", 500, "-5.00", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, rules.MaxRedeemablePoints(tc.available, money.MustParse(tc.total)))
		})
	}
}

func TestClampPointsToUse(t *testing.T) {
	require.Equal(t, int64(100), ClampPointsToUse(250, 100))
	require.Equal(t, int64(40), ClampPointsToUse(40, 100))
	require.Equal(t, int64(0), ClampPointsToUse(-3, 100))
	require.Equal(t, int64(0), ClampPointsToUse(10, 0))
}

func TestDiscountNeverExceedsTotal(t *testing.T) {
	rules := DefaultRules()
	total := money.MustParse("486.00")
	max := rules.MaxRedeemablePoints(1_000_000, total)
	require.Equal(t, total, rules.DiscountForPoints(max))
	require.Equal(t, money.MustParse("100.00"), rules.DiscountForPoints(1000))
	require.True(t, rules.DiscountForPoints(-1).IsZero())
}

func TestPointsEarnedFloors(t *testing.T) {
	rules := DefaultRules()
	require.Equal(t, int64(4), rules.PointsEarned(money.MustParse("486.00")))
	require.Equal(t, int64(0), rules.PointsEarned(money.MustParse("99.99")))
	require.Equal(t, int64(1), rules.PointsEarned(money.MustParse("100.00")))
	require.Equal(t, int64(0), rules.PointsEarned(money.MustParse("-100.00")))
}

func TestCustomRules(t *testing.T) {
	rules := Rules{PointValue: decimal.NewFromInt(1), AccrualDivisor: decimal.NewFromInt(25)}
	require.NoError(t, rules.Validate())
	require.Equal(t, int64(48), rules.MaxRedeemablePoints(100, money.MustParse("48.50")))
	require.Equal(t, int64(19), rules.PointsEarned(money.MustParse("486.00")))
	require.Error(t, Rules{}.Validate())
}

func TestValidateRedemption(t *testing.T) {
	rules := DefaultRules()
	require.NoError(t, rules.ValidateRedemption(1000, money.MustParse("100.00")))
	require.NoError(t, rules.ValidateRedemption(1000, money.MustParse("100.01")))
	require.ErrorIs(t, rules.ValidateRedemption(1000, money.MustParse("100.50")), ErrRedemptionMismatch)
	require.ErrorIs(t, rules.ValidateRedemption(0, 0), ErrRedemptionMismatch)
	require.Equal(t, int64(1234), rules.PointsForValue(money.MustParse("123.45")))
}

func TestReclampAfterTotalShrinks(t *testing.T) {
	rules := DefaultRules()
	sel := rules.Reclamp(3000, 5000, money.MustParse("486.00"))
	require.Equal(t, int64(3000), sel.PointsToUse)
	require.Equal(t, money.MustParse("300.00"), sel.Discount)

	sel = rules.Reclamp(sel.PointsToUse, 5000, money.MustParse("120.00"))
	require.Equal(t, int64(1200), sel.PointsToUse)
	require.Equal(t, int64(1200), sel.MaxPoints)
	require.Equal(t, money.MustParse("120.00"), sel.Discount)
}

func TestHandlers(t *testing.T) {
	h := Handler{Rules: DefaultRules()}

	rec := httptest.NewRecorder()
	h.CalculatePoints(rec, httptest.NewRequest(http.MethodGet, "/loyalty/calculate-points?amount=486.00", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":{"amount":486.00,"points":4}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CalculateValue(rec, httptest.NewRequest(http.MethodGet, "/loyalty/calculate-value?points=1234", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":{"points":1234,"bahtValue":123.40}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CalculateValue(rec, httptest.NewRequest(http.MethodGet, "/loyalty/calculate-value?points=x", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.CalculatePoints(rec, httptest.NewRequest(http.MethodGet, "/loyalty/calculate-points", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
