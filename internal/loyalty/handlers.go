package loyalty

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Handler exposes the conversion helpers used by register displays.
type Handler struct {
	Rules Rules
}

// CalculatePoints handles GET /loyalty/calculate-points?amount=.
func (h Handler) CalculatePoints(w http.ResponseWriter, r *http.Request) {
	amount, err := money.Parse(strings.TrimSpace(r.URL.Query().Get("amount")))
	if err != nil || amount.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "amount must be a non-negative decimal", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"amount": amount,
		"points": h.Rules.PointsEarned(amount),
	})
}

// CalculateValue handles GET /loyalty/calculate-value?points=.
func (h Handler) CalculateValue(w http.ResponseWriter, r *http.Request) {
	points, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("points")), 10, 64)
	if err != nil || points < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "points must be a non-negative integer", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"points":    points,
		"bahtValue": h.Rules.DiscountForPoints(points),
	})
}
