package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/resilience"
)

// Handler exposes product lookup over HTTP.
type Handler struct {
	Svc *Service
}

// Search handles GET /products?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	products, err := h.Svc.Search(r.Context(), term)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, products)
}

// Get handles GET /products/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.WriteError(w, common.InvalidParam("product id"))
		return
	}
	product, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, product)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrProductNotFound) {
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
		return
	}
	if errors.Is(err, resilience.ErrOpenCircuit) {
		common.JSONError(w, http.StatusServiceUnavailable, "BACKEND_CIRCUIT_OPEN", "point of sale backend temporarily unavailable", nil)
		return
	}
	if common.IsAppError(err) {
		common.WriteError(w, err)
		return
	}
	common.WriteError(w, common.BackendUnavailable("product catalog unavailable", err))
}
