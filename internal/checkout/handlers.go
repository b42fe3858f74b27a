package checkout

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/resilience"
	"github.com/noah-isme/backend-kasir/internal/tender"
)

// Handler wires the checkout service to HTTP.
type Handler struct {
	Svc *Service
}

type addItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"omitempty,min=1,max=999"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

type amountRequest struct {
	Amount money.Money `json:"amount" validate:"min=0"`
}

type customerRequest struct {
	CustomerID int64 `json:"customerId" validate:"required,gt=0"`
}

type pointsRequest struct {
	Points *int64 `json:"points" validate:"required"`
}

type completeRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

// Denominations handles GET /denominations.
func (h *Handler) Denominations(w http.ResponseWriter, _ *http.Request) {
	common.Data(w, http.StatusOK, h.Svc.Denominations())
}

// Open handles POST /sessions.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	terminalID, _ := common.TerminalID(r.Context())
	view, err := h.Svc.Open(r.Context(), terminalID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, view)
}

// Get handles GET /sessions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	respond(w, view, err)
}

// Cancel handles DELETE /sessions/{id}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /sessions/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body addItemRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), body.ProductID, body.Quantity)
	respond(w, view, err)
}

// SetQuantity handles PATCH /sessions/{id}/items/{productId}.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productParam(w, r)
	if !ok {
		return
	}
	var body quantityRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.SetQuantity(r.Context(), chi.URLParam(r, "id"), productID, *body.Quantity)
	respond(w, view, err)
}

// RemoveItem handles DELETE /sessions/{id}/items/{productId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productParam(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), productID)
	respond(w, view, err)
}

// ClearCart handles DELETE /sessions/{id}/items.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.ClearCart(r.Context(), chi.URLParam(r, "id"))
	respond(w, view, err)
}

// SetLineDiscount handles PUT /sessions/{id}/items/{productId}/discount.
func (h *Handler) SetLineDiscount(w http.ResponseWriter, r *http.Request) {
	productID, ok := productParam(w, r)
	if !ok {
		return
	}
	var body amountRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.SetLineDiscount(r.Context(), chi.URLParam(r, "id"), productID, body.Amount)
	respond(w, view, err)
}

// SetDiscount handles PUT /sessions/{id}/discount.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	var body amountRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.SetDiscount(r.Context(), chi.URLParam(r, "id"), body.Amount)
	respond(w, view, err)
}

// AttachCustomer handles PUT /sessions/{id}/customer.
func (h *Handler) AttachCustomer(w http.ResponseWriter, r *http.Request) {
	var body customerRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.AttachCustomer(r.Context(), chi.URLParam(r, "id"), body.CustomerID)
	respond(w, view, err)
}

// DetachCustomer handles DELETE /sessions/{id}/customer.
func (h *Handler) DetachCustomer(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.DetachCustomer(r.Context(), chi.URLParam(r, "id"))
	respond(w, view, err)
}

// SetPoints handles PUT /sessions/{id}/loyalty.
func (h *Handler) SetPoints(w http.ResponseWriter, r *http.Request) {
	var body pointsRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.SetPoints(r.Context(), chi.URLParam(r, "id"), *body.Points)
	respond(w, view, err)
}

// OpenTender handles POST /sessions/{id}/tender.
func (h *Handler) OpenTender(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.OpenTender(r.Context(), chi.URLParam(r, "id"))
	respond(w, view, err)
}

// CloseTender handles DELETE /sessions/{id}/tender.
func (h *Handler) CloseTender(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.CloseTender(r.Context(), chi.URLParam(r, "id"))
	respond(w, view, err)
}

// AddDenomination handles POST /sessions/{id}/tender/{face}.
func (h *Handler) AddDenomination(w http.ResponseWriter, r *http.Request) {
	face, ok := faceParam(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.AddDenomination(r.Context(), chi.URLParam(r, "id"), face)
	respond(w, view, err)
}

// RemoveDenomination handles DELETE /sessions/{id}/tender/{face}.
func (h *Handler) RemoveDenomination(w http.ResponseWriter, r *http.Request) {
	face, ok := faceParam(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.RemoveDenomination(r.Context(), chi.URLParam(r, "id"), face)
	respond(w, view, err)
}

// Complete handles POST /sessions/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var body completeRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	receipt, err := h.Svc.Complete(r.Context(), chi.URLParam(r, "id"), body.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, receipt)
}

func respond(w http.ResponseWriter, view View, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

func productParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		common.WriteError(w, common.InvalidParam("product id"))
		return 0, false
	}
	return id, true
}

func faceParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	face, err := strconv.ParseInt(chi.URLParam(r, "face"), 10, 64)
	if err != nil || face <= 0 {
		common.WriteError(w, common.InvalidParam("denomination"))
		return 0, false
	}
	return face, true
}

// writeError maps domain errors onto the API error envelope.
func writeError(w http.ResponseWriter, err error) {
	var (
		short     *tender.InsufficientTenderError
		redeemErr *RedemptionFailedError
		saleErr   *SaleCreationFailedError
	)
	switch {
	case errors.As(err, &short):
		common.JSONError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_TENDER", short.Error(), map[string]any{
			"total":     short.Total,
			"tendered":  short.Tendered,
			"shortfall": short.Shortfall,
		})
	case errors.As(err, &redeemErr):
		common.JSONError(w, http.StatusBadGateway, "REDEMPTION_FAILED", "loyalty redemption failed; no sale was recorded", map[string]any{
			"customerId": redeemErr.CustomerID,
			"points":     redeemErr.Points,
			"reason":     redeemErr.Err.Error(),
		})
	case errors.As(err, &saleErr):
		message := "sale could not be recorded"
		if saleErr.ReconciliationRequired {
			message = "sale could not be recorded after points were redeemed; reconciliation required"
		}
		common.JSONError(w, http.StatusBadGateway, "SALE_CREATION_FAILED", message, map[string]any{
			"reconciliationRequired":  saleErr.ReconciliationRequired,
			"redemptionTransactionId": saleErr.RedemptionTransactionID,
			"reason":                  saleErr.Err.Error(),
		})
	case errors.Is(err, ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "checkout session not found", nil)
	case errors.Is(err, catalog.ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrCustomerNotFound):
		common.JSONError(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "customer not found", nil)
	case errors.Is(err, ErrItemNotInCart):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_IN_CART", "item not in cart", nil)
	case errors.Is(err, tender.ErrUnknownDenomination):
		common.JSONError(w, http.StatusBadRequest, "UNKNOWN_DENOMINATION", err.Error(), nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, ErrTenderNotOpen):
		common.JSONError(w, http.StatusConflict, "TENDER_NOT_OPEN", "tender is not open", nil)
	case errors.Is(err, cart.ErrQuantityLimit):
		common.JSONError(w, http.StatusUnprocessableEntity, "QUANTITY_LIMIT", err.Error(), map[string]any{"max": cart.MaxQuantity})
	case errors.Is(err, money.ErrOutOfRange):
		common.JSONError(w, http.StatusUnprocessableEntity, "AMOUNT_OUT_OF_RANGE", "cart amount exceeds the register limit", nil)
	case errors.Is(err, ErrRedemptionCommitted):
		common.JSONError(w, http.StatusConflict, "REDEMPTION_COMMITTED", "points were already redeemed for this sale; complete it with the same points or cancel the session", nil)
	case errors.Is(err, ErrNoCustomer):
		common.JSONError(w, http.StatusConflict, "NO_CUSTOMER", "attach a customer before redeeming points", nil)
	case errors.Is(err, resilience.ErrOpenCircuit):
		common.JSONError(w, http.StatusServiceUnavailable, "BACKEND_CIRCUIT_OPEN", "point of sale backend temporarily unavailable", nil)
	case common.IsAppError(err):
		common.WriteError(w, err)
	default:
		common.WriteError(w, common.BackendUnavailable("point of sale backend unavailable", err))
	}
}
