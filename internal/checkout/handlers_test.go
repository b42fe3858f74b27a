package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/common"
)

func newTestRouter(t *testing.T, f *backendFake) http.Handler {
	t.Helper()
	h := &Handler{Svc: newTestService(t, f)}
	r := chi.NewRouter()
	r.Use(common.TerminalMiddleware)
	r.Get("/denominations", h.Denominations)
	r.Route("/sessions", func(s chi.Router) {
		s.Post("/", h.Open)
		s.Get("/{id}", h.Get)
		s.Delete("/{id}", h.Cancel)
		s.Post("/{id}/items", h.AddItem)
		s.Delete("/{id}/items", h.ClearCart)
		s.Patch("/{id}/items/{productId}", h.SetQuantity)
		s.Delete("/{id}/items/{productId}", h.RemoveItem)
		s.Put("/{id}/items/{productId}/discount", h.SetLineDiscount)
		s.Put("/{id}/discount", h.SetDiscount)
		s.Put("/{id}/customer", h.AttachCustomer)
		s.Delete("/{id}/customer", h.DetachCustomer)
		s.Put("/{id}/loyalty", h.SetPoints)
		s.Post("/{id}/tender", h.OpenTender)
		s.Delete("/{id}/tender", h.CloseTender)
		s.Post("/{id}/tender/{face}", h.AddDenomination)
		s.Delete("/{id}/tender/{face}", h.RemoveDenomination)
		s.Post("/{id}/complete", h.Complete)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.TerminalHeader, "till-4")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func openSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var view struct {
		ID         string `json:"id"`
		TerminalID string `json:"terminalId"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	require.Equal(t, "till-4", view.TerminalID)
	return view.ID
}

func TestHandlerDenominations(t *testing.T) {
	h := newTestRouter(t, newBackendFake())
	rec := do(t, h, http.MethodGet, "/denominations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[1000,500,100,50,20,10,5,1]}`, rec.Body.String())
}

func TestHandlerCheckoutFlow(t *testing.T) {
	h := newTestRouter(t, newBackendFake())
	id := openSession(t, h)

	rec := do(t, h, http.MethodPost, "/sessions/"+id+"/items", `{"productId":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Totals struct {
			Total json.Number `json:"total"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	require.Equal(t, "486.00", view.Totals.Total.String())

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/sessions/"+id+"/tender", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/sessions/"+id+"/tender/500", "").Code)

	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/complete", `{"notes":"counter 4"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var receipt struct {
		Change    json.Number `json:"change"`
		Breakdown []struct {
			Face  int64 `json:"face"`
			Count int64 `json:"count"`
		} `json:"breakdown"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &receipt))
	require.Equal(t, "14.00", receipt.Change.String())
	require.Len(t, receipt.Breakdown, 2)
	require.Equal(t, int64(10), receipt.Breakdown[0].Face)
	require.Equal(t, int64(4), receipt.Breakdown[1].Count)
}

func TestHandlerValidation(t *testing.T) {
	h := newTestRouter(t, newBackendFake())
	id := openSession(t, h)

	rec := do(t, h, http.MethodPost, "/sessions/"+id+"/items", `{"productId":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_FAILED", decode(t, rec).Error.Code)

	rec = do(t, h, http.MethodPatch, "/sessions/"+id+"/items/abc", `{"quantity":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPatch, "/sessions/"+id+"/items/1", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_FAILED", decode(t, rec).Error.Code)
}

func TestHandlerErrorMapping(t *testing.T) {
	h := newTestRouter(t, newBackendFake())

	rec := do(t, h, http.MethodGet, "/sessions/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "SESSION_NOT_FOUND", decode(t, rec).Error.Code)

	id := openSession(t, h)
	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/tender", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "EMPTY_CART", decode(t, rec).Error.Code)

	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/items", `{"productId":99}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "PRODUCT_NOT_FOUND", decode(t, rec).Error.Code)

	rec = do(t, h, http.MethodPut, "/sessions/"+id+"/loyalty", `{"points":10}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "NO_CUSTOMER", decode(t, rec).Error.Code)

	rec = do(t, h, http.MethodPut, "/sessions/"+id+"/customer", `{"customerId":404}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "CUSTOMER_NOT_FOUND", decode(t, rec).Error.Code)

	do(t, h, http.MethodPost, "/sessions/"+id+"/items", `{"productId":1}`)
	do(t, h, http.MethodPost, "/sessions/"+id+"/tender", "")
	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/tender/3", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "UNKNOWN_DENOMINATION", decode(t, rec).Error.Code)

	do(t, h, http.MethodPost, "/sessions/"+id+"/tender/100", "")
	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/complete", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	require.Equal(t, "INSUFFICIENT_TENDER", env.Error.Code)
	require.EqualValues(t, 386, env.Error.Details["shortfall"])
}

func TestHandlerSaleFailureReportsReconciliation(t *testing.T) {
	f := newBackendFake()
	f.saleErrs = []error{errors.New("backend: 503")}
	h := newTestRouter(t, f)
	id := openSession(t, h)

	do(t, h, http.MethodPost, "/sessions/"+id+"/items", `{"productId":1}`)
	do(t, h, http.MethodPut, "/sessions/"+id+"/customer", `{"customerId":7}`)
	do(t, h, http.MethodPut, "/sessions/"+id+"/loyalty", `{"points":100}`)
	do(t, h, http.MethodPost, "/sessions/"+id+"/tender", "")
	do(t, h, http.MethodPost, "/sessions/"+id+"/tender/500", "")

	rec := do(t, h, http.MethodPost, "/sessions/"+id+"/complete", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	env := decode(t, rec)
	require.Equal(t, "SALE_CREATION_FAILED", env.Error.Code)
	require.Equal(t, true, env.Error.Details["reconciliationRequired"])
	require.Len(t, f.gaps, 1)

	rec = do(t, h, http.MethodPut, "/sessions/"+id+"/loyalty", `{"points":50}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "REDEMPTION_COMMITTED", decode(t, rec).Error.Code)

	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/complete", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.redemptions, 1)
	require.Len(t, f.resolutions, 1)
}

func TestHandlerQuantityLimits(t *testing.T) {
	f := newBackendFake()
	h := newTestRouter(t, f)
	id := openSession(t, h)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/sessions/"+id+"/items", `{"productId":1,"quantity":999}`).Code)

	rec := do(t, h, http.MethodPatch, "/sessions/"+id+"/items/1", `{"quantity":36028797018963968}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_FAILED", decode(t, rec).Error.Code)

	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/items", `{"productId":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	require.Equal(t, "QUANTITY_LIMIT", env.Error.Code)
	require.EqualValues(t, 999, env.Error.Details["max"])

	rec = do(t, h, http.MethodPut, "/sessions/"+id+"/discount", `{"amount":"1e20"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCancel(t *testing.T) {
	h := newTestRouter(t, newBackendFake())
	id := openSession(t, h)
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/sessions/"+id, "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/sessions/"+id, "").Code)
}
