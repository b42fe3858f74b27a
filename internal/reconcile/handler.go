package reconcile

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/obs"
)

// Recorder persists gaps for operators and closes them once resolved.
type Recorder interface {
	Record(ctx context.Context, gap Gap) (bool, error)
	Resolve(ctx context.Context, res Resolution) (int64, error)
}

// Processor handles reconciliation tasks in the worker. No compensation is
// attempted; the gap is recorded so staff can create the sale manually or
// refund the points, and removed again when a retried sale succeeds.
type Processor struct {
	Ledger Recorder
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler for sale:reconcile tasks.
func (p Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	gap, err := Decode(t)
	if err != nil {
		obs.CountResult(obs.ReconcileTaskTotal, "invalid")
		return err
	}
	recorded, err := p.Ledger.Record(ctx, gap)
	if err != nil {
		obs.CountResult(obs.ReconcileTaskTotal, "retry")
		return err
	}
	if !recorded {
		obs.CountResult(obs.ReconcileTaskTotal, "already_resolved")
		p.Logger.Info().
			Str("session_id", gap.SessionID).
			Str("redemption_transaction_id", gap.RedemptionTransactionID).
			Msg("reconciliation gap already resolved")
		return nil
	}
	obs.CountResult(obs.ReconcileTaskTotal, "recorded")
	p.Logger.Error().
		Str("session_id", gap.SessionID).
		Str("terminal_id", gap.TerminalID).
		Int64("customer_id", gap.CustomerID).
		Int64("points", gap.Points).
		Str("amount", gap.Amount.Amount()).
		Str("redemption_transaction_id", gap.RedemptionTransactionID).
		Str("sale_error", gap.SaleError).
		Msg("reconciliation_required")
	return nil
}

// ProcessResolved handles sale:resolved tasks.
func (p Processor) ProcessResolved(ctx context.Context, t *asynq.Task) error {
	res, err := DecodeResolution(t)
	if err != nil {
		obs.CountResult(obs.ReconcileTaskTotal, "invalid")
		return err
	}
	removed, err := p.Ledger.Resolve(ctx, res)
	if err != nil {
		obs.CountResult(obs.ReconcileTaskTotal, "retry")
		return err
	}
	obs.CountResult(obs.ReconcileTaskTotal, "resolved")
	p.Logger.Info().
		Str("session_id", res.SessionID).
		Str("redemption_transaction_id", res.RedemptionTransactionID).
		Int64("sale_id", res.SaleID).
		Int64("removed", removed).
		Msg("reconciliation_resolved")
	return nil
}

// Mux returns an asynq mux routing reconcile tasks to p.
func (p Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeSaleReconcile, p)
	mux.HandleFunc(TypeSaleResolved, p.ProcessResolved)
	return mux
}

// Handler lists open gaps over HTTP.
type Handler struct {
	Ledger Ledger
}

// List handles GET /reconciliations.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Ledger.Client == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "reconciliation ledger requires redis", nil)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := parseLimit(raw); err == nil {
			limit = n
		}
	}
	gaps, err := h.Ledger.List(r.Context(), limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to read reconciliation ledger", nil)
		return
	}
	common.Data(w, http.StatusOK, gaps)
}

func parseLimit(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > 500 {
		return 0, errors.New("limit out of range")
	}
	return n, nil
}
