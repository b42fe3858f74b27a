package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Checker probes the dependencies a till needs to complete a sale.
type Checker interface {
	PingBackend(ctx context.Context, timeout time.Duration) error
	PingStore(ctx context.Context, timeout time.Duration) error
}

var notReady atomic.Bool

// SetReady toggles readiness. The API clears it when shutdown begins so load
// balancers stop routing new sessions here.
func SetReady(ready bool) {
	notReady.Store(!ready)
}

type Handler struct {
	Checker        Checker
	BackendTimeout time.Duration
	StoreTimeout   time.Duration
}

// Probe is one dependency's readiness result.
type Probe struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

// Report is the readiness response body.
type Report struct {
	Status string           `json:"status"`
	Checks map[string]Probe `json:"checks,omitempty"`
}

func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes the backend and the session store in parallel and answers 503
// unless both respond.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if notReady.Load() {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "shutting_down"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "unconfigured"})
		return
	}

	probes := map[string]func(context.Context) error{
		"backend": func(ctx context.Context) error { return h.Checker.PingBackend(ctx, h.backendTimeout()) },
		"store":   func(ctx context.Context) error { return h.Checker.PingStore(ctx, h.storeTimeout()) },
	}
	report := Report{Status: "ready", Checks: make(map[string]Probe, len(probes))}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, ping := range probes {
		name, ping := name, ping
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := ping(r.Context())
			p := Probe{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				p.Status, p.Error = "down", err.Error()
			}
			mu.Lock()
			report.Checks[name] = p
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := http.StatusOK
	for _, p := range report.Checks {
		if p.Status != "ok" {
			report.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	common.JSON(w, status, report)
}

func (h Handler) backendTimeout() time.Duration {
	if h.BackendTimeout <= 0 {
		return time.Second
	}
	return h.BackendTimeout
}

func (h Handler) storeTimeout() time.Duration {
	if h.StoreTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.StoreTimeout
}
