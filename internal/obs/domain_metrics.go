package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesCompletedTotal counts checkouts that produced a backend sale.
	SalesCompletedTotal prometheus.Counter
	// SaleAmountTotal accumulates completed sale totals in Baht.
	SaleAmountTotal prometheus.Counter
	// RedemptionTotal counts loyalty redemption calls by outcome.
	RedemptionTotal *prometheus.CounterVec
	// SaleCreationTotal counts sale creation calls by outcome.
	SaleCreationTotal *prometheus.CounterVec
	// ReconciliationGapTotal counts redemptions left without a sale.
	ReconciliationGapTotal prometheus.Counter
	// ReconciliationResolvedTotal counts gaps closed by a later successful sale.
	ReconciliationResolvedTotal *prometheus.CounterVec
	// ReconcileTaskTotal counts worker handling of reconciliation tasks.
	ReconcileTaskTotal *prometheus.CounterVec
	// TenderAttemptsTotal counts completion attempts by tender status.
	TenderAttemptsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers checkout Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesCompletedTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_completed_total",
			Help:      "Number of completed checkouts.",
		}))
		SaleAmountTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_amount_baht_total",
			Help:      "Sum of completed sale totals in Baht.",
		}))
		RedemptionTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loyalty_redemption_total",
			Help:      "Loyalty redemption calls by outcome.",
		}, []string{"result"}))
		SaleCreationTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_creation_total",
			Help:      "Sale creation calls by outcome.",
		}, []string{"result"}))
		ReconciliationGapTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_gap_total",
			Help:      "Redemptions committed without a matching sale.",
		}))
		ReconciliationResolvedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_resolved_total",
			Help:      "Reconciliation gaps closed by a retried sale by outcome.",
		}, []string{"result"}))
		ReconcileTaskTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_task_total",
			Help:      "Reconciliation tasks handled by the worker by outcome.",
		}, []string{"result"}))
		TenderAttemptsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tender_complete_attempts_total",
			Help:      "Checkout completion attempts by tender status.",
		}, []string{"status"}))
	})
}

// CountSale records a completed sale of amount Baht.
func CountSale(amount float64) {
	if SalesCompletedTotal != nil {
		SalesCompletedTotal.Inc()
	}
	if SaleAmountTotal != nil && amount > 0 {
		SaleAmountTotal.Add(amount)
	}
}

// CountResult increments vec for result when the collector is registered.
func CountResult(vec *prometheus.CounterVec, result string) {
	if vec != nil {
		vec.WithLabelValues(result).Inc()
	}
}

// CountReconciliationGap records a redemption left without a sale.
func CountReconciliationGap() {
	if ReconciliationGapTotal != nil {
		ReconciliationGapTotal.Inc()
	}
}
