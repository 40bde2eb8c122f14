package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records outcomes of checkout runs and cart mutations.
type CheckoutMetrics struct {
	runDuration  *prometheus.HistogramVec
	runOutcome   *prometheus.CounterVec
	ordersPlaced prometheus.Counter
	cartOps      *prometheus.CounterVec
}

// NewCheckoutMetrics registers the storefront metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_run_duration_seconds",
		Help:    "Duration of checkout runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	runOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_runs_total",
		Help: "Checkout runs by terminal status.",
	}, []string{"status"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_placed_total",
		Help: "Backend orders successfully placed.",
	})
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart ledger mutations by operation.",
	}, []string{"op"})
	reg.MustRegister(runDuration, runOutcome, ordersPlaced, cartOps)
	return &CheckoutMetrics{
		runDuration:  runDuration,
		runOutcome:   runOutcome,
		ordersPlaced: ordersPlaced,
		cartOps:      cartOps,
	}
}

// ObserveRun records the duration and terminal status of one checkout run.
func (c *CheckoutMetrics) ObserveRun(status string, duration time.Duration) {
	if c == nil || c.runDuration == nil {
		return
	}
	label := normalizeLabel(status)
	c.runDuration.WithLabelValues(label).Observe(duration.Seconds())
	c.runOutcome.WithLabelValues(label).Inc()
}

// IncOrdersPlaced counts a successfully placed backend order.
func (c *CheckoutMetrics) IncOrdersPlaced() {
	if c == nil || c.ordersPlaced == nil {
		return
	}
	c.ordersPlaced.Inc()
}

// IncCartOp counts a single ledger mutation.
func (c *CheckoutMetrics) IncCartOp(op string) {
	if c == nil || c.cartOps == nil {
		return
	}
	c.cartOps.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
