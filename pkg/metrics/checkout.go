package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempt outcomes.
type CheckoutMetrics struct {
	attempts        *prometheus.CounterVec
	declines        prometheus.Counter
	partialFailures prometheus.Counter
	confirmLatency  prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by payment path and outcome.",
	}, []string{"path", "outcome"})
	declines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_gateway_declines_total",
		Help: "Charges declined by the payment gateway.",
	})
	partialFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_partial_failures_total",
		Help: "Attempts where the charge succeeded but order creation failed.",
	})
	confirmLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_confirm_duration_seconds",
		Help:    "Duration of gateway charge confirmations in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(attempts, declines, partialFailures, confirmLatency)
	return &CheckoutMetrics{
		attempts:        attempts,
		declines:        declines,
		partialFailures: partialFailures,
		confirmLatency:  confirmLatency,
	}
}

// IncAttempt increments the attempt counter for a path/outcome pair.
func (c *CheckoutMetrics) IncAttempt(path, outcome string) {
	if c == nil || c.attempts == nil {
		return
	}
	c.attempts.WithLabelValues(normalizeLabel(path), normalizeLabel(outcome)).Inc()
}

// IncDecline increments the gateway decline counter.
func (c *CheckoutMetrics) IncDecline() {
	if c == nil || c.declines == nil {
		return
	}
	c.declines.Inc()
}

// IncPartialFailure increments the charged-but-unrecorded counter.
func (c *CheckoutMetrics) IncPartialFailure() {
	if c == nil || c.partialFailures == nil {
		return
	}
	c.partialFailures.Inc()
}

// ObserveConfirm records the duration of a gateway confirmation.
func (c *CheckoutMetrics) ObserveConfirm(duration time.Duration) {
	if c == nil || c.confirmLatency == nil {
		return
	}
	c.confirmLatency.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
