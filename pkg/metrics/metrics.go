package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Outcomes  *prometheus.CounterVec
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewCheckoutMetrics(service string) *CheckoutMetrics {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "checkout_outcomes_total",
		Help:      "Terminal checkout outcomes by state.",
	}, []string{"outcome"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	prometheus.MustRegister(outcomes, requests, latency)
	return &CheckoutMetrics{Outcomes: outcomes, Requests: requests, LatencyMS: latency}
}

// CheckoutOutcome satisfies the orchestrator's outcome recorder.
func (m *CheckoutMetrics) CheckoutOutcome(outcome string) {
	m.Outcomes.WithLabelValues(outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
