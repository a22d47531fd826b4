package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookstore"

// Checkout counts checkout outcomes.  Outcome is "committed" or the abort
// reason; state is the last state reached before the outcome.
type Checkout struct {
	Outcomes        *prometheus.CounterVec
	StockConflicts  *prometheus.CounterVec
	DurationSeconds prometheus.Histogram
	OrderValueTotal prometheus.Counter
}

func NewCheckout(reg prometheus.Registerer) *Checkout {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "outcomes_total",
		Help:      "Checkout attempts by outcome and final state.",
	}, []string{"outcome", "state"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "stock_conflicts_total",
		Help:      "Reservations rejected for insufficient stock, by book.",
	}, []string{"book_id"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "duration_seconds",
		Help:      "Checkout latency including the database transaction.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})
	value := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "order_value_total",
		Help:      "Sum of total_amount over committed orders.",
	})
	reg.MustRegister(outcomes, conflicts, duration, value)
	return &Checkout{Outcomes: outcomes, StockConflicts: conflicts, DurationSeconds: duration, OrderValueTotal: value}
}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
