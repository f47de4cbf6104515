package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus. Fallback
// activations are the key operator signal: users never see feed degradation,
// these counters do.
type Recorder struct {
	fallbacks   *prometheus.CounterVec
	pollCycles  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesense_fallbacks_total",
				Help: "Total number of fallback activations per stage",
			},
			[]string{"stage", "symbol"},
		),
		pollCycles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesense_poll_cycles_total",
				Help: "Watchlist polling cycles by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesense_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradesense_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradesense_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFallback records a fallback activation for a stage ("bars", "quote").
func (r *Recorder) RecordFallback(stage, symbol string) {
	r.fallbacks.WithLabelValues(stage, symbol).Inc()
}

// RecordPoll records the outcome of one polling cycle.
func (r *Recorder) RecordPoll(outcome string) {
	r.pollCycles.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
