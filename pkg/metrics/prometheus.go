package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	phaseLatency     *prometheus.HistogramVec
	tradesProduced   *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	indicatorLatency *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		phaseLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantback_backtest_phase_duration_seconds",
				Help:    "Duration of backtest phases in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy", "phase"},
		),
		tradesProduced: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantback_trades_produced_total",
				Help: "Total number of trades produced by backtests",
			},
			[]string{"strategy", "kind"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantback_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		indicatorLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantback_indicator_duration_seconds",
				Help:    "Duration of timeseries indicator computations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"indicator"},
		),
	}
}

// RecordPhase records one backtest phase latency in seconds.
func (r *Recorder) RecordPhase(strategy, phase string, seconds float64) {
	r.phaseLatency.WithLabelValues(strategy, phase).Observe(seconds)
}

// RecordTrades records produced trades by kind (open_trades/closed_trades).
func (r *Recorder) RecordTrades(strategy, kind string, n int) {
	r.tradesProduced.WithLabelValues(strategy, kind).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordIndicator records one indicator computation latency in seconds.
func (r *Recorder) RecordIndicator(name string, seconds float64) {
	r.indicatorLatency.WithLabelValues(name).Observe(seconds)
}
