package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	simulations *prometheus.CounterVec
	modelMAE    *prometheus.GaugeVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the recorder's collectors on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg, so tests can use a private registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		simulations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksim_simulations_total",
				Help: "Simulation runs by ticker and outcome",
			},
			[]string{"ticker", "outcome"},
		),
		modelMAE: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stocksim_model_backtest_mae",
				Help: "Backtest mean absolute error from the latest run",
			},
			[]string{"ticker", "model"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksim_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocksim_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
	}
}

// RecordSimulation counts a run; outcome is ok, invalid, insufficient_data or error.
func (r *Recorder) RecordSimulation(ticker, outcome string) {
	r.simulations.WithLabelValues(ticker, outcome).Inc()
}

func (r *Recorder) RecordModelError(ticker, model string, mae float64) {
	r.modelMAE.WithLabelValues(ticker, model).Set(mae)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordSimulation(string, string)          {}
func (Nop) RecordModelError(string, string, float64) {}
func (Nop) RecordError(string)                       {}
func (Nop) RecordLatency(string, float64)            {}
