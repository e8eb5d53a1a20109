// Package observability provides Prometheus metrics for monitoring sweeps.
package observability

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/sweep"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Sweep metrics
	RowsCompleted   *prometheus.CounterVec
	TrialsCompleted *prometheus.CounterVec
	SweepProgress   *prometheus.GaugeVec
	SweepDuration   *prometheus.HistogramVec

	// Selection metrics
	SignificantSurvivors prometheus.Gauge
	ParetoFrontSize      prometheus.Gauge

	// Experiment metrics
	ExperimentRunsTotal *prometheus.CounterVec
	ExperimentDuration  prometheus.Histogram
	ReportsGenerated    prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "inventory_sweep"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RowsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "rows_completed_total",
			Help:      "Parameter sets finished by phase and status (ok, failed)",
		}, []string{"phase", "status"}),
		TrialsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "trials_completed_total",
			Help:      "Seeded trials aggregated into summary rows",
		}, []string{"phase"}),
		SweepProgress: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "progress_ratio",
			Help:      "Fraction of the current grid finished, by phase",
		}, []string{"phase"}),
		SweepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Sweep wall time in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),

		SignificantSurvivors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "significant_survivors",
			Help:      "Parameter sets passing the significance filter in the last run",
		}),
		ParetoFrontSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "pareto_front_size",
			Help:      "Points on the out-of-sample Pareto front in the last run",
		}),

		ExperimentRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "experiment",
			Name:      "runs_total",
			Help:      "Two-phase experiment runs by final status",
		}, []string{"status"}),
		ExperimentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "experiment",
			Name:      "duration_seconds",
			Help:      "Two-phase experiment duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		ReportsGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "experiment",
			Name:      "reports_generated_total",
			Help:      "Total number of reports written",
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last completed experiment",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler serving a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// SweepObserver returns a sweep observer that counts finished rows of phase.
func (m *Metrics) SweepObserver(phase domain.Phase) sweep.Observer {
	p := string(phase)
	m.SweepProgress.WithLabelValues(p).Set(0)

	var finished atomic.Int64

	return func(ev sweep.RowEvent) {
		if ev.Row != nil {
			m.RowsCompleted.WithLabelValues(p, "ok").Inc()
			m.TrialsCompleted.WithLabelValues(p).Add(float64(ev.Row.NSeeds))
		} else {
			m.RowsCompleted.WithLabelValues(p, "failed").Inc()
		}

		n := finished.Add(1)
		if ev.Total > 0 {
			m.SweepProgress.WithLabelValues(p).Set(float64(n) / float64(ev.Total))
		}
	}
}

// RecordSweep records the duration of one sweep phase.
func (m *Metrics) RecordSweep(phase domain.Phase, d time.Duration) {
	m.SweepDuration.WithLabelValues(string(phase)).Observe(d.Seconds())
}

// RecordSelection records the survivor count and front size of a run.
func (m *Metrics) RecordSelection(survivors, frontSize int) {
	m.SignificantSurvivors.Set(float64(survivors))
	m.ParetoFrontSize.Set(float64(frontSize))
}

// RecordExperiment records a finished experiment run.
func (m *Metrics) RecordExperiment(status string, d time.Duration) {
	m.ExperimentRunsTotal.WithLabelValues(status).Inc()
	m.ExperimentDuration.Observe(d.Seconds())
	if status == domain.RunStatusCompleted || status == domain.RunStatusPartial {
		m.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordReport increments the reports counter.
func (m *Metrics) RecordReport() {
	m.ReportsGenerated.Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordDBQuery records database query metrics on DefaultMetrics.
func RecordDBQuery(database, operation string, d time.Duration, err error) {
	DefaultMetrics.RecordDBQuery(database, operation, d, err)
}
