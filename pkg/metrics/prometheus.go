package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
// It registers on its own registry so runs and tests never collide on the default one.
type Recorder struct {
	registry     *prometheus.Registry
	daysTotal    *prometheus.CounterVec
	retriesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	runDays      *prometheus.GaugeVec
	runLastDay   *prometheus.GaugeVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		daysTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatpull_days_total",
				Help: "Days reconciled, by asset type and outcome",
			},
			[]string{"asset", "outcome"},
		),
		retriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatpull_retries_total",
				Help: "Retry attempts, by operation and error kind",
			},
			[]string{"op", "kind"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flatpull_fetch_duration_seconds",
				Help:    "Duration of remote fetches in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"source", "status"},
		),
		runDays: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flatpull_run_days",
				Help: "Counters of the latest run, by asset type and outcome",
			},
			[]string{"asset", "outcome"},
		),
		runLastDay: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flatpull_run_last_day_timestamp_seconds",
				Help: "Last day processed by the latest run",
			},
			[]string{"asset"},
		),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordDay(asset, outcome string) {
	r.daysTotal.WithLabelValues(asset, outcome).Inc()
}

func (r *Recorder) RecordRetry(op, kind string) {
	r.retriesTotal.WithLabelValues(op, kind).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordFetch(source, status string, seconds float64) {
	r.fetchLatency.WithLabelValues(source, status).Observe(seconds)
}

// RecordRun replaces the gauges of asset with the totals of its latest run, keyed by outcome.
func (r *Recorder) RecordRun(asset string, totals map[string]int, lastDay time.Time) {
	for outcome, n := range totals {
		r.runDays.WithLabelValues(asset, outcome).Set(float64(n))
	}
	if !lastDay.IsZero() {
		r.runLastDay.WithLabelValues(asset).Set(float64(lastDay.Unix()))
	}
}

// WriteTextfile dumps the registry for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
