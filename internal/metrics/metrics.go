// Package metrics exposes verification run metrics in Prometheus format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tunematch/uiverify/internal/flow"
)

// Metrics tracks run and step outcomes on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	stepLatency *prometheus.HistogramVec
	stepErrors  *prometheus.CounterVec
	runs        *prometheus.CounterVec
	lastSuccess prometheus.Gauge
	lastRun     prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uiverify",
			Name:      "step_duration_seconds",
			Help:      "Duration of each verification step",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"step"}),
		stepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uiverify",
			Name:      "step_failures_total",
			Help:      "Total number of failed verification steps",
		}, []string{"step"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uiverify",
			Name:      "runs_total",
			Help:      "Total number of verification runs by outcome",
		}, []string{"outcome"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uiverify",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last passing run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uiverify",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run",
		}),
	}
	m.registry.MustRegister(m.stepLatency, m.stepErrors, m.runs, m.lastSuccess, m.lastRun)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveStep records one finished step.
func (m *Metrics) ObserveStep(res flow.StepResult) {
	m.stepLatency.WithLabelValues(res.Name).Observe(res.Duration.Seconds())
	if res.Err != nil {
		m.stepErrors.WithLabelValues(res.Name).Inc()
	}
}

// ObserveRun records the end of a run.
func (m *Metrics) ObserveRun(passed bool, at time.Time) {
	outcome := "failed"
	if passed {
		outcome = "passed"
		m.lastSuccess.Set(float64(at.Unix()))
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile dumps the registry in text exposition format for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
