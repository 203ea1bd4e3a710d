// Package telemetry holds the run's Prometheus metrics. The CLI has no
// listener to scrape, so the registry is written once per run in the
// node_exporter textfile format.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ykjwgs"

// Attempt outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics is a set of counters on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	Attempts  *prometheus.CounterVec
	Retries   prometheus.Counter
	Rows      prometheus.Counter
	Skipped   prometheus.Counter
	Tracks    prometheus.Gauge
	Waypoints prometheus.Gauge
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_attempts_total",
			Help:      "Coordinate service attempts by outcome.",
		}, []string{"outcome"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_retries_total",
			Help:      "Attempts made after a failed attempt.",
		}),
		Rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Input rows converted.",
		}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Malformed input rows skipped.",
		}),
		Tracks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracks",
			Help:      "Tracks in the last written document.",
		}),
		Waypoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waypoints",
			Help:      "Waypoints in the last written document.",
		}),
	}
	m.reg.MustRegister(m.Attempts, m.Retries, m.Rows, m.Skipped, m.Tracks, m.Waypoints)
	return m
}

// Attempt counts one service attempt.
func (m *Metrics) Attempt(outcome string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(outcome).Inc()
}

// Retry counts one retry.
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

// Row counts one converted row.
func (m *Metrics) Row() {
	if m == nil {
		return
	}
	m.Rows.Inc()
}

// Skip counts one skipped row.
func (m *Metrics) Skip() {
	if m == nil {
		return
	}
	m.Skipped.Inc()
}

// Document records the size of the written document.
func (m *Metrics) Document(tracks, waypoints int) {
	if m == nil {
		return
	}
	m.Tracks.Set(float64(tracks))
	m.Waypoints.Set(float64(waypoints))
}

// WriteTextfile writes the registry to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
