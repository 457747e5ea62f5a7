// Package metrics records conversion statistics as Prometheus metrics.
//
// profjson is a batch tool, so metrics are not served. They are written in
// the text exposition format for a node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ccollicutt/profjson/pkg/output"
)

const namespace = "profjson"

// Metrics holds the collectors of one run.
type Metrics struct {
	registry *prometheus.Registry

	ProfilesConverted prometheus.Counter
	ProfilesSkipped   prometheus.Counter
	Magnitudes        *prometheus.CounterVec
	Diagnostics       *prometheus.CounterVec
	Duration          prometheus.Gauge
	LastSuccess       prometheus.Gauge
}

// New creates the collectors and registers them in a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProfilesConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_converted_total",
			Help:      "Profiles parsed and written to the document.",
		}),
		ProfilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_skipped_total",
			Help:      "Profiles left out by exclude patterns.",
		}),
		Magnitudes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "magnitudes_total",
			Help:      "Magnitudes converted, by shape.",
		}, []string{"shape"}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limit_diagnostics_total",
			Help:      "Limits the parser had to recover, by kind.",
		}, []string{"kind"}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last conversion.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful conversion.",
		}),
	}

	m.registry.MustRegister(
		m.ProfilesConverted,
		m.ProfilesSkipped,
		m.Magnitudes,
		m.Diagnostics,
		m.Duration,
		m.LastSuccess,
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records a finished conversion.
func (m *Metrics) Observe(report *output.Report) {
	s := report.Summary
	m.ProfilesConverted.Add(float64(s.ProfilesConverted))
	m.ProfilesSkipped.Add(float64(s.ProfilesSkipped))
	m.Magnitudes.WithLabelValues("scalar").Add(float64(s.Magnitudes - s.ArrayMagnitudes))
	m.Magnitudes.WithLabelValues("array").Add(float64(s.ArrayMagnitudes))
	m.Diagnostics.WithLabelValues("limit-broadcast").Add(float64(s.LimitsBroadcast))
	m.Diagnostics.WithLabelValues("limit-unmodified").Add(float64(s.LimitsUnmodified))
	m.Duration.Set(report.Metadata.Duration.Seconds())

	at := report.Metadata.ConvertedAt
	if at.IsZero() {
		at = time.Now()
	}
	m.LastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes every metric to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
