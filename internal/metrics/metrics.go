// Package metrics exposes the game's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qhunt"

// Metrics holds every collector on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	scans              *prometheus.CounterVec
	registrations      *prometheus.CounterVec
	phaseTransitions   *prometheus.CounterVec
	projectionFailures *prometheus.CounterVec
	projectionDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scan submissions by result code.",
		}, []string{"result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration calls by outcome.",
		}, []string{"outcome"}),
		phaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Phase transitions by target phase.",
		}, []string{"phase"}),
		projectionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_failures_total",
			Help:      "Realtime projection writes that failed after the ledger committed.",
		}, []string{"stage"}),
		projectionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "projection_duration_seconds",
			Help:      "Time to apply one update to the realtime projection.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"update"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.scans,
		m.registrations,
		m.phaseTransitions,
		m.projectionFailures,
		m.projectionDuration,
	)
	return m
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ScanResult counts one scan submission outcome
func (m *Metrics) ScanResult(result string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(result).Inc()
}

// Registration counts one registration outcome (created, updated, unchanged, rejected)
func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// PhaseTransition counts a phase change
func (m *Metrics) PhaseTransition(phase string) {
	if m == nil {
		return
	}
	m.phaseTransitions.WithLabelValues(phase).Inc()
}

// ProjectionFailure counts a failed projection stage
func (m *Metrics) ProjectionFailure(stage string) {
	if m == nil {
		return
	}
	m.projectionFailures.WithLabelValues(stage).Inc()
}

// ObserveProjection records how long an update took to project
func (m *Metrics) ObserveProjection(update string, d time.Duration) {
	if m == nil {
		return
	}
	m.projectionDuration.WithLabelValues(update).Observe(d.Seconds())
}
