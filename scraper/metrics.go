package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the harvester.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ItemsTotal      *prometheus.CounterVec
	ArtifactsTotal  *prometheus.CounterVec
	BytesWritten    prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_requests_total",
			Help: "Total HTTP requests issued, by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_items_total",
			Help: "Items processed, by final state.",
		},
		[]string{"state"},
	)
	artifacts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_artifacts_total",
			Help: "Artifact downloads, by kind and result.",
		},
		[]string{"kind", "result"},
	)
	bytesWritten := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_artifact_bytes_total",
			Help: "Bytes written to artifact files.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_retries_total",
			Help: "Total number of transport retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_errors_total",
			Help: "Total number of errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, items, artifacts, bytesWritten, retries, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		ItemsTotal:      items,
		ArtifactsTotal:  artifacts,
		BytesWritten:    bytesWritten,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest increments the requests counter for an outcome.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncItem counts an item reaching its final state.
func (m *Metrics) IncItem(state string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(state).Inc()
}

// IncArtifact counts an artifact download attempt.
func (m *Metrics) IncArtifact(kind, result string) {
	if m == nil {
		return
	}
	m.ArtifactsTotal.WithLabelValues(kind, result).Inc()
}

// AddBytes adds to the bytes written counter.
func (m *Metrics) AddBytes(n int) {
	if m == nil {
		return
	}
	m.BytesWritten.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
