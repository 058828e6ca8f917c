// Package metrics provides Prometheus metrics for the recap pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for stage run results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Manager owns every Prometheus metric the service emits. It registers on
// its own registry so the /metrics endpoint stays free of default Go
// collector noise unless a caller opts in.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Pipeline outcomes.
	requests          *prometheus.CounterVec
	requestDuration   prometheus.Histogram
	singleflightShare prometheus.Counter
	windowHits        prometheus.Counter
	windowMisses      prometheus.Counter
	resolveDuration   prometheus.Histogram

	// Stage dispatch.
	stageRuns     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	// Event publishing.
	eventsPublished *prometheus.CounterVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for duration metrics.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry sets a custom Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewManager creates a metrics manager and registers all metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rewind",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.requests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "requests_total",
			Help:      "Total recap requests by outcome",
		},
		[]string{"outcome"},
	)

	m.requestDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "request_duration_seconds",
		Help:      "End-to-end recap request time, compute stages included",
		Buckets:   m.histogramBuckets,
	})

	m.singleflightShare = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "singleflight_shared_total",
		Help:      "Requests that attached to an already in-flight computation for the same key",
	})

	m.windowHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "dedup_window_hits_total",
		Help:      "Requests served inside the recent-completion window without redispatch",
	})

	m.windowMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "dedup_window_misses_total",
		Help:      "Requests that fell outside the recent-completion window",
	})

	m.resolveDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "resolve_duration_seconds",
		Help:      "Time spent resolving a player handle to an identifier",
		Buckets:   m.histogramBuckets,
	})

	m.stageRuns = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "stage_runs_total",
			Help:      "Compute stage invocations by stage and result",
		},
		[]string{"stage", "result"},
	)

	m.stageDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      "stage_duration_seconds",
			Help:      "Compute stage wall time by stage",
			Buckets:   m.histogramBuckets,
		},
		[]string{"stage"},
	)

	m.eventsPublished = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "events_published_total",
			Help:      "Recap completion events published by result",
		},
		[]string{"result"},
	)
}

// RecordRequest counts one finished request under its outcome label.
func (m *Manager) RecordRequest(outcome string) {
	m.requests.WithLabelValues(outcome).Inc()
}

// RecordRequestDuration records a request's end-to-end time.
func (m *Manager) RecordRequestDuration(d time.Duration) {
	m.requestDuration.Observe(d.Seconds())
}

// RecordSingleflightShared counts a request that shared another's flight.
func (m *Manager) RecordSingleflightShared() {
	m.singleflightShare.Inc()
}

// RecordWindowHit counts a request served from the completion window.
func (m *Manager) RecordWindowHit() {
	m.windowHits.Inc()
}

// RecordWindowMiss counts a request that had to dispatch.
func (m *Manager) RecordWindowMiss() {
	m.windowMisses.Inc()
}

// RecordResolveDuration records how long a handle resolution took.
func (m *Manager) RecordResolveDuration(d time.Duration) {
	m.resolveDuration.Observe(d.Seconds())
}

// RecordStageRun counts one stage invocation under its result label.
func (m *Manager) RecordStageRun(stage, result string) {
	m.stageRuns.WithLabelValues(stage, result).Inc()
}

// RecordStageDuration records a stage's wall time.
func (m *Manager) RecordStageDuration(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordEventPublished counts one completion-event publish attempt.
func (m *Manager) RecordEventPublished(result string) {
	m.eventsPublished.WithLabelValues(result).Inc()
}

// Registry returns the registry all metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
