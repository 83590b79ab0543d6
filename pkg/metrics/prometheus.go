// Package metrics provides Prometheus metrics for the festboard service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconcile write outcomes.
const (
	OutcomeWritten = "written"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Aggregation engine
	recomputePasses  prometheus.Counter
	recomputeLatency prometheus.Histogram
	reconcileWrites  *prometheus.CounterVec
	overrides        *prometheus.CounterVec
	teamsTracked     prometheus.Gauge

	// Admin activity
	resultsSaved    prometheus.Counter
	programsCreated prometheus.Counter
	authFailures    *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

var runtimeOnce sync.Once //nolint:gochecknoglobals // guards RegisterRuntimeCollectors

// RegisterRuntimeCollectors adds Go runtime and process metrics to the
// custom registry. Safe to call more than once.
func RegisterRuntimeCollectors() {
	runtimeOnce.Do(func() {
		customRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: globalManager.namespace}),
		)
	})
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "festboard",
		subsystem:        "results",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.recomputePasses = auto.NewCounter(m.counterOpts(
		"recompute_passes_total",
		"Total number of totals recomputations",
	))
	m.recomputeLatency = auto.NewHistogram(m.histogramOpts(
		"recompute_duration_seconds",
		"Histogram of recompute duration in seconds",
	))
	m.reconcileWrites = auto.NewCounterVec(m.counterOpts(
		"reconcile_writes_total",
		"Team total writes by outcome",
	), []string{"outcome"})
	m.overrides = auto.NewCounterVec(m.counterOpts(
		"overrides_total",
		"Manual override actions",
	), []string{"action"})
	m.teamsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "teams_tracked",
		Help:        "Number of teams with a persisted total",
		ConstLabels: m.customLabels,
	})

	m.resultsSaved = auto.NewCounter(m.counterOpts(
		"results_saved_total",
		"Total number of program results saved",
	))
	m.programsCreated = auto.NewCounter(m.counterOpts(
		"programs_created_total",
		"Total number of programs created",
	))
	m.authFailures = auto.NewCounterVec(m.counterOpts(
		"auth_failures_total",
		"Rejected admin authentication attempts by reason",
	), []string{"reason"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts(
		"http_requests_total",
		"Total number of HTTP requests by endpoint and method",
	), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_seconds",
		"HTTP request duration in seconds",
	), []string{"endpoint", "method", "status_code"})

	m.repositoryUpdateLatency = auto.NewHistogram(m.histogramOpts(
		"repository_update_duration_seconds",
		"Repository write duration in seconds",
	))
	m.repositoryQueryLatency = auto.NewHistogram(m.histogramOpts(
		"repository_query_duration_seconds",
		"Repository read duration in seconds",
	))

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts(
		"errors_by_component_total",
		"Errors by component and type",
	), []string{"component", "error_type"})
}

// RecordRecompute counts a recompute pass and observes how long it took.
func RecordRecompute(took time.Duration) {
	globalManager.recomputePasses.Inc()
	globalManager.recomputeLatency.Observe(took.Seconds())
}

// RecordReconcileWrite counts one team total write by outcome.
func RecordReconcileWrite(outcome string) {
	globalManager.reconcileWrites.WithLabelValues(outcome).Inc()
}

// RecordOverride counts a manual override action ("set" or "cleared").
func RecordOverride(action string) {
	globalManager.overrides.WithLabelValues(action).Inc()
}

// UpdateTeamsTracked sets the number of teams with a persisted total.
func UpdateTeamsTracked(count int) {
	globalManager.teamsTracked.Set(float64(count))
}

// RecordResultSaved increments the saved results counter.
func RecordResultSaved() {
	globalManager.resultsSaved.Inc()
}

// RecordProgramCreated increments the created programs counter.
func RecordProgramCreated() {
	globalManager.programsCreated.Inc()
}

// RecordAuthFailure counts a rejected authentication attempt.
func RecordAuthFailure(reason string) {
	globalManager.authFailures.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, took time.Duration) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(took.Seconds())
}

// RecordRepositoryUpdateLatency records repository write latency.
func RecordRepositoryUpdateLatency(took time.Duration) {
	globalManager.repositoryUpdateLatency.Observe(took.Seconds())
}

// RecordRepositoryQueryLatency records repository read latency.
func RecordRepositoryQueryLatency(took time.Duration) {
	globalManager.repositoryQueryLatency.Observe(took.Seconds())
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
