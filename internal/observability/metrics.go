package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the resilience core. All record
// methods are nil-safe so components can run without a metrics sink.
type Metrics struct {
	registry           *prometheus.Registry
	StructuredRequests *prometheus.CounterVec
	StructuredRetries  prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
	Downgrades         *prometheus.CounterVec
	Fallbacks          *prometheus.CounterVec
	Compactions        *prometheus.CounterVec
}

// NewMetrics constructs a metrics registry with core collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	reqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anvil_structured_requests_total",
		Help: "Structured requests by final outcome",
	}, []string{"outcome"})

	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anvil_structured_retries_total",
		Help: "Failed structured request attempts that were retried or exhausted",
	})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "anvil_request_duration_seconds",
		Help:    "Backend exchange duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	downgrades := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anvil_capability_downgrades_total",
		Help: "Structured-output capability downgrades by transition",
	}, []string{"from", "to"})

	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anvil_fallback_activations_total",
		Help: "Deterministic fallback engine activations by engine",
	}, []string{"engine"})

	compactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "anvil_memory_compactions_total",
		Help: "Memory compaction passes by summary source",
	}, []string{"source"})

	reg.MustRegister(reqs, retries, durs, downgrades, fallbacks, compactions)

	return &Metrics{
		registry:           reg,
		StructuredRequests: reqs,
		StructuredRetries:  retries,
		RequestDuration:    durs,
		Downgrades:         downgrades,
		Fallbacks:          fallbacks,
		Compactions:        compactions,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordStructuredRequest records the final outcome of a structured request.
func (m *Metrics) RecordStructuredRequest(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.StructuredRequests.WithLabelValues(outcome).Inc()
}

// RecordStructuredRetry records one failed attempt.
func (m *Metrics) RecordStructuredRetry() {
	if m == nil {
		return
	}
	m.StructuredRetries.Inc()
}

// RecordRequestDuration records an exchange duration for a provider.
func (m *Metrics) RecordRequestDuration(provider string, d time.Duration) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	m.RequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordCapabilityDowngrade records a sticky capability transition.
func (m *Metrics) RecordCapabilityDowngrade(from, to string) {
	if m == nil {
		return
	}
	m.Downgrades.WithLabelValues(from, to).Inc()
}

// RecordFallback records a deterministic fallback engine activation.
func (m *Metrics) RecordFallback(engine string) {
	if m == nil {
		return
	}
	if engine == "" {
		engine = "unknown"
	}
	m.Fallbacks.WithLabelValues(engine).Inc()
}

// RecordCompaction records a memory compaction pass. Source is "generative"
// when the summary came from the backend, "deterministic" otherwise.
func (m *Metrics) RecordCompaction(source string) {
	if m == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	m.Compactions.WithLabelValues(source).Inc()
}
