package authzmiddleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/authward/go-authz-middleware/core"
)

// Metric names recorded by the middleware.
const (
	metricAuthRequests = "authz_requests_total"
	metricAuthLatency  = "authz_duration_seconds"
)

// Outcome label values for the request counter.
const (
	outcomeSuccess    = "success"
	outcomeMissing    = "token_missing"
	outcomeInvalid    = "token_invalid"
	outcomeUpstream   = "upstream_unavailable"
	outcomeUnsecured  = "unsecured_bypass"
	outcomeExtraction = "extraction_error"
)

// Metrics is the generic metrics interface for the middleware. It is an
// alias of core.Metrics so one sink flows through the middleware and the
// claims cache.
type Metrics = core.Metrics

// NoopMetrics is a default metrics implementation that does nothing.
type NoopMetrics = core.NopMetrics

// PrometheusMetrics implements the Metrics interface using Prometheus.
// Collectors are registered lazily on first use of each metric name.
type PrometheusMetrics struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics returns a Metrics implementation backed by the
// default Prometheus registerer.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsWithRegisterer returns a Metrics implementation
// backed by the given registerer. Tests use this to avoid the global
// registry.
func NewPrometheusMetricsWithRegisterer(reg prometheus.Registerer) *PrometheusMetrics {
	return &PrometheusMetrics{
		registerer: reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (m *PrometheusMetrics) IncCounter(name string, tags map[string]string) {
	m.mu.Lock()
	vec, ok := m.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name + " counter"}, labelKeys(tags))
		m.registerer.MustRegister(vec)
		m.counters[name] = vec
	}
	m.mu.Unlock()
	vec.With(tags).Inc()
}

func (m *PrometheusMetrics) ObserveHistogram(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	vec, ok := m.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: name + " histogram"}, labelKeys(tags))
		m.registerer.MustRegister(vec)
		m.histograms[name] = vec
	}
	m.mu.Unlock()
	vec.With(tags).Observe(value)
}

func labelKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	return keys
}
