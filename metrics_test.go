package authzmiddleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PrometheusMetrics_Counter(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetricsWithRegisterer(registry)

	metrics.IncCounter(metricAuthRequests, map[string]string{"outcome": outcomeSuccess})
	metrics.IncCounter(metricAuthRequests, map[string]string{"outcome": outcomeSuccess})
	metrics.IncCounter(metricAuthRequests, map[string]string{"outcome": outcomeInvalid})

	vec := metrics.counters[metricAuthRequests]
	require.NotNil(t, vec)
	assert.Equal(t, float64(2), testutil.ToFloat64(vec.With(prometheus.Labels{"outcome": outcomeSuccess})))
	assert.Equal(t, float64(1), testutil.ToFloat64(vec.With(prometheus.Labels{"outcome": outcomeInvalid})))
}

func Test_PrometheusMetrics_Histogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetricsWithRegisterer(registry)

	metrics.ObserveHistogram(metricAuthLatency, 0.01, nil)
	metrics.ObserveHistogram(metricAuthLatency, 0.02, nil)

	count, err := testutil.GatherAndCount(registry, metricAuthLatency)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_NoopMetrics(t *testing.T) {
	var m NoopMetrics
	m.IncCounter("any", nil)
	m.ObserveHistogram("any", 1, nil)
}
