package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe(http.MethodPost, "/api/v1/negotiations", http.StatusCreated, 42*time.Millisecond)
	m.Observe(http.MethodPost, "/api/v1/negotiations", http.StatusCreated, 10*time.Millisecond)

	family := findMetric(t, reg, "http_requests_total")
	require.NotNil(t, family)
	require.Len(t, family.Metric, 1)
	assert.Equal(t, float64(2), family.Metric[0].GetCounter().GetValue())

	labels := map[string]string{}
	for _, pair := range family.Metric[0].GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	assert.Equal(t, "201", labels["status"])
	assert.Equal(t, "/api/v1/negotiations", labels["route"])
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe(http.MethodGet, "/x", http.StatusOK, time.Millisecond)

	unregistered := NewHTTPMetrics(nil)
	unregistered.Observe(http.MethodGet, "/x", http.StatusOK, time.Millisecond)
}

func TestSweepJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepJobMetrics(reg)

	m.ObserveDuration("expire_negotiations", 120*time.Millisecond)
	m.IncSuccess("expire_negotiations")
	m.IncFailure("")

	success := findMetric(t, reg, "sweep_job_success")
	require.NotNil(t, success)
	assert.Equal(t, float64(1), success.Metric[0].GetCounter().GetValue())

	failure := findMetric(t, reg, "sweep_job_failure")
	require.NotNil(t, failure)
	labels := map[string]string{}
	for _, pair := range failure.Metric[0].GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	assert.Equal(t, "unknown", labels["job"])
}
