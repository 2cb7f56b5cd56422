package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guild/internal/compression"
)

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	reader := metric.NewManualReader()
	m := NewHTTPMetrics(metric.NewMeterProvider(metric.WithReader(reader)), zap.NewNop())

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/api/v1/compress", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	})

	for _, r := range []struct{ method, target string }{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/health"},
		{http.MethodPost, "/api/v1/compress"},
	} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.target, nil))
	}

	metrics := collect(t, reader)

	requests, ok := metrics["guild.http.requests_total"]
	require.True(t, ok, "requests counter not found")
	sum, ok := requests.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byStatus := make(map[int64]int64)
	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		byStatus[status.AsInt64()] += dp.Value
	}
	assert.Equal(t, map[int64]int64{http.StatusOK: 2, http.StatusBadRequest: 1}, byStatus)

	duration, ok := metrics["guild.http.request_duration_seconds"]
	require.True(t, ok, "duration histogram not found")
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)

	assert.Contains(t, metrics, "guild.http.response_size_bytes")
	assert.Contains(t, metrics, "guild.http.active_requests")
}

func TestServer_WithMeterProvider(t *testing.T) {
	reader := metric.NewManualReader()
	server, _ := setupTestServer(t, nil, WithMeterProvider(metric.NewMeterProvider(metric.WithReader(reader))))

	doJSON(t, server, http.MethodGet, "/does-not-exist", nil)

	requests, ok := collect(t, reader)["guild.http.requests_total"]
	require.True(t, ok)
	sum := requests.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)

	endpoint, _ := sum.DataPoints[0].Attributes.Value(attribute.Key("endpoint"))
	status, _ := sum.DataPoints[0].Attributes.Value(attribute.Key("status"))
	assert.Equal(t, "unmatched", endpoint.AsString())
	assert.Equal(t, int64(http.StatusNotFound), status.AsInt64())
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unmatched"},
		{"/*", "unmatched"},
		{"/health", "/health"},
		{"/api/v1/compress", "/api/v1/compress"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePath(tt.input), tt.input)
	}
}

func TestCompressionCollector(t *testing.T) {
	c := newCompressionCollector()

	c.observe(&compression.Result{
		Level:  compression.LevelStandard,
		Report: &compression.PreservationReport{Score: 55, Valid: true},
	}, 2)
	c.observe(&compression.Result{
		Level:  compression.LevelDeployment,
		Report: &compression.PreservationReport{Score: 5},
	}, 0)

	families, err := c.registry.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, f := range families {
		switch f.GetName() {
		case "guild_compressions_total":
			for _, m := range f.GetMetric() {
				key := ""
				for _, l := range m.GetLabel() {
					key += l.GetName() + "=" + l.GetValue() + ";"
				}
				values[key] = m.GetCounter().GetValue()
			}
		case "guild_redactions_total":
			values["redactions"] = f.GetMetric()[0].GetCounter().GetValue()
		case "guild_preservation_score":
			values["scores"] = float64(f.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}

	assert.Equal(t, 1.0, values["level=standard;valid=true;"])
	assert.Equal(t, 1.0, values["level=deployment;valid=false;"])
	assert.Equal(t, 2.0, values["redactions"])
	assert.Equal(t, 2.0, values["scores"])
}
