package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guild/internal/compression"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/guild/internal/http"

// HTTPMetrics holds the OpenTelemetry request instruments.
type HTTPMetrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	requestsTotal  metric.Int64Counter
	requestDur     metric.Float64Histogram
	responseSize   metric.Int64Histogram
	activeRequests metric.Int64UpDownCounter
}

// NewHTTPMetrics creates request instruments from mp, or from the global
// provider when mp is nil.
func NewHTTPMetrics(mp metric.MeterProvider, logger *zap.Logger) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	m := &HTTPMetrics{
		meter:  mp.Meter(httpInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *HTTPMetrics) init() {
	var err error

	m.requestsTotal, err = m.meter.Int64Counter(
		"guild.http.requests_total",
		metric.WithDescription("Total HTTP requests labeled by method, route and status code"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create requests counter", zap.Error(err))
	}

	m.requestDur, err = m.meter.Float64Histogram(
		"guild.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds, labeled by method, route and status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.responseSize, err = m.meter.Int64Histogram(
		"guild.http.response_size_bytes",
		metric.WithDescription("HTTP response body size in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 5000, 10000, 50000, 100000, 500000),
	)
	if err != nil {
		m.logger.Warn("failed to create response size histogram", zap.Error(err))
	}

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"guild.http.active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()

			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, 1)
			}

			// Let the error handler write the response so the recorded
			// status matches what the client receives.
			if err := next(c); err != nil {
				c.Error(err)
			}

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", normalizePath(c.Path())),
				attribute.Int("status", c.Response().Status),
			)
			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, attrs)
			}
			if m.requestDur != nil {
				m.requestDur.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if m.responseSize != nil {
				m.responseSize.Record(ctx, c.Response().Size, attrs)
			}
			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, -1)
			}
			return nil
		}
	}
}

// normalizePath maps the matched route to a metric label. Every route is
// fixed, so the route template is used as is; requests that matched no route
// share one label to bound cardinality.
func normalizePath(route string) string {
	if route == "" || route == "/*" {
		return "unmatched"
	}
	return route
}

// compressionCollector exposes compression outcomes on /metrics.
type compressionCollector struct {
	registry     *prometheus.Registry
	compressions *prometheus.CounterVec
	score        prometheus.Histogram
	redactions   prometheus.Counter
}

func newCompressionCollector() *compressionCollector {
	c := &compressionCollector{
		registry: prometheus.NewRegistry(),
		compressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guild",
			Name:      "compressions_total",
			Help:      "Modules compressed through the API, by level and validity.",
		}, []string{"level", "valid"}),
		score: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "guild",
			Name:      "preservation_score",
			Help:      "Preservation score of compressed modules.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		redactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guild",
			Name:      "redactions_total",
			Help:      "Secrets redacted from API input.",
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.compressions,
		c.score,
		c.redactions,
	)
	return c
}

func (c *compressionCollector) observe(result *compression.Result, redactions int) {
	valid := "false"
	if result.Report != nil && result.Report.Valid {
		valid = "true"
	}
	c.compressions.WithLabelValues(string(result.Level), valid).Inc()
	if result.Report != nil {
		c.score.Observe(float64(result.Report.Score))
	}
	c.redactions.Add(float64(redactions))
}
