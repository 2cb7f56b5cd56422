package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guild/internal/compression"
)

const instrumentationName = "github.com/fyrsmithlabs/guild/internal/mcp"

// Metrics holds the MCP tool instruments.
type Metrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	invocations    metric.Int64Counter
	duration       metric.Float64Histogram
	errors         metric.Int64Counter
	activeRequests metric.Int64UpDownCounter
	bytesSaved     metric.Int64Counter
	redactions     metric.Int64Counter
}

// NewMetrics creates tool instruments from mp, or from the global provider
// when mp is nil.
func NewMetrics(mp metric.MeterProvider, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := &Metrics{
		meter:  mp.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.invocations, err = m.meter.Int64Counter(
		"guild.mcp.tool.invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		m.logger.Warn("failed to create invocations counter", zap.Error(err))
	}

	m.duration, err = m.meter.Float64Histogram(
		"guild.mcp.tool.duration_seconds",
		metric.WithDescription("Duration of MCP tool invocations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"guild.mcp.tool.errors_total",
		metric.WithDescription("Total number of MCP tool errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"guild.mcp.tool.active_requests",
		metric.WithDescription("Number of currently active MCP tool requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}

	m.bytesSaved, err = m.meter.Int64Counter(
		"guild.mcp.compression.bytes_saved_total",
		metric.WithDescription("Bytes removed from modules compressed through MCP tools"),
		metric.WithUnit("By"),
	)
	if err != nil {
		m.logger.Warn("failed to create bytes saved counter", zap.Error(err))
	}

	m.redactions, err = m.meter.Int64Counter(
		"guild.mcp.redactions_total",
		metric.WithDescription("Secrets redacted from MCP tool input"),
		metric.WithUnit("{secret}"),
	)
	if err != nil {
		m.logger.Warn("failed to create redactions counter", zap.Error(err))
	}
}

// track marks a tool invocation as active and returns a function that
// records its outcome. Pass the tool error, or nil on success.
func (m *Metrics) track(ctx context.Context, tool string) func(error) {
	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, 1, attrs)
	}
	return func(err error) {
		if m.activeRequests != nil {
			m.activeRequests.Add(ctx, -1, attrs)
		}
		m.RecordInvocation(ctx, tool, time.Since(start), err)
	}
}

// RecordInvocation records a tool invocation.
func (m *Metrics) RecordInvocation(ctx context.Context, tool string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("tool", tool)}

	if m.invocations != nil {
		m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("reason", categorizeError(err)))...))
	}
}

// RecordCompression records the bytes saved by one compression and the
// secrets redacted from its input.
func (m *Metrics) RecordCompression(ctx context.Context, result *compression.Result, redactions int) {
	level := metric.WithAttributes(attribute.String("level", string(result.Level)))
	if saved := result.OriginalSize - result.CompressedSize; saved > 0 && m.bytesSaved != nil {
		m.bytesSaved.Add(ctx, int64(saved), level)
	}
	if redactions > 0 && m.redactions != nil {
		m.redactions.Add(ctx, int64(redactions))
	}
}

// categorizeError maps a tool error to a bounded reason label.
func categorizeError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, compression.ErrUnknownLevel), errors.Is(err, compression.ErrUnknownMode):
		return "validation_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "required") || strings.Contains(msg, "invalid") || strings.Contains(msg, "unknown"):
		return "validation_error"
	case strings.Contains(msg, "not found"):
		return "not_found"
	default:
		return "internal_error"
	}
}
