package compression

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/fyrsmithlabs/guild/internal/compression"
const meterName = "guild.compression"

// Engine runs the compression pipeline for one module at a time: extract,
// select a level, summarize, validate and annotate. An Engine holds no
// per-module state and is safe for concurrent use.
type Engine struct {
	patterns *PatternTable
	logger   *zap.Logger

	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	operations  metric.Int64Counter
	score       metric.Int64Histogram
	outputBytes metric.Int64Histogram
	invalid     metric.Int64Counter
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default logs nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracerProvider sets the tracer provider used for compression spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithMeterProvider sets the meter provider used for compression metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) {
		if mp != nil {
			e.meter = mp.Meter(meterName)
		}
	}
}

// WithPatternTable replaces the default pattern table.
func WithPatternTable(pt *PatternTable) Option {
	return func(e *Engine) {
		if pt != nil {
			e.patterns = pt
		}
	}
}

// NewEngine creates a compression engine.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		patterns: NewPatternTable(),
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
		meter:    otel.Meter(meterName),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return e, nil
}

// Patterns returns the engine's pattern table.
func (e *Engine) Patterns() *PatternTable {
	return e.patterns
}

// Extract runs every extractor over text.
func (e *Engine) Extract(text string) Elements {
	return ExtractAll(e.patterns, text)
}

// Compress selects the level for m under mode and compresses it.
func (e *Engine) Compress(ctx context.Context, m *Module, mode Mode) (*Result, error) {
	level, err := SelectLevel(m, mode)
	if err != nil {
		return nil, err
	}
	return e.CompressAt(ctx, m, level)
}

// CompressAt compresses m at an explicit level. The only errors are a nil
// module or an unknown level; a low preservation score is reported in the
// result and never fails the call.
func (e *Engine) CompressAt(ctx context.Context, m *Module, level Level) (*Result, error) {
	if m == nil {
		return nil, &ArgumentError{Arg: "module", Err: ErrNilModule}
	}
	if _, err := ParseLevel(string(level)); err != nil {
		return nil, &ArgumentError{Arg: "level", Err: ErrUnknownLevel}
	}
	mod := m.Normalize()

	ctx, span := e.tracer.Start(ctx, "compression.compress",
		trace.WithAttributes(
			attribute.String("module.name", mod.Name),
			attribute.String("module.priority", string(mod.Priority)),
			attribute.String("module.category", mod.Category),
			attribute.String("compression.level", string(level)),
			attribute.Int("content_length", len(mod.Content)),
		),
	)
	defer span.End()

	elements := e.Extract(mod.Content)
	summary := Summarize(elements, level)
	report := ValidateFor(mod.Category, elements)

	content := ""
	if summary != "" {
		content = summary + "\n\n" + report.Annotation()
	}

	result := &Result{
		ModuleName:     mod.Name,
		Level:          level,
		Summary:        summary,
		Content:        content,
		Report:         report,
		OriginalSize:   utf8.RuneCountInString(mod.Content),
		CompressedSize: utf8.RuneCountInString(content),
	}

	attrs := metric.WithAttributes(
		attribute.String("level", string(level)),
		attribute.String("quality", string(report.Quality)),
	)
	e.operations.Add(ctx, 1, attrs)
	e.score.Record(ctx, int64(report.Score), metric.WithAttributes(attribute.String("level", string(level))))
	e.outputBytes.Record(ctx, int64(len(content)), metric.WithAttributes(attribute.String("level", string(level))))

	span.SetAttributes(
		attribute.Int("preservation.score", report.Score),
		attribute.String("preservation.quality", string(report.Quality)),
		attribute.Bool("preservation.valid", report.Valid),
		attribute.Int("elements.total", report.Metrics.Total),
		attribute.Int("compressed_size", result.CompressedSize),
	)

	if !report.Valid {
		e.invalid.Add(ctx, 1, metric.WithAttributes(attribute.String("level", string(level))))
		span.AddEvent("preservation below threshold")
		e.logger.Warn("low preservation score",
			zap.String("module", mod.Name),
			zap.String("level", string(level)),
			zap.Int("score", report.Score),
			zap.String("quality", string(report.Quality)),
			zap.Strings("recommendations", report.Recommendations),
		)
	} else {
		e.logger.Debug("module compressed",
			zap.String("module", mod.Name),
			zap.String("level", string(level)),
			zap.Int("score", report.Score),
			zap.Int("original_size", result.OriginalSize),
			zap.Int("compressed_size", result.CompressedSize),
		)
	}

	return result, nil
}

// initMetrics initializes OpenTelemetry metrics
func (e *Engine) initMetrics() error {
	var err error

	e.operations, err = e.meter.Int64Counter(
		"guild.compression.operations_total",
		metric.WithDescription("Total number of module compressions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create operations counter: %w", err)
	}

	e.score, err = e.meter.Int64Histogram(
		"guild.compression.preservation_score",
		metric.WithDescription("Preservation scores of compressed modules"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 20, 30, 40, 60, 80, 100),
	)
	if err != nil {
		return fmt.Errorf("failed to create preservation score histogram: %w", err)
	}

	e.outputBytes, err = e.meter.Int64Histogram(
		"guild.compression.output_bytes",
		metric.WithDescription("Size of compressed module content"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(0, 256, 1024, 4096, 16384, 65536),
	)
	if err != nil {
		return fmt.Errorf("failed to create output size histogram: %w", err)
	}

	e.invalid, err = e.meter.Int64Counter(
		"guild.compression.invalid_total",
		metric.WithDescription("Total number of compressions below the preservation threshold"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create invalid counter: %w", err)
	}

	return nil
}
