// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run.id", runID))
	}

	if key := ModuleFromContext(ctx); key != "" {
		fields = append(fields, zap.String("module.key", key))
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

// Context key types
type runCtxKey struct{}
type moduleCtxKey struct{}
type requestCtxKey struct{}

const (
	maxIDLen        = 128
	maxModuleKeyLen = 256
)

var (
	// idPattern allows alphanumeric, hyphen, underscore
	idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// moduleKeyPattern additionally allows path separators and dots
	moduleKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_./-]+$`)
)

func validate(value, name string, maxLen int, pattern *regexp.Regexp) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(value) > maxLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxLen)
	}
	if !pattern.MatchString(value) {
		return fmt.Errorf("%s contains invalid characters", name)
	}
	return nil
}

// RunIDFromContext extracts the assembly run ID from context.
func RunIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(runCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithRunID adds an assembly run ID to context.
// Panics if runID is empty or contains invalid characters.
func WithRunID(ctx context.Context, runID string) context.Context {
	if err := validate(runID, "runID", maxIDLen, idPattern); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, runCtxKey{}, runID)
}

// ModuleFromContext extracts the module key from context.
func ModuleFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(moduleCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// ValidModuleKey reports whether key can be stored with WithModule.
func ValidModuleKey(key string) bool {
	return validate(key, "module key", maxModuleKeyLen, moduleKeyPattern) == nil
}

// WithModule adds a module key such as "core/agent-framework" to context.
// Panics if key is empty or contains invalid characters.
func WithModule(ctx context.Context, key string) context.Context {
	if err := validate(key, "module key", maxModuleKeyLen, moduleKeyPattern); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, moduleCtxKey{}, key)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// ValidID reports whether id can be stored with WithRunID or WithRequestID.
func ValidID(id string) bool {
	return validate(id, "id", maxIDLen, idPattern) == nil
}

// WithRequestID adds request ID to context.
// Panics if requestID is empty or contains invalid characters.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if err := validate(requestID, "requestID", maxIDLen, idPattern); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a default nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
