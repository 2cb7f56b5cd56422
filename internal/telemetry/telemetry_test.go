package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/fyrsmithlabs/guild/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.NotNil(t, tel.TracerProvider())
	assert.NotNil(t, tel.MeterProvider())
	assert.False(t, tel.IsEnabled())

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)
	assert.Empty(t, health.Problems)
}

func TestNew_InvalidConfig(t *testing.T) {
	tel, err := New(context.Background(), &Config{Enabled: true})
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestNew_Enabled(t *testing.T) {
	for _, protocol := range []string{ProtocolGRPC, ProtocolHTTP} {
		t.Run(protocol, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			cfg.Protocol = protocol
			cfg.Endpoint = "127.0.0.1:1"
			cfg.ShutdownTimeout = config.Duration(100 * time.Millisecond)

			// Exporters connect lazily, so an unreachable collector does not
			// fail construction.
			tel, err := New(context.Background(), cfg)
			require.NoError(t, err)
			assert.True(t, tel.IsEnabled())
			assert.False(t, tel.Health().Degraded)
			_, isSDK := tel.TracerProvider().(*sdktrace.TracerProvider)
			assert.True(t, isSDK)
			assert.NotNil(t, tel.LoggerProvider())

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			_ = tel.Shutdown(ctx)
			assert.False(t, tel.IsEnabled())
		})
	}
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.MetricsInterval = 0

	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, tel.meterProvider)
	assert.NotNil(t, tel.Meter("test"))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = tel.Shutdown(ctx)
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		_ = tel.Tracer("test")
		_ = tel.Meter("test")
		_ = tel.LoggerProvider()
		tel.SetLoggerProvider(nil)
		_ = tel.IsEnabled()
		_ = tel.Shutdown(context.Background())
		_ = tel.ForceFlush(context.Background())
	})

	health := tel.Health()
	assert.False(t, health.Healthy)
	assert.True(t, health.Degraded)
}

func TestTelemetry_Shutdown(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	require.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.Health().Healthy)
}

func TestTelemetry_LoggerProvider(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, tel.LoggerProvider())

	lp := noop.NewLoggerProvider()
	tel.SetLoggerProvider(lp)
	assert.Equal(t, lp, tel.LoggerProvider())
}

func TestTelemetry_Degraded(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	tel.setDegraded(assert.AnError)
	health := tel.Health()
	assert.True(t, health.Degraded)
	require.Len(t, health.Problems, 1)
	assert.ErrorIs(t, health.Problems[0], assert.AnError)
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "ParentBased{root:AlwaysOnSampler"},
		{0, "ParentBased{root:AlwaysOffSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		assert.Contains(t, newSampler(tt.rate).Description(), tt.want)
	}
}

func TestTestTelemetry_Spans(t *testing.T) {
	tt := NewTestTelemetry()

	_, span := tt.Tracer("test").Start(context.Background(), "compression.compress")
	span.SetAttributes(
		attribute.String("module.name", "framework"),
		attribute.Int("module.tokens", 120),
	)
	span.End()

	tt.AssertSpanExists(t, "compression.compress")
	tt.AssertSpanAttribute(t, "compression.compress", "module.name", "framework")
	tt.AssertSpanAttribute(t, "compression.compress", "module.tokens", int64(120))
	assert.Nil(t, tt.SpanByName("missing"))
	assert.Len(t, tt.Spans(), 1)
}

func TestTestTelemetry_Metrics(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	counter, err := tt.Meter("test").Int64Counter("guild.modules.compressed")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	require.NoError(t, tt.MetricReader.ForceFlush(ctx))
	assert.Len(t, tt.MetricReader.Metrics(), 1)

	m, ok := tt.MetricReader.Find("guild.modules.compressed")
	require.True(t, ok)
	assert.Equal(t, "guild.modules.compressed", m.Name)

	_, ok = tt.MetricReader.Find("missing")
	assert.False(t, ok)
}
