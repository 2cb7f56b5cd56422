package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	assert.Equal(t, "install", cfg.Compression.Mode)
	assert.Empty(t, cfg.Compression.Level)
	assert.Equal(t, "medium", cfg.Compression.DefaultPriority)
	assert.Equal(t, "core/**/*.md", cfg.Paths.ModuleGlob)
	assert.Equal(t, "localhost:9191", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce.Duration())
	assert.False(t, cfg.Observability.EnableTelemetry)
	assert.Equal(t, "grpc", cfg.Observability.Protocol)
	assert.Equal(t, 1.0, cfg.Observability.SampleRate)
	assert.True(t, cfg.Secrets.Enabled)
	assert.Equal(t, "builtin", cfg.Secrets.Engine)
	assert.Empty(t, cfg.Events.NATSURL)
	assert.Equal(t, "guild.assembly", cfg.Events.Subject)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "deployment mode with fixed level",
			mutate: func(c *Config) { c.Compression.Mode = "deployment"; c.Compression.Level = "minimal" },
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Compression.Mode = "turbo" },
			wantErr: "compression.mode",
		},
		{
			name:    "unknown level",
			mutate:  func(c *Config) { c.Compression.Level = "maximal" },
			wantErr: "compression.level",
		},
		{
			name:    "unknown priority",
			mutate:  func(c *Config) { c.Compression.DefaultPriority = "urgent" },
			wantErr: "compression.default_priority",
		},
		{
			name:    "negative concurrency",
			mutate:  func(c *Config) { c.Compression.Concurrency = -1 },
			wantErr: "compression.concurrency",
		},
		{
			name:    "missing guideline dir",
			mutate:  func(c *Config) { c.Paths.GuidelineDir = "" },
			wantErr: "paths.guideline_dir",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "rate limit without burst",
			mutate:  func(c *Config) { c.Server.RateBurst = 0 },
			wantErr: "server.rate_burst",
		},
		{
			name:   "rate limiting disabled",
			mutate: func(c *Config) { c.Server.RateLimit = 0; c.Server.RateBurst = 0 },
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:   "upper case log level",
			mutate: func(c *Config) { c.Logging.Level = "DEBUG" },
		},
		{
			name:   "gitleaks engine",
			mutate: func(c *Config) { c.Secrets.Engine = "gitleaks" },
		},
		{
			name:    "unknown secrets engine",
			mutate:  func(c *Config) { c.Secrets.Engine = "trufflehog" },
			wantErr: "secrets.engine",
		},
		{
			name:   "engine ignored when scrubbing is disabled",
			mutate: func(c *Config) { c.Secrets.Enabled = false; c.Secrets.Engine = "" },
		},
		{
			name:    "events without subject",
			mutate:  func(c *Config) { c.Events.NATSURL = "nats://localhost:4222"; c.Events.Subject = "" },
			wantErr: "events.subject",
		},
		{
			name:    "telemetry without endpoint",
			mutate:  func(c *Config) { c.Observability.EnableTelemetry = true; c.Observability.Endpoint = "" },
			wantErr: "observability.endpoint",
		},
		{
			name:    "telemetry with unknown protocol",
			mutate:  func(c *Config) { c.Observability.EnableTelemetry = true; c.Observability.Protocol = "thrift" },
			wantErr: "observability.protocol",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Observability.SampleRate = 2 },
			wantErr: "observability.sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateReportsAllErrors(t *testing.T) {
	cfg := NewDefault()
	cfg.Compression.Mode = "turbo"
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compression.mode")
	assert.Contains(t, err.Error(), "server.port")
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("hunter2")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"[REDACTED]"`, string(data))

	text, err := s.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", string(text))
	assert.NotContains(t, fmt.Sprintf("%v %+v %#v", s, s, s), "hunter2")

	assert.Empty(t, Secret("").String())
	assert.False(t, Secret("").IsSet())

	var parsed Secret
	require.NoError(t, parsed.UnmarshalText([]byte("s3cret")))
	assert.Equal(t, "s3cret", parsed.Value())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
