package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/guild/internal/config"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Output.Console)
	assert.False(t, cfg.Output.OTEL)
	assert.True(t, cfg.Caller.Enabled)
	assert.Equal(t, zapcore.ErrorLevel, cfg.Stacktrace.Level)
	assert.Equal(t, "guild", cfg.Fields["service"])
	assert.True(t, cfg.Redaction.Enabled)
	assert.Contains(t, cfg.Redaction.Fields, "token")
	assert.Nil(t, cfg.Redaction.Scrubber)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "console format", mutate: func(c *Config) { c.Format = "console" }},
		{name: "otel only", mutate: func(c *Config) { c.Output.Console = false; c.Output.OTEL = true }},
		{name: "nil fields", mutate: func(c *Config) { c.Fields = nil }},
		{
			name:    "bad format",
			mutate:  func(c *Config) { c.Format = "xml" },
			wantErr: "format must be",
		},
		{
			name:    "no outputs",
			mutate:  func(c *Config) { c.Output.Console = false },
			wantErr: "at least one output",
		},
		{
			name:    "negative caller skip",
			mutate:  func(c *Config) { c.Caller.Skip = -1 },
			wantErr: "caller skip",
		},
		{
			name:   "negative skip ignored without caller",
			mutate: func(c *Config) { c.Caller.Enabled = false; c.Caller.Skip = -1 },
		},
		{
			name:    "empty field key",
			mutate:  func(c *Config) { c.Fields[""] = "x" },
			wantErr: "field key cannot be empty",
		},
		{
			name:    "empty field value",
			mutate:  func(c *Config) { c.Fields["env"] = "" },
			wantErr: `field "env" has empty value`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
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

func TestFromSettings(t *testing.T) {
	tests := []struct {
		name       string
		settings   config.LoggingConfig
		wantLevel  zapcore.Level
		wantFormat string
		wantErr    bool
	}{
		{
			name:       "empty keeps defaults",
			wantLevel:  zapcore.InfoLevel,
			wantFormat: "json",
		},
		{
			name:       "warn console",
			settings:   config.LoggingConfig{Level: "WARN", Format: "console"},
			wantLevel:  zapcore.WarnLevel,
			wantFormat: "console",
		},
		{
			name:       "trace",
			settings:   config.LoggingConfig{Level: "trace"},
			wantLevel:  TraceLevel,
			wantFormat: "json",
		},
		{
			name:     "unknown level",
			settings: config.LoggingConfig{Level: "loud"},
			wantErr:  true,
		},
		{
			name:     "unknown format",
			settings: config.LoggingConfig{Format: "xml"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromSettings(tt.settings, "1.2.3")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, cfg.Level)
			assert.Equal(t, tt.wantFormat, cfg.Format)
			assert.Equal(t, "1.2.3", cfg.Fields["version"])
			assert.Equal(t, "guild", cfg.Fields["service"])
		})
	}

	cfg, err := FromSettings(config.LoggingConfig{}, "")
	require.NoError(t, err)
	assert.NotContains(t, cfg.Fields, "version")
}
