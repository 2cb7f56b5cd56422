package logging

import (
	"fmt"
	"io"

	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/guild/internal/config"
	"github.com/fyrsmithlabs/guild/internal/secrets"
)

// Config holds logging configuration.
type Config struct {
	Level      zapcore.Level     `koanf:"level"`
	Format     string            `koanf:"format"`
	Output     OutputConfig      `koanf:"output"`
	Caller     CallerConfig      `koanf:"caller"`
	Stacktrace StacktraceConfig  `koanf:"stacktrace"`
	Fields     map[string]string `koanf:"fields"`
	Redaction  RedactionConfig   `koanf:"redaction"`
}

// OutputConfig controls where logs are written.
type OutputConfig struct {
	Console bool `koanf:"console"`
	OTEL    bool `koanf:"otel"`

	// Writer replaces stderr for the console output.
	Writer io.Writer `koanf:"-"`
}

// CallerConfig controls caller information in logs.
type CallerConfig struct {
	Enabled bool `koanf:"enabled"`
	Skip    int  `koanf:"skip"`
}

// StacktraceConfig controls stacktrace inclusion.
type StacktraceConfig struct {
	Level zapcore.Level `koanf:"level"`
}

// RedactionConfig controls redaction of console output. Values of the
// listed field names are replaced outright; every other string value and the
// message pass through Scrubber, so a module excerpt in a log line is
// redacted the same way as in a generated document.
type RedactionConfig struct {
	Enabled bool     `koanf:"enabled"`
	Fields  []string `koanf:"fields"`

	// Scrubber defaults to the built-in secret rules.
	Scrubber secrets.Scrubber `koanf:"-"`
}

// DefaultRedactedFields are field names whose values are never logged.
func DefaultRedactedFields() []string {
	return []string{
		"password", "secret", "token", "api_key",
		"authorization", "credential", "private_key",
	}
}

// NewDefaultConfig returns JSON logging at info level to stderr with
// redaction on.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Output: OutputConfig{Console: true},
		Caller: CallerConfig{
			Enabled: true,
			Skip:    2,
		},
		Stacktrace: StacktraceConfig{Level: zapcore.ErrorLevel},
		Fields:     map[string]string{"service": "guild"},
		Redaction: RedactionConfig{
			Enabled: true,
			Fields:  DefaultRedactedFields(),
		},
	}
}

// FromSettings maps the logging section of the guild configuration onto a
// Config. Non-empty version is added as a constant field.
func FromSettings(s config.LoggingConfig, version string) (*Config, error) {
	cfg := NewDefaultConfig()

	if s.Level != "" {
		level, err := LevelFromString(s.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", s.Level, err)
		}
		cfg.Level = level
	}
	if s.Format != "" {
		cfg.Format = s.Format
	}
	if version != "" {
		cfg.Fields["version"] = version
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if !c.Output.Console && !c.Output.OTEL {
		return fmt.Errorf("at least one output must be enabled (console or otel)")
	}
	if c.Caller.Enabled && c.Caller.Skip < 0 {
		return fmt.Errorf("caller skip must be >= 0, got %d", c.Caller.Skip)
	}
	for k, v := range c.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("field %q has empty value", k)
		}
	}
	return nil
}
