// Package config provides configuration loading for guild.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the guild configuration.
type Config struct {
	Compression   CompressionConfig   `koanf:"compression"`
	Paths         PathsConfig         `koanf:"paths"`
	Server        ServerConfig        `koanf:"server"`
	Watch         WatchConfig         `koanf:"watch"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
	Secrets       SecretsConfig       `koanf:"secrets"`
	Events        EventsConfig        `koanf:"events"`
}

// CompressionConfig controls how modules are compressed.
type CompressionConfig struct {
	// Mode selects levels by priority: "install" or "deployment".
	Mode string `koanf:"mode"`

	// Level forces a single level for every module when set.
	Level string `koanf:"level"`

	// DefaultPriority applies to modules without a priority.
	DefaultPriority string `koanf:"default_priority"`

	// Concurrency bounds parallel module compression; 0 uses GOMAXPROCS.
	Concurrency int `koanf:"concurrency"`
}

// PathsConfig locates the guideline tree and the generated output.
type PathsConfig struct {
	GuidelineDir string `koanf:"guideline_dir"`
	ModuleGlob   string `koanf:"module_glob"`
	TemplatesDir string `koanf:"templates_dir"`
	SharedConfig string `koanf:"shared_config"`
	OutputDir    string `koanf:"output_dir"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WatchConfig controls the assemble --watch loop.
type WatchConfig struct {
	Debounce Duration `koanf:"debounce"`
}

// LoggingConfig selects log level and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ObservabilityConfig holds OpenTelemetry settings.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	Endpoint        string `koanf:"endpoint"`
	ServiceName     string `koanf:"service_name"`

	// Protocol is "grpc" or "http/protobuf".
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS; only loopback endpoints accept it.
	Insecure bool `koanf:"insecure"`

	SampleRate float64 `koanf:"sample_rate"`

	// LogExport mirrors log entries to the OpenTelemetry logs bridge.
	LogExport bool `koanf:"log_export"`
}

// SecretsConfig controls redaction of module content before compression.
type SecretsConfig struct {
	Enabled bool `koanf:"enabled"`

	// Engine is "builtin" for the bundled rules or "gitleaks" to add the
	// Gitleaks default rule set.
	Engine string `koanf:"engine"`

	// AllowList adds patterns for values that are never redacted.
	AllowList []string `koanf:"allow_list"`
}

// EventsConfig controls publishing of assembly events to NATS. Publishing is
// off while NATSURL is empty.
type EventsConfig struct {
	NATSURL string `koanf:"nats_url"`

	// Subject is the prefix of published subjects.
	Subject string `koanf:"subject"`

	// Token authenticates to the NATS server when set.
	Token Secret `koanf:"token"`
}

// NewDefault returns the built-in configuration.
func NewDefault() *Config {
	return &Config{
		Compression: CompressionConfig{
			Mode:            "install",
			DefaultPriority: "medium",
		},
		Paths: PathsConfig{
			GuidelineDir: "guideline",
			ModuleGlob:   "core/**/*.md",
			TemplatesDir: "guideline/templates",
			SharedConfig: "guideline/core/shared-intelligence.md",
			OutputDir:    ".claude/commands",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       20,
			RateBurst:       40,
			MaxBodyBytes:    1 << 20,
		},
		Watch: WatchConfig{
			Debounce: Duration(300 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Observability: ObservabilityConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "guild",
			Protocol:    "grpc",
			Insecure:    true,
			SampleRate:  1.0,
		},
		Secrets: SecretsConfig{
			Enabled: true,
			Engine:  "builtin",
		},
		Events: EventsConfig{
			Subject: "guild.assembly",
		},
	}
}

var (
	validModes      = []string{"install", "deployment"}
	validLevels     = []string{"deployment", "minimal", "standard", "comprehensive"}
	validPriorities = []string{"critical", "high", "medium", "low"}
	validLogLevels  = []string{"trace", "debug", "info", "warn", "error"}
	validFormats    = []string{"json", "console"}
	validEngines    = []string{"builtin", "gitleaks"}
	validProtocols  = []string{"grpc", "http/protobuf"}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if !oneOf(c.Compression.Mode, validModes) {
		errs = append(errs, fmt.Errorf("compression.mode must be one of %v, got %q", validModes, c.Compression.Mode))
	}
	if c.Compression.Level != "" && !oneOf(c.Compression.Level, validLevels) {
		errs = append(errs, fmt.Errorf("compression.level must be one of %v, got %q", validLevels, c.Compression.Level))
	}
	if !oneOf(c.Compression.DefaultPriority, validPriorities) {
		errs = append(errs, fmt.Errorf("compression.default_priority must be one of %v, got %q", validPriorities, c.Compression.DefaultPriority))
	}
	if c.Compression.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("compression.concurrency cannot be negative"))
	}

	if c.Paths.GuidelineDir == "" {
		errs = append(errs, fmt.Errorf("paths.guideline_dir is required"))
	}
	if c.Paths.ModuleGlob == "" {
		errs = append(errs, fmt.Errorf("paths.module_glob is required"))
	}
	if c.Paths.OutputDir == "" {
		errs = append(errs, fmt.Errorf("paths.output_dir is required"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit cannot be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		errs = append(errs, fmt.Errorf("server.rate_burst must be positive when rate limiting is enabled"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive"))
	}

	if !oneOf(strings.ToLower(c.Logging.Level), validLogLevels) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %v, got %q", validLogLevels, c.Logging.Level))
	}
	if !oneOf(c.Logging.Format, validFormats) {
		errs = append(errs, fmt.Errorf("logging.format must be one of %v, got %q", validFormats, c.Logging.Format))
	}

	if c.Secrets.Enabled && !oneOf(c.Secrets.Engine, validEngines) {
		errs = append(errs, fmt.Errorf("secrets.engine must be one of %v, got %q", validEngines, c.Secrets.Engine))
	}

	if c.Events.NATSURL != "" && c.Events.Subject == "" {
		errs = append(errs, fmt.Errorf("events.subject is required when events.nats_url is set"))
	}

	if c.Observability.EnableTelemetry && c.Observability.Endpoint == "" {
		errs = append(errs, fmt.Errorf("observability.endpoint is required when telemetry is enabled"))
	}
	if c.Observability.EnableTelemetry && !oneOf(c.Observability.Protocol, validProtocols) {
		errs = append(errs, fmt.Errorf("observability.protocol must be one of %v, got %q", validProtocols, c.Observability.Protocol))
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("observability.sample_rate must be between 0 and 1"))
	}

	return errors.Join(errs...)
}

func oneOf(s string, allowed []string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
