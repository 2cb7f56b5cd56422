package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"

	"github.com/fyrsmithlabs/guild/internal/compression"
	"github.com/fyrsmithlabs/guild/internal/logging"
	"github.com/fyrsmithlabs/guild/internal/reference"
	"github.com/fyrsmithlabs/guild/internal/secrets"
)

// Server exposes the compression engine as MCP tools.
type Server struct {
	mcp          *mcp.Server
	engine       *compression.Engine
	resolver     *reference.Resolver
	registry     *reference.Registry
	scrubber     secrets.Scrubber
	toolRegistry *ToolRegistry
	metrics      *Metrics
	logger       *logging.Logger
	mode         compression.Mode
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "guild")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Mode is the default compression mode for calls without one.
	Mode compression.Mode
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "guild",
		Version: "dev",
		Mode:    compression.ModeInstall,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry sets the registry used to resolve references.
func WithRegistry(reg *reference.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithMeterProvider sets the provider for tool metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Server) {
		s.metrics = NewMetrics(mp, s.logger.Underlying())
	}
}

// NewServer creates an MCP server and registers its tools.
func NewServer(cfg *Config, engine *compression.Engine, scrubber secrets.Scrubber, logger *logging.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if scrubber == nil {
		return nil, fmt.Errorf("scrubber is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	mode, err := compression.ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		engine:       engine,
		resolver:     reference.NewResolver(engine.Patterns()),
		scrubber:     scrubber,
		toolRegistry: NewToolRegistry(),
		logger:       logger.Named("mcp"),
		mode:         mode,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil, s.logger.Underlying())
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// Tools returns the registry of tools the server exposes.
func (s *Server) Tools() *ToolRegistry {
	return s.toolRegistry
}

// Run serves MCP on the stdio transport until ctx is canceled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve serves MCP on transport.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info(ctx, "starting MCP server")
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
