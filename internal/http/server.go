// Package http provides the HTTP API for guild.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/guild/internal/compression"
	"github.com/fyrsmithlabs/guild/internal/logging"
	"github.com/fyrsmithlabs/guild/internal/reference"
	"github.com/fyrsmithlabs/guild/internal/secrets"
)

// Server provides HTTP endpoints for guild.
type Server struct {
	echo     *echo.Echo
	engine   *compression.Engine
	resolver *reference.Resolver
	registry *reference.Registry
	scrubber secrets.Scrubber
	logger   *logging.Logger
	config   *Config
	metrics  *HTTPMetrics
	prom     *compressionCollector
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// Mode is the default compression mode for requests without one.
	Mode compression.Mode

	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// MaxBodyBytes caps request bodies; 0 disables the limit.
	MaxBodyBytes int64

	Version string
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry sets the registry used to resolve references.
func WithRegistry(reg *reference.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithMeterProvider sets the provider for OpenTelemetry request metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Server) {
		s.metrics = NewHTTPMetrics(mp, s.logger.Underlying())
	}
}

// NewServer creates a new HTTP server.
func NewServer(engine *compression.Engine, scrubber secrets.Scrubber, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if scrubber == nil {
		return nil, fmt.Errorf("scrubber cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}
	if cfg.Mode == "" {
		cfg.Mode = compression.ModeInstall
	}
	if _, err := compression.ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		engine:   engine,
		resolver: reference.NewResolver(engine.Patterns()),
		scrubber: scrubber,
		logger:   logger,
		config:   cfg,
		prom:     newCompressionCollector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewHTTPMetrics(nil, logger.Underlying())
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger())
	e.Use(s.metrics.MetricsMiddleware())
	if cfg.MaxBodyBytes > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(cfg.MaxBodyBytes, 10)))
	}
	if cfg.RateLimit > 0 {
		e.Use(rateLimiter(cfg.RateLimit, cfg.RateBurst))
	}

	s.registerRoutes()
	return s, nil
}

// requestLogger attaches the request ID to the request context and logs
// every request once it completes.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()
			if id := c.Response().Header().Get(echo.HeaderXRequestID); logging.ValidID(id) {
				ctx = logging.WithRequestID(ctx, id)
				c.SetRequest(c.Request().WithContext(ctx))
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			s.logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

// rateLimiter limits requests per client IP. Health and metrics endpoints
// are never limited.
func rateLimiter(rps float64, burst int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(rps),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.prom.registry, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/compress", s.handleCompress)
	v1.POST("/validate", s.handleValidate)
	v1.POST("/resolve", s.handleResolve)
	v1.GET("/registry", s.handleRegistry)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
