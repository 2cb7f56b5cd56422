package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guild/internal/assembler"
	"github.com/fyrsmithlabs/guild/internal/compression"
	"github.com/fyrsmithlabs/guild/internal/config"
	"github.com/fyrsmithlabs/guild/internal/events"
	"github.com/fyrsmithlabs/guild/internal/logging"
	"github.com/fyrsmithlabs/guild/internal/modules"
	"github.com/fyrsmithlabs/guild/internal/reference"
	"github.com/fyrsmithlabs/guild/internal/secrets"
	"github.com/fyrsmithlabs/guild/internal/telemetry"
)

// newTelemetry starts the telemetry providers.
var newTelemetry = telemetry.New

// app holds the dependencies every command shares.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	tel      *telemetry.Telemetry
	engine   *compression.Engine
	scrubber secrets.Scrubber
	events   events.Publisher
}

// newApp loads configuration and initializes logging, telemetry, the
// compression engine, the secret scrubber and the event publisher. Telemetry
// is shut down again when a later step fails.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	telCfg := telemetry.NewDefaultConfig()
	telCfg.Enabled = cfg.Observability.EnableTelemetry
	telCfg.Endpoint = cfg.Observability.Endpoint
	telCfg.Protocol = cfg.Observability.Protocol
	telCfg.Insecure = cfg.Observability.Insecure
	telCfg.SampleRate = cfg.Observability.SampleRate
	telCfg.ServiceName = cfg.Observability.ServiceName
	telCfg.ServiceVersion = version
	tel, err := newTelemetry(ctx, telCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	fail := func(err error) (*app, error) {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	scrubber, err := newScrubber(cfg.Secrets)
	if err != nil {
		return fail(fmt.Errorf("initializing secret scrubber: %w", err))
	}

	logCfg, err := logging.FromSettings(cfg.Logging, version)
	if err != nil {
		return fail(fmt.Errorf("initializing logger: %w", err))
	}
	logCfg.Output.OTEL = cfg.Observability.EnableTelemetry && cfg.Observability.LogExport
	if cfg.Secrets.Enabled {
		logCfg.Redaction.Scrubber = scrubber
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fail(fmt.Errorf("initializing logger: %w", err))
	}
	for _, problem := range tel.Health().Problems {
		logger.Warn(ctx, "telemetry degraded", zap.Error(problem))
	}

	engine, err := compression.NewEngine(
		compression.WithLogger(logger.Underlying().Named("compression")),
		compression.WithTracerProvider(tel.TracerProvider()),
		compression.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		_ = logger.Sync()
		return fail(fmt.Errorf("initializing compression engine: %w", err))
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.NATSURL != "" {
		p, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject,
			events.WithLogger(logger.Underlying().Named("events")),
			events.WithToken(cfg.Events.Token))
		if err != nil {
			logger.Warn(ctx, "event publisher unavailable, events disabled", zap.Error(err))
		} else {
			publisher = p
		}
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		tel:      tel,
		engine:   engine,
		scrubber: scrubber,
		events:   publisher,
	}, nil
}

func newScrubber(s config.SecretsConfig) (secrets.Scrubber, error) {
	if !s.Enabled {
		return &secrets.NoopScrubber{}, nil
	}
	cfg := secrets.DefaultConfig()
	cfg.AllowList = append(cfg.AllowList, s.AllowList...)
	return secrets.NewEngine(s.Engine, cfg)
}

// Close drains the event publisher and flushes telemetry and the logger.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events close: %w", err))
		}
	}
	if a.tel != nil {
		if err := a.tel.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// mode returns the configured compression mode.
func (a *app) mode() compression.Mode {
	m, err := compression.ParseMode(a.cfg.Compression.Mode)
	if err != nil {
		return compression.ModeInstall
	}
	return m
}

// registry loads the shared configuration registry. A missing file yields an
// empty registry so assembly still runs without reference resolution.
func (a *app) registry(ctx context.Context) (*reference.Registry, error) {
	path := a.cfg.Paths.SharedConfig
	if path == "" {
		return reference.NewRegistry(), nil
	}
	reg, err := reference.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.logger.Warn(ctx, "shared configuration not found, references stay unresolved", zap.String("path", path))
			return reference.NewRegistry(), nil
		}
		return nil, err
	}
	for _, inv := range reg.Invalid() {
		a.logger.Warn(ctx, "invalid registry entry", zap.String("id", inv.ID), zap.Error(inv.Err))
	}
	a.logger.Debug(ctx, "loaded shared configuration", zap.String("path", path), zap.Int("entries", reg.Len()))
	return reg, nil
}

// assembler returns an assembler configured from the loaded settings.
func (a *app) assembler(reg *reference.Registry) (*assembler.Assembler, error) {
	opts := []assembler.Option{
		assembler.WithRegistry(reg),
		assembler.WithScrubber(a.scrubber),
		assembler.WithLogger(a.logger),
		assembler.WithMode(a.mode()),
		assembler.WithConcurrency(a.cfg.Compression.Concurrency),
	}
	if a.cfg.Compression.Level != "" {
		level, err := compression.ParseLevel(a.cfg.Compression.Level)
		if err != nil {
			return nil, err
		}
		opts = append(opts, assembler.WithLevel(level))
	}
	return assembler.New(a.engine, opts...)
}

// moduleLoader returns a loader over the configured guideline directory.
func (a *app) moduleLoader() (*modules.Loader, error) {
	priority, _ := compression.ParsePriority(a.cfg.Compression.DefaultPriority)
	return modules.NewDirLoader(a.cfg.Paths.GuidelineDir,
		modules.WithGlob(a.cfg.Paths.ModuleGlob),
		modules.WithDefaultPriority(priority),
		modules.WithLoaderLogger(a.logger.Underlying().Named("modules")),
	)
}

// publish sends an assembly event. Failures are logged and never fail the
// run.
func (a *app) publish(ctx context.Context, e *events.Event) {
	if a.events == nil {
		return
	}
	if err := a.events.Publish(ctx, e); err != nil {
		a.logger.Warn(ctx, "publishing assembly event failed", zap.String("status", e.Status), zap.Error(err))
	}
}
