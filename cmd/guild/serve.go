package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/guild/internal/http"
	"github.com/fyrsmithlabs/guild/internal/mcp"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compression engine over HTTP",
		Long: `Serve compression, validation, reference resolution and the registry over
HTTP. Prometheus metrics are exposed on /metrics.

Examples:
  guild serve
  GUILD_SERVER_PORT=8080 guild serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, port int) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	if port > 0 {
		a.cfg.Server.Port = port
	}
	reg, err := a.registry(ctx)
	if err != nil {
		return err
	}

	srv, err := http.NewServer(a.engine, a.scrubber, a.logger, &http.Config{
		Host:         a.cfg.Server.Host,
		Port:         a.cfg.Server.Port,
		Mode:         a.mode(),
		RateLimit:    a.cfg.Server.RateLimit,
		RateBurst:    a.cfg.Server.RateBurst,
		MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
		Version:      version,
	}, http.WithRegistry(reg), http.WithMeterProvider(a.tel.MeterProvider()))
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(shutdownCtx, "http server shutdown failed", zap.Error(err))
			return err
		}
		return nil
	})
	return g.Wait()
}

func newMCPCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the compression engine as MCP tools over stdio",
		Long: `Run an MCP server on stdin/stdout exposing compress_module,
validate_module, resolve_references, registry_list, tool_search and tool_list.
Logs are written to stderr.

Example client configuration:
  {"command": "guild", "args": ["mcp"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}
			srv, err := mcp.NewServer(&mcp.Config{
				Name:    "guild",
				Version: version,
				Mode:    a.mode(),
			}, a.engine, a.scrubber, a.logger,
				mcp.WithRegistry(reg),
				mcp.WithMeterProvider(a.tel.MeterProvider()),
			)
			if err != nil {
				return fmt.Errorf("creating mcp server: %w", err)
			}
			return srv.Run(ctx)
		},
	}
}
