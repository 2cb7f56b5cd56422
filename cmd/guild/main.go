// Package main implements the guild CLI.
//
// guild compresses knowledge modules into structured summaries and
// assembles them into command documents. It can also serve the
// compression engine over HTTP or MCP.
//
// Usage:
//
//	# Compress one module and show its preservation report
//	guild compress guideline/core/agent-framework.md --report
//
//	# Assemble every command template, rebuilding on change
//	guild assemble --watch
//
//	# Configure via environment
//	GUILD_COMPRESSION_MODE=deployment guild assemble
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "guild",
		Short: "Compress knowledge modules into command documents",
		Long: `guild compresses markdown knowledge modules into structured summaries that
keep their configuration blocks, compliance targets, enforcement rules and
decision procedures, and assembles them into command documents.

Configuration is read from ~/.config/guild/config.yaml and GUILD_* environment
variables, e.g. GUILD_COMPRESSION_MODE=deployment.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate(versionString() + "\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/guild/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newCompressCmd(opts),
		newAssembleCmd(opts),
		newDashboardCmd(opts),
		newRegistryCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func versionString() string {
	return fmt.Sprintf("guild %s (commit %s, built %s)", version, gitCommit, buildDate)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(versionString())
		},
	}
}
