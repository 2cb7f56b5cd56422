package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/guild/internal/assembler"
	"github.com/fyrsmithlabs/guild/internal/compression"
	"github.com/fyrsmithlabs/guild/internal/modules"
)

type compressOptions struct {
	mode     string
	level    string
	priority string
	category string
	name     string
	report   bool
	noColor  bool
}

func newCompressCmd(root *rootOptions) *cobra.Command {
	opts := &compressOptions{}

	cmd := &cobra.Command{
		Use:   "compress <file|->",
		Short: "Compress a single knowledge module",
		Long: `Compress a single knowledge module and print the result.

Frontmatter (name, priority, category) is read from the file; flags override
it. Secrets are redacted and registry references resolved before compression,
exactly as during assembly.

Examples:
  guild compress guideline/core/agent-framework.md
  guild compress --level minimal --report module.md
  cat module.md | guild compress --priority critical -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompress(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", "", "compression mode: install or deployment (default from config)")
	cmd.Flags().StringVar(&opts.level, "level", "", "force a compression level: deployment, minimal, standard, comprehensive")
	cmd.Flags().StringVar(&opts.priority, "priority", "", "override the module priority: critical, high, medium, low")
	cmd.Flags().StringVar(&opts.category, "category", "", "override the module category")
	cmd.Flags().StringVar(&opts.name, "name", "", "override the module name")
	cmd.Flags().BoolVar(&opts.report, "report", false, "print the preservation report before the content")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored report output")
	return cmd
}

func runCompress(cmd *cobra.Command, root *rootOptions, opts *compressOptions, src string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	data, name, err := readModule(cmd.InOrStdin(), src)
	if err != nil {
		return err
	}

	priority, _ := compression.ParsePriority(a.cfg.Compression.DefaultPriority)
	m, err := modules.NewLoader(nil, modules.WithDefaultPriority(priority)).Parse(name, data)
	if err != nil {
		return err
	}
	if opts.priority != "" {
		p, ok := compression.ParsePriority(opts.priority)
		if !ok {
			return fmt.Errorf("unknown priority %q", opts.priority)
		}
		m.Priority = p
	}
	if opts.category != "" {
		m.Category = opts.category
	}
	if opts.name != "" {
		m.Name = opts.name
	}

	reg, err := a.registry(ctx)
	if err != nil {
		return err
	}
	if opts.mode != "" {
		a.cfg.Compression.Mode = opts.mode
	}
	if opts.level != "" {
		a.cfg.Compression.Level = opts.level
	}
	if _, err := compression.ParseMode(a.cfg.Compression.Mode); err != nil {
		return err
	}
	a.cfg.Compression.Concurrency = 1

	asm, err := a.assembler(reg)
	if err != nil {
		return err
	}
	compressed, err := asm.Compress(ctx, []*modules.Module{m})
	if err != nil {
		return err
	}
	return printCompressed(cmd.OutOrStdout(), compressed[0], opts)
}

// readModule reads src, or stdin when src is "-". The returned name is the
// module path used for key and default name derivation.
func readModule(stdin io.Reader, src string) ([]byte, string, error) {
	if src == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return data, "stdin.md", nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, "", fmt.Errorf("reading module: %w", err)
	}
	return data, filepath.ToSlash(filepath.Base(src)), nil
}

func printCompressed(w io.Writer, c *assembler.Compressed, opts *compressOptions) error {
	if opts.report {
		if err := compression.RenderReport(w, c.Result, compression.ReportOptions{
			Color: !opts.noColor && os.Getenv("NO_COLOR") == "",
		}); err != nil {
			return err
		}
		if c.Redactions > 0 {
			fmt.Fprintf(w, "  Redacted:  %d secret(s)\n", c.Redactions)
		}
		if len(c.Unresolved) > 0 {
			fmt.Fprintf(w, "  Unresolved: %s\n", strings.Join(c.Unresolved, ", "))
		}
		fmt.Fprintln(w)
	}
	_, err := fmt.Fprintln(w, c.Embedded)
	return err
}
