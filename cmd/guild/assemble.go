package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guild/internal/assembler"
	"github.com/fyrsmithlabs/guild/internal/events"
	"github.com/fyrsmithlabs/guild/internal/watch"
)

type assembleOptions struct {
	watch     bool
	outputDir string
	mode      string
	level     string
}

func newAssembleCmd(root *rootOptions) *cobra.Command {
	opts := &assembleOptions{}

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Compress every module and render the command documents",
		Long: `Load every module under the guideline directory, compress it, and render
each command template with its {{module/key}} placeholders replaced by the
compressed modules. Documents are written to the output directory.

With --watch the guideline tree, templates and shared configuration are
watched and the documents rebuilt after each batch of changes.

Examples:
  guild assemble
  guild assemble --mode deployment --output dist/commands
  guild assemble --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "rebuild when modules, templates or shared configuration change")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "output directory (default from config)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "compression mode: install or deployment (default from config)")
	cmd.Flags().StringVar(&opts.level, "level", "", "force a compression level for every module")
	return cmd
}

func runAssemble(cmd *cobra.Command, root *rootOptions, opts *assembleOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	if opts.outputDir != "" {
		a.cfg.Paths.OutputDir = opts.outputDir
	}
	if opts.mode != "" {
		a.cfg.Compression.Mode = opts.mode
	}
	if opts.level != "" {
		a.cfg.Compression.Level = opts.level
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := a.assembleOnce(ctx, out); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	return a.watchAndAssemble(ctx, out)
}

// assembleRun runs a full load, compress and render pass, writes the
// documents and publishes the outcome. It returns the run and the written
// paths.
func (a *app) assembleRun(ctx context.Context) (*assembler.Run, []string, error) {
	run, written, err := a.buildAndWrite(ctx)
	if err != nil {
		a.publish(ctx, events.Failed("", err, time.Now()))
		return nil, nil, err
	}
	a.publish(ctx, events.Completed(run, time.Now()))
	return run, written, nil
}

func (a *app) buildAndWrite(ctx context.Context) (*assembler.Run, []string, error) {
	loader, err := a.moduleLoader()
	if err != nil {
		return nil, nil, err
	}
	mods, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	templates, err := assembler.LoadTemplates(a.cfg.Paths.TemplatesDir)
	if err != nil {
		return nil, nil, err
	}
	reg, err := a.registry(ctx)
	if err != nil {
		return nil, nil, err
	}

	asm, err := a.assembler(reg)
	if err != nil {
		return nil, nil, err
	}
	run, err := asm.Assemble(ctx, mods, templates)
	if err != nil {
		return nil, nil, err
	}
	run.Revision = assembler.DetectRevision(a.cfg.Paths.GuidelineDir)

	written, err := run.Write(a.cfg.Paths.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	return run, written, nil
}

// assembleOnce runs assembleRun and reports the outcome on out.
func (a *app) assembleOnce(ctx context.Context, out io.Writer) error {
	run, written, err := a.assembleRun(ctx)
	if err != nil {
		return err
	}

	for _, c := range run.Invalid() {
		fmt.Fprintf(out, "warning: %s scored %d/100 (%s)\n", c.Key, c.Result.Report.Score, c.Result.Report.Quality)
	}
	for _, doc := range run.Documents {
		if len(doc.Missing) > 0 {
			fmt.Fprintf(out, "warning: %s references unknown modules: %s\n", doc.Name, strings.Join(doc.Missing, ", "))
		}
	}
	for _, p := range written {
		fmt.Fprintf(out, "wrote %s\n", p)
	}
	if run.Revision != "" {
		fmt.Fprintf(out, "assembled %d document(s) from %d module(s) at %s\n", len(run.Documents), len(run.Modules), run.Revision)
		return nil
	}
	fmt.Fprintf(out, "assembled %d document(s) from %d module(s)\n", len(run.Documents), len(run.Modules))
	return nil
}

// watchAndAssemble rebuilds after each debounced batch of changes until ctx
// is canceled. Failed rebuilds are reported and watching continues.
func (a *app) watchAndAssemble(ctx context.Context, out io.Writer) error {
	w, paths, err := a.newWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(out, "watching %s for changes\n", strings.Join(paths, ", "))
	return w.Run(ctx, func(ctx context.Context, changed []string) {
		a.logger.Info(ctx, "rebuilding after changes", zap.Strings("paths", changed))
		if err := a.assembleOnce(ctx, out); err != nil {
			a.logger.Error(ctx, "rebuild failed", zap.Error(err))
			fmt.Fprintf(out, "rebuild failed: %v\n", err)
		}
	})
}

// newWatcher watches the guideline tree, the templates and the shared
// configuration, ignoring the output directory. It returns the watched
// paths.
func (a *app) newWatcher() (*watch.Watcher, []string, error) {
	outputDir, err := filepath.Abs(a.cfg.Paths.OutputDir)
	if err != nil {
		return nil, nil, err
	}

	w, err := watch.New(a.cfg.Watch.Debounce.Duration(),
		watch.WithLogger(a.logger.Underlying().Named("watch")),
		watch.WithFilter(func(p string) bool {
			return filepath.Ext(p) == ".md" && !strings.HasPrefix(p, outputDir+string(filepath.Separator))
		}),
	)
	if err != nil {
		return nil, nil, err
	}

	paths := []string{a.cfg.Paths.GuidelineDir}
	if !isWithin(a.cfg.Paths.TemplatesDir, a.cfg.Paths.GuidelineDir) {
		paths = append(paths, a.cfg.Paths.TemplatesDir)
	}
	if shared := a.cfg.Paths.SharedConfig; shared != "" && !isWithin(shared, a.cfg.Paths.GuidelineDir) {
		if _, err := os.Stat(shared); err == nil {
			paths = append(paths, shared)
		}
	}
	if err := w.Add(paths...); err != nil {
		_ = w.Close()
		return nil, nil, err
	}
	return w, paths, nil
}

// isWithin reports whether path lies inside dir.
func isWithin(path, dir string) bool {
	absPath, err1 := filepath.Abs(path)
	absDir, err2 := filepath.Abs(dir)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
