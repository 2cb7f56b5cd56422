package main

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guild/internal/monitor"
)

func newDashboardCmd(root *rootOptions) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Assemble with a live preservation dashboard",
		Long: `Assemble the command documents and show a terminal dashboard of the run:
average preservation score, size reduction and the weakest modules, with
history across rebuilds. Changes to the guideline tree trigger a rebuild
unless --no-watch is given; press r to rebuild by hand and q to quit.

Examples:
  guild dashboard
  guild dashboard --no-watch`,
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

			// Rebuilds come from both the r key and the watcher.
			var mu sync.Mutex
			rebuild := func(ctx context.Context) (monitor.Snapshot, error) {
				mu.Lock()
				defer mu.Unlock()
				run, _, err := a.assembleRun(ctx)
				if err != nil {
					return monitor.Snapshot{}, err
				}
				return monitor.SnapshotFromRun(run, time.Now()), nil
			}

			p := tea.NewProgram(monitor.NewModel(rebuild),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)

			if !noWatch {
				w, _, err := a.newWatcher()
				if err != nil {
					return err
				}
				defer w.Close()

				go func() {
					_ = w.Run(ctx, func(ctx context.Context, changed []string) {
						a.logger.Debug(ctx, "rebuilding after changes", zap.Strings("paths", changed))
						s, err := rebuild(ctx)
						if err != nil {
							p.Send(monitor.ErrMsg{Err: err})
							return
						}
						p.Send(monitor.SnapshotMsg(s))
					})
				}()
			}

			if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not rebuild on file changes")
	return cmd
}
