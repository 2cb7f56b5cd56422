package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/guild/internal/reference"
)

type registryOptions struct {
	index    bool
	category string
	strict   bool
}

func newRegistryCmd(root *rootOptions) *cobra.Command {
	opts := &registryOptions{}

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "List the shared configuration registry",
		Long: `List the configuration and target entries defined in the shared
configuration document (paths.shared_config).

Examples:
  guild registry
  guild registry --category agent-framework
  guild registry --index > shared-index.md
  guild registry --strict   # fail when entries are rejected`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistry(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.index, "index", false, "print the markdown index embedded in generated documents")
	cmd.Flags().StringVar(&opts.category, "category", "", "only list entries in this category")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with an error when any entry was rejected")
	return cmd
}

func runRegistry(cmd *cobra.Command, root *rootOptions, opts *registryOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	reg, err := reference.Load(a.cfg.Paths.SharedConfig)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.index {
		fmt.Fprintln(out, reg.Index())
	} else {
		fmt.Fprintln(out, registryTable(reg, opts.category))
	}

	invalid := reg.Invalid()
	for _, inv := range invalid {
		fmt.Fprintf(cmd.ErrOrStderr(), "rejected %s\n", inv.Error())
	}
	if opts.strict && len(invalid) > 0 {
		return fmt.Errorf("%d registry entries rejected", len(invalid))
	}
	return nil
}

func registryTable(reg *reference.Registry, category string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "KIND", "CATEGORY", "TITLE")

	for _, e := range reg.Entries() {
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		t.Row(e.ID, string(e.Kind), e.Category, e.Title)
	}
	return t.Render()
}
