package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/manifest/internal/render"
	"github.com/HendryAvila/manifest/internal/server"
)

func newTreeCmd(a *app) *cobra.Command {
	var (
		useColor bool
		legend   bool
	)
	cmd := &cobra.Command{
		Use:   "tree [project-id]",
		Short: "Print a project's feature tree",
		Long: `Print a project's feature tree with state symbols.

Without a project ID, the project whose registered directory contains the
current working directory is used.

Examples:
  manifest tree                 # Project of the current directory
  manifest tree 5f1c...         # A specific project
  manifest tree --legend        # Explain the symbols`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := server.OpenStore(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer st.Close()

			var projectID string
			if len(args) == 1 {
				projectID = args[0]
			} else {
				wd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getting working directory: %w", err)
				}
				p, err := st.FindProjectByDirectory(ctx, wd)
				if err != nil {
					return err
				}
				if p == nil {
					return fmt.Errorf("no project is registered for %s", wd)
				}
				projectID = p.ID
			}

			nodes, err := st.ProjectTree(ctx, projectID)
			if err != nil {
				return err
			}
			opts := render.Options{Color: useColor}
			out := cmd.OutOrStdout()
			if len(nodes) == 0 {
				fmt.Fprintln(out, "(no features)")
			} else {
				fmt.Fprint(out, render.Tree(nodes, opts))
			}
			if legend {
				fmt.Fprintln(out)
				fmt.Fprintln(out, render.Legend(opts))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useColor, "color", !color.NoColor, "Colour state symbols")
	cmd.Flags().BoolVar(&legend, "legend", false, "Print the symbol legend")
	return cmd
}
