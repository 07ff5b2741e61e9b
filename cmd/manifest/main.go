// manifest: feature tree and work session MCP server
//
// manifest keeps a persistent tree of features per project and lets AI
// agents run short work sessions on leaf features. Completing a session
// squashes its tasks into one permanent history entry.
//
// Usage:
//
//	manifest serve              # Start MCP server (stdio transport)
//	manifest tree [project-id]  # Print a project's feature tree
//	manifest migrate            # Apply schema migrations and list them
//	manifest version            # Print the version
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/manifest/internal/config"
	"github.com/HendryAvila/manifest/internal/server"
)

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	home   string
	cfg    config.Config
	logger *slog.Logger
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "manifest",
		Short: "Feature tree and work session MCP server",
		Long: `manifest tracks a tree of features per project and the work sessions
agents run on them. Each completed session is squashed into a permanent
history entry on its feature.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "manifest": {
        "command": "manifest",
        "args": ["serve"]
      }
    }
  }`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.home, "home", "", "Config and data directory (default $MANIFEST_HOME or ~/.manifest)")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newTreeCmd(a))
	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// load reads the configuration and builds the logger. Logs go to stderr;
// stdout belongs to the MCP stdio transport.
func (a *app) load() error {
	home := a.home
	if home == "" {
		home = config.HomeDir()
	}
	cfg, err := config.LoadFrom(home)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(a.logger)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Skip config loading so version works with a broken config.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "manifest v%s\n", server.Version)
			return err
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
