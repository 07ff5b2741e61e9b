package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/manifest/internal/server"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and list the applied versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store applies pending migrations.
			st, err := server.OpenStore(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer st.Close()

			versions, err := st.SchemaVersions(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "database: %s\n", a.cfg.DBPath())
			for _, v := range versions {
				fmt.Fprintf(out, "  applied %s\n", v)
			}
			return nil
		},
	}
}
