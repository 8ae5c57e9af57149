package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/oews-ingest/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.RequireDB(); err != nil {
				return err
			}
			if err := db.RunMigrations(cmd.Context(), a.Pool); err != nil {
				return err
			}
			a.Logger.Info("migrations applied")
			return nil
		},
	}
}
