package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/oews-ingest/internal/progress"
	"github.com/JakeFAU/oews-ingest/internal/seed"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the crawl reference tables",
	}
	cmd.AddCommand(newSeedIndustriesCmd(), newSeedOccupationsCmd())
	return cmd
}

func newSeedIndustriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "industries",
		Short: "Fetch the industry hierarchy from the timeseries API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.RequireDB(); err != nil {
				return err
			}
			client, err := a.APIClient()
			if err != nil {
				return err
			}
			_, err = a.Runner.Track(cmd.Context(), "seed", func(ctx context.Context, tracker *progress.Tracker) error {
				s := seed.New(tracker, a.Logger.Named("seed"), a.Config.Loader.BatchSize)
				_, err := s.Industries(ctx, client, a.Hierarchy)
				return err
			})
			return err
		},
	}
}

func newSeedOccupationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "occupations [file]",
		Short: "Seed occupations from an oe.occupation file",
		Long:  `Reads the tab-delimited occupation file, by default oe.occupation in bulk.dir.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.RequireDB(); err != nil {
				return err
			}
			path := filepath.Join(a.Config.Bulk.Dir, "oe.occupation")
			if len(args) == 1 {
				path = args[0]
			}
			_, err = a.Runner.Track(cmd.Context(), "seed", func(ctx context.Context, tracker *progress.Tracker) error {
				s := seed.New(tracker, a.Logger.Named("seed"), a.Config.Loader.BatchSize)
				_, err := s.OccupationsFile(ctx, path, a.Hierarchy)
				return err
			})
			return err
		},
	}
}
