package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/loader"
	"github.com/JakeFAU/oews-ingest/internal/progress"
)

func newLoadCmd() *cobra.Command {
	var (
		dir   string
		files []string
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load downloaded bulk files into Postgres",
		Long: `Parses and validates each bulk file and upserts it in batches. Reference
tables load first, then oe.series, then the observation files.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.RequireDB(); err != nil {
				return err
			}
			if dir == "" {
				dir = a.Config.Bulk.Dir
			}
			if len(files) == 0 {
				files = a.Config.Bulk.Files
			}
			cfg := a.Config.Loader
			logger := a.Logger.Named("loader")

			return withStatusServer(cmd.Context(), a, func(ctx context.Context) error {
				_, err := a.Runner.Track(ctx, "load", func(ctx context.Context, tracker *progress.Tracker) error {
					l := loader.New(a.Upserter, tracker, logger)
					catalog := loader.Catalog{
						Dir:          dir,
						BatchSizeFor: cfg.BatchSizeFor,
						MaxInvalid:   cfg.MaxInvalid,
					}
					if cfg.FilterKnownSeries {
						catalog.Known = a.Upserter
					}
					jobs, err := catalog.Jobs(l, files)
					if err != nil {
						return err
					}
					results, err := loader.Plan{Jobs: jobs, Concurrency: cfg.Concurrency, Logger: logger}.Run(ctx)
					for _, res := range results {
						if res.File == "" {
							continue
						}
						logger.Info("file loaded",
							zap.String("file", res.File),
							zap.Int64("inserted", res.Inserted),
							zap.Int64("duplicates", res.Duplicates),
							zap.Int64("invalid", res.Invalid))
					}
					return err
				})
				return err
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding the bulk files (default bulk.dir)")
	cmd.Flags().StringSliceVar(&files, "file", nil, "load only these files (repeatable)")
	return cmd
}
