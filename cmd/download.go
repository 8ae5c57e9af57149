package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/bulk"
	"github.com/JakeFAU/oews-ingest/internal/progress"
)

func newDownloadCmd() *cobra.Command {
	var (
		discover bool
		files    []string
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the OEWS bulk files",
		Long: `Downloads the bulk distribution files into bulk.dir, replacing each file
atomically, and archives a copy when archive.backend is local or gcs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := a.Config.Bulk
			logger := a.Logger.Named("bulk")
			_, err = a.Runner.Track(cmd.Context(), "download", func(ctx context.Context, tracker *progress.Tracker) error {
				names := files
				if len(names) == 0 {
					names = cfg.Files
				}
				if discover || cfg.Discover {
					found, err := bulk.Discover(ctx, cfg.BaseURL, cfg.UserAgent, cfg.Timeout, logger)
					if err != nil {
						return err
					}
					names = found
				}
				d, err := a.Downloader(ctx)
				if err != nil {
					return err
				}
				got, err := d.FetchAll(ctx, names)
				for _, f := range got {
					tracker.Batch(progress.Event{Stage: progress.StageBatchCommitted, Subject: f.Name, Dur: f.Elapsed})
					logger.Info("bulk file ready",
						zap.String("file", f.Name),
						zap.Int64("bytes", f.Bytes),
						zap.String("sha256", f.SHA256),
						zap.String("archive", f.ArchiveURI))
				}
				return err
			})
			return err
		},
	}
	cmd.Flags().BoolVar(&discover, "discover", false, "list the files from the bulk directory index instead of bulk.files")
	cmd.Flags().StringSliceVar(&files, "file", nil, "download only these files (repeatable)")
	return cmd
}
