package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/oews"
	"github.com/JakeFAU/oews-ingest/internal/progress"
)

func newCrawlCmd() *cobra.Command {
	var occupations []string
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Discover which industry series exist for each occupation",
		Long: `Walks the seeded industry hierarchy for every occupation, asking the
timeseries API about each node in batches and descending only below nodes that
have data. Resolutions are recorded as they arrive, so an interrupted crawl
resumes without repeating requests.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.RequireDB(); err != nil {
				return err
			}
			if len(occupations) == 0 {
				occupations = a.Config.Crawl.Occupations
			}
			logger := a.Logger.Named("crawl")

			return withStatusServer(cmd.Context(), a, func(ctx context.Context) error {
				nodes, err := a.Hierarchy.Nodes(ctx)
				if err != nil {
					return err
				}
				tree, orphans, err := oews.BuildTree(nodes)
				if err != nil {
					return fmt.Errorf("build industry tree: %w", err)
				}
				if len(orphans) > 0 {
					logger.Warn("industry nodes without a stored parent skipped", zap.Int("orphans", len(orphans)))
				}
				if tree.Len() == 0 {
					return errors.New("no industries seeded; run seed industries first")
				}
				occs, err := a.Hierarchy.Occupations(ctx, occupations)
				if err != nil {
					return err
				}
				if len(occs) == 0 {
					return errors.New("no matching occupations seeded; run seed occupations first")
				}

				_, err = a.Runner.Track(ctx, "crawl", func(ctx context.Context, tracker *progress.Tracker) error {
					orch, err := a.Orchestrator(tree, tracker)
					if err != nil {
						return err
					}
					_, err = orch.Run(ctx, occs)
					return err
				})
				return err
			})
		},
	}
	cmd.Flags().StringSliceVar(&occupations, "occupation", nil, "crawl only these SOC codes (repeatable)")
	return cmd
}
