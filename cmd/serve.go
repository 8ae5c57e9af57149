package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/oews-ingest/internal/app"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and ingest run status over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if port <= 0 {
				port = a.Config.Server.Port
			}
			return a.StatusServer().Serve(cmd.Context(), fmt.Sprintf(":%d", port))
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default server.port)")
	return cmd
}

// withStatusServer runs fn, serving the status API next to it when
// server.enabled is set. The server stops once fn returns.
func withStatusServer(ctx context.Context, a *app.App, fn func(ctx context.Context) error) error {
	if !a.Config.Server.Enabled {
		return fn(ctx)
	}
	serveCtx, stop := context.WithCancel(ctx)
	defer stop()

	var g errgroup.Group
	g.Go(func() error {
		return a.StatusServer().Serve(serveCtx, fmt.Sprintf(":%d", a.Config.Server.Port))
	})
	err := fn(ctx)
	stop()
	if serr := g.Wait(); err == nil {
		err = serr
	}
	return err
}
