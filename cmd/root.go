// Package cmd defines the oews-ingest CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/app"
	"github.com/JakeFAU/oews-ingest/internal/config"
	"github.com/JakeFAU/oews-ingest/internal/logging"
)

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

const shutdownTimeout = 15 * time.Second

// newApp is the application factory. Tests replace it.
var newApp = func(ctx context.Context, cfgFile string) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

// rootState owns the App built for the running command.
type rootState struct {
	cfgFile string
	app     *app.App
}

// close releases the App whether or not the command succeeded.
func (s *rootState) close(ctx context.Context) {
	if s.app == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.app.Close(ctx)
	s.app = nil
}

// finish reports err through the App logger, or on stderr when the App was
// never built, then releases the App.
func (s *rootState) finish(ctx context.Context, err error, stderr io.Writer) {
	if err != nil {
		if s.app != nil {
			s.app.Logger.Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(stderr, "oews-ingest:", err)
		}
	}
	s.close(ctx)
}

func newRootCmd() (*cobra.Command, *rootState) {
	state := &rootState{}
	cmd := &cobra.Command{
		Use:   "oews-ingest",
		Short: "Ingest Occupational Employment and Wage Statistics into Postgres.",
		Long: `oews-ingest downloads and loads the OEWS bulk distribution, seeds the
industry and occupation reference tables, and crawls the industry hierarchy
per occupation against the timeseries API, recording which series exist.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), state.cfgFile)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			state.app = a
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			state.close(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&state.cfgFile, "config", "", "config file (YAML); OEWS_* environment variables override it")

	cmd.AddCommand(
		newMigrateCmd(),
		newDownloadCmd(),
		newLoadCmd(),
		newSeedCmd(),
		newCrawlCmd(),
		newServeCmd(),
	)
	return cmd, state
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, state := newRootCmd()
	err := root.ExecuteContext(ctx)
	state.finish(ctx, err, os.Stderr)
	if err != nil {
		stop()
		os.Exit(1)
	}
}
