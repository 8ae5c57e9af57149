// Package app initializes and holds the long-lived services shared by the
// CLI commands, acting as a small dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/oews-ingest/internal/api"
	"github.com/JakeFAU/oews-ingest/internal/bls"
	"github.com/JakeFAU/oews-ingest/internal/bulk"
	"github.com/JakeFAU/oews-ingest/internal/cache"
	"github.com/JakeFAU/oews-ingest/internal/clock/system"
	"github.com/JakeFAU/oews-ingest/internal/config"
	"github.com/JakeFAU/oews-ingest/internal/crawl"
	"github.com/JakeFAU/oews-ingest/internal/frontier"
	"github.com/JakeFAU/oews-ingest/internal/id/uuid"
	"github.com/JakeFAU/oews-ingest/internal/oews"
	"github.com/JakeFAU/oews-ingest/internal/policy/ratelimit"
	"github.com/JakeFAU/oews-ingest/internal/policy/retry"
	"github.com/JakeFAU/oews-ingest/internal/progress"
	"github.com/JakeFAU/oews-ingest/internal/progress/sinks"
	pspub "github.com/JakeFAU/oews-ingest/internal/publisher/pubsub"
	"github.com/JakeFAU/oews-ingest/internal/storage/gcs"
	"github.com/JakeFAU/oews-ingest/internal/storage/local"
	"github.com/JakeFAU/oews-ingest/internal/storage/postgres"
	"github.com/JakeFAU/oews-ingest/internal/store"
)

// ErrNoDatabase is returned by operations that need Postgres when db.dsn is unset.
var ErrNoDatabase = errors.New("db.dsn is required for this command")

// App holds the services of one CLI invocation. Database-backed fields are
// nil when no DSN is configured.
type App struct {
	Config config.Config
	Logger *zap.Logger

	Pool        *pgxpool.Pool
	Runs        *postgres.RunStore
	Hierarchy   *postgres.HierarchyStore
	Resolutions *postgres.ResolutionStore
	Upserter    *postgres.Upserter

	Hub     *progress.Hub
	Limiter *ratelimit.Limiter
	Runner  *Runner

	pubsubClient *pubsub.Client
	publisher    *pspub.Publisher
	gcsClient    *storage.Client
}

// New connects the configured services. It fails fast on the first service
// that cannot be initialized and releases what was already opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (a *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a = &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
			a = nil
		}
	}()

	progressSinks := []progress.Sink{sinks.NewLogSink(logger)}
	if cfg.DB.DSN != "" {
		pool, err := postgres.Open(ctx, postgres.Config{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return a, err
		}
		a.Pool = pool
		a.Runs = postgres.NewRunStore(pool)
		a.Hierarchy = postgres.NewHierarchyStore(pool)
		a.Resolutions = postgres.NewResolutionStore(pool, cfg.Storage.WriteTimeout)
		a.Upserter = postgres.NewUpserter(pool, cfg.Storage.WriteTimeout)
		progressSinks = append(progressSinks, sinks.NewStoreSink(a.Runs, logger))
	} else {
		logger.Info("no database configured; run history is not persisted")
	}

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	var already prometheus.AlreadyRegisteredError
	switch {
	case err == nil:
		progressSinks = append(progressSinks, promSink)
	case errors.As(err, &already):
		logger.Debug("progress collectors already registered")
	default:
		return a, err
	}

	a.Hub = progress.NewHub(progress.Config{
		BaseContext: context.WithoutCancel(ctx),
		Logger:      logger,
	}, progressSinks...)

	a.Limiter = ratelimit.New(ratelimit.Config{RPS: cfg.API.RequestsPerSecond, Burst: cfg.API.Burst})

	var notifier Notifier
	if cfg.PubSub.Topic != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return a, fmt.Errorf("create pubsub client: %w", err)
		}
		a.pubsubClient = client
		a.publisher = pspub.New(client.Publisher(cfg.PubSub.Topic))
		notifier = a.publisher
		logger.Info("run notifications enabled", zap.String("topic", cfg.PubSub.Topic))
	}

	a.Runner = NewRunner(a.Hub, uuid.NewGenerator(), system.New(), notifier, logger)
	return a, nil
}

// RequireDB reports ErrNoDatabase when Postgres is not configured.
func (a *App) RequireDB() error {
	if a.Pool == nil {
		return ErrNoDatabase
	}
	return nil
}

// APIClient builds a timeseries API client sharing the app's rate limiter.
func (a *App) APIClient() (*bls.Client, error) {
	return bls.New(bls.Config{
		BaseURL:   a.Config.API.BaseURL,
		APIKey:    a.Config.API.Key,
		BatchSize: a.Config.API.BatchSize,
		Timeout:   a.Config.API.Timeout,
		UserAgent: a.Config.API.UserAgent,
	}, nil, a.Limiter, a.Logger.Named("bls"))
}

// Archive returns the configured archive backend, or nil for "none".
func (a *App) Archive(ctx context.Context) (bulk.Archive, error) {
	cfg := a.Config.Archive
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "local":
		blobs, err := local.New(local.Config{BaseDir: cfg.Dir})
		if err != nil {
			return nil, fmt.Errorf("open local archive: %w", err)
		}
		return blobs, nil
	case "gcs":
		if a.gcsClient == nil {
			client, err := storage.NewClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("create gcs client: %w", err)
			}
			a.gcsClient = client
		}
		blobs, err := gcs.New(a.gcsClient, gcs.Config{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
		if err != nil {
			return nil, fmt.Errorf("open gcs archive: %w", err)
		}
		return blobs, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q: %w", cfg.Backend, oews.ErrConfiguration)
	}
}

// Downloader builds a bulk downloader wired to the configured archive.
func (a *App) Downloader(ctx context.Context) (*bulk.Downloader, error) {
	archive, err := a.Archive(ctx)
	if err != nil {
		return nil, err
	}
	prefix := ""
	if a.Config.Archive.Backend == "local" {
		prefix = a.Config.Archive.Prefix
	}
	policy := retry.New(retry.Config{MaxAttempts: a.Config.Bulk.MaxAttempts})
	return bulk.New(bulk.Config{
		BaseURL:       a.Config.Bulk.BaseURL,
		Dir:           a.Config.Bulk.Dir,
		UserAgent:     a.Config.Bulk.UserAgent,
		Timeout:       a.Config.Bulk.Timeout,
		ArchivePrefix: prefix,
	}, nil, policy, archive, a.Logger.Named("bulk"))
}

// Orchestrator builds a crawl orchestrator over tree reporting to tracker.
func (a *App) Orchestrator(tree *oews.Tree, tracker *progress.Tracker) (*crawl.Orchestrator, error) {
	if err := a.RequireDB(); err != nil {
		return nil, err
	}
	order, err := frontier.ParseOrder(a.Config.Crawl.FrontierOrder)
	if err != nil {
		return nil, err
	}
	client, err := a.APIClient()
	if err != nil {
		return nil, err
	}
	return crawl.New(crawl.Config{
		Years:     a.Config.Crawl.Years(),
		BatchSize: a.Config.API.BatchSize,
		Workers:   a.Config.Crawl.Workers,
		Order:     order,
	}, crawl.Deps{
		Tree:    tree,
		Cache:   cache.New(a.Resolutions),
		Client:  client,
		Tracker: tracker,
		Logger:  a.Logger.Named("crawl"),
	})
}

// StatusServer builds the status API. Without a database the run routes
// answer 503 and readiness always passes.
func (a *App) StatusServer() *api.Server {
	var (
		runs  store.RunRepository
		ready api.Pinger
	)
	if a.Pool != nil {
		runs, ready = a.Runs, a.Pool
	}
	return api.NewServer(runs, ready, a.Logger.Named("api"))
}

// Close drains progress events and shuts down every opened service.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Hub != nil {
		if err := a.Hub.Close(ctx); err != nil {
			a.Logger.Warn("close progress hub", zap.Error(err))
		}
	}
	if a.publisher != nil {
		a.publisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.Logger.Warn("close pubsub client", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.Logger.Warn("close gcs client", zap.Error(err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	_ = a.Logger.Sync()
}
