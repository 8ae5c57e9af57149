package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

var fixedNow = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
api:
  key: secret
  batch_size: 25
  timeout: 15s
  requests_per_second: 0.5
crawl:
  start_year: 2020
  end_year: 2023
  workers: 2
  frontier_order: lifo
  occupations: ["11-1011", "29-1141"]
loader:
  data_batch_size: 500
  max_invalid: 10
archive:
  backend: gcs
  bucket: oews-archive
db:
  dsn: postgres://localhost/oews
server:
  enabled: true
  port: 9090
logging:
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := load(path, fixedNow)
	require.NoError(t, err)

	require.Equal(t, "secret", cfg.API.Key)
	require.Equal(t, 25, cfg.API.BatchSize)
	require.Equal(t, 15*time.Second, cfg.API.Timeout)
	require.InDelta(t, 0.5, cfg.API.RequestsPerSecond, 1e-9)
	require.Equal(t, oews.YearRange{Start: 2020, End: 2023}, cfg.Crawl.Years())
	require.Equal(t, "lifo", cfg.Crawl.FrontierOrder)
	require.Equal(t, []string{"11-1011", "29-1141"}, cfg.Crawl.Occupations)
	require.Equal(t, 500, cfg.Loader.BatchSizeFor("oe.data.0.Current"))
	require.Equal(t, 1000, cfg.Loader.BatchSizeFor("oe.series"))
	require.Equal(t, 1000, cfg.Loader.BatchSizeFor("oe.area"))
	require.Equal(t, 10, cfg.Loader.MaxInvalid)
	require.Equal(t, "oews-archive", cfg.Archive.Bucket)
	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Logging.Development)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OEWS_API_KEY", "from-env")

	cfg, err := load("", fixedNow)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.API.Key)
	require.Equal(t, MaxAPIBatch, cfg.API.BatchSize)
	require.Equal(t, 2021, cfg.Crawl.StartYear)
	require.Equal(t, 2026, cfg.Crawl.EndYear)
	require.Equal(t, "fifo", cfg.Crawl.FrontierOrder)
	require.Equal(t, DefaultBulkFiles, cfg.Bulk.Files)
	require.Equal(t, 2000, cfg.Loader.DataBatchSize)
	require.Equal(t, 100, cfg.Loader.MaxInvalid, "a corrupt file fails by default")
	require.Equal(t, "none", cfg.Archive.Backend)
	require.Equal(t, "https://download.bls.gov/pub/time.series/oe", cfg.Bulk.BaseURL)
}

func TestLoadHonorsLegacyKeyVariable(t *testing.T) {
	t.Setenv("BLS_API_KEY", "legacy")

	cfg, err := load("", fixedNow)
	require.NoError(t, err)
	require.Equal(t, "legacy", cfg.API.Key)
}

func TestLoadEnvOverridesNestedKeys(t *testing.T) {
	t.Setenv("OEWS_API_KEY", "k")
	t.Setenv("OEWS_CRAWL_WORKERS", "9")
	t.Setenv("OEWS_API_BATCH_SIZE", "10")

	cfg, err := load("", fixedNow)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Crawl.Workers)
	require.Equal(t, 10, cfg.API.BatchSize)
}

func TestLoadMissingKeyIsConfigurationError(t *testing.T) {
	t.Setenv("OEWS_API_KEY", "")
	t.Setenv("BLS_API_KEY", "")

	_, err := load("", fixedNow)
	require.Error(t, err)
	require.True(t, errors.Is(err, oews.ErrConfiguration))

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "api.key", cerr.Key)
}

func TestValidateRejectsBadTunables(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			API:     APIConfig{Key: "k", BaseURL: "https://api.example", BatchSize: 50, Timeout: time.Second},
			Crawl:   CrawlConfig{StartYear: 2020, EndYear: 2024, Workers: 1, FrontierOrder: "fifo"},
			Loader:  LoaderConfig{BatchSize: 1, SeriesBatchSize: 1, DataBatchSize: 1, Concurrency: 1},
			Bulk:    BulkConfig{BaseURL: "https://bulk.example", Dir: "data"},
			Archive: ArchiveConfig{Backend: "none"},
			DB:      DBConfig{MaxConns: 1},
			Storage: StorageConfig{WriteTimeout: time.Second},
			Server:  ServerConfig{Port: 8080},
		}
	}
	require.NoError(t, base().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{name: "batch over cap", mutate: func(c *Config) { c.API.BatchSize = 51 }, key: "api.batch_size"},
		{name: "zero batch", mutate: func(c *Config) { c.API.BatchSize = 0 }, key: "api.batch_size"},
		{name: "inverted years", mutate: func(c *Config) { c.Crawl.StartYear, c.Crawl.EndYear = 2024, 2020 }, key: "crawl.start_year"},
		{name: "bad order", mutate: func(c *Config) { c.Crawl.FrontierOrder = "random" }, key: "crawl.frontier_order"},
		{name: "zero loader batch", mutate: func(c *Config) { c.Loader.DataBatchSize = 0 }, key: "loader.data_batch_size"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Archive.Backend = "gcs"; c.Archive.Bucket = "" }, key: "archive.bucket"},
		{name: "topic without project", mutate: func(c *Config) { c.PubSub.Topic = "runs"; c.PubSub.ProjectID = "" }, key: "pubsub.project_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			require.Equal(t, tc.key, cerr.Key)
		})
	}
}
