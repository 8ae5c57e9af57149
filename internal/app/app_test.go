package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/oews-ingest/internal/config"
	"github.com/JakeFAU/oews-ingest/internal/oews"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		API:     config.APIConfig{Key: "k", BaseURL: "https://api.example", BatchSize: 25, Timeout: time.Second},
		Crawl:   config.CrawlConfig{StartYear: 2021, EndYear: 2024, Workers: 2, FrontierOrder: "fifo"},
		Bulk:    config.BulkConfig{BaseURL: "https://bulk.example/oe", Dir: filepath.Join(dir, "bulk")},
		Archive: config.ArchiveConfig{Backend: "none", Dir: filepath.Join(dir, "archive"), Prefix: "oews"},
		Storage: config.StorageConfig{WriteTimeout: time.Second},
	}
}

func TestNewWithoutDatabase(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	require.Nil(t, a.Pool)
	require.ErrorIs(t, a.RequireDB(), ErrNoDatabase)
	require.NotNil(t, a.Hub)
	require.NotNil(t, a.Runner)

	client, err := a.APIClient()
	require.NoError(t, err)
	require.Equal(t, 25, client.BatchSize())

	_, err = a.Orchestrator(nil, nil)
	require.ErrorIs(t, err, ErrNoDatabase)

	rec := httptest.NewRecorder()
	a.StatusServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	a.StatusServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestArchiveBackends(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	archive, err := a.Archive(context.Background())
	require.NoError(t, err)
	require.Nil(t, archive)

	a.Config.Archive.Backend = "local"
	archive, err = a.Archive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, archive)

	d, err := a.Downloader(context.Background())
	require.NoError(t, err)
	require.NotNil(t, d)

	a.Config.Archive.Backend = "s3"
	_, err = a.Archive(context.Background())
	require.ErrorIs(t, err, oews.ErrConfiguration)
}
