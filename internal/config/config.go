// Package config loads and validates ingest configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

// Config captures every configuration knob.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Loader  LoaderConfig  `mapstructure:"loader"`
	Bulk    BulkConfig    `mapstructure:"bulk"`
	Archive ArchiveConfig `mapstructure:"archive"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig configures the timeseries API client.
type APIConfig struct {
	Key               string        `mapstructure:"key"`
	BaseURL           string        `mapstructure:"base_url"`
	BatchSize         int           `mapstructure:"batch_size"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// CrawlConfig configures the hierarchy crawl.
type CrawlConfig struct {
	StartYear     int    `mapstructure:"start_year"`
	EndYear       int    `mapstructure:"end_year"`
	Workers       int    `mapstructure:"workers"`
	FrontierOrder string `mapstructure:"frontier_order"`
	// Occupations restricts the crawl to these SOC codes when non-empty.
	Occupations []string `mapstructure:"occupations"`
}

// Years returns the configured year range.
func (c CrawlConfig) Years() oews.YearRange {
	return oews.YearRange{Start: c.StartYear, End: c.EndYear}
}

// LoaderConfig configures the bulk file loader.
type LoaderConfig struct {
	BatchSize         int  `mapstructure:"batch_size"`
	SeriesBatchSize   int  `mapstructure:"series_batch_size"`
	DataBatchSize     int  `mapstructure:"data_batch_size"`
	MaxInvalid        int  `mapstructure:"max_invalid"`
	Concurrency       int  `mapstructure:"concurrency"`
	FilterKnownSeries bool `mapstructure:"filter_known_series"`
}

// BulkConfig configures bulk file download.
type BulkConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Dir         string        `mapstructure:"dir"`
	Files       []string      `mapstructure:"files"`
	Discover    bool          `mapstructure:"discover"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// ArchiveConfig selects where downloaded bulk files are archived.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// StorageConfig bounds storage writes.
type StorageConfig struct {
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ServerConfig controls the status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// PubSubConfig enables run notifications when Topic is set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MaxAPIBatch is the upstream cap on series per timeseries request.
const MaxAPIBatch = 50

// Error reports a missing or invalid setting. It matches oews.ErrConfiguration.
type Error struct {
	Key string
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Msg)
}

// Is lets errors.Is(err, oews.ErrConfiguration) match.
func (e *Error) Is(target error) bool {
	return target == oews.ErrConfiguration
}

func invalid(key, format string, args ...any) error {
	return &Error{Key: key, Msg: fmt.Sprintf(format, args...)}
}

// Load builds a Config from an optional file plus OEWS_* environment variables.
func Load(path string) (Config, error) {
	return load(path, time.Now())
}

func load(path string, now time.Time) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OEWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api.key", "OEWS_API_KEY", "BLS_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind api key env: %w", err)
	}
	if err := v.BindEnv("db.dsn", "OEWS_DB_DSN", "DATABASE_URL"); err != nil {
		return Config{}, fmt.Errorf("bind dsn env: %w", err)
	}

	setDefaults(v, now)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultBulkFiles is the bulk distribution file set in load order.
var DefaultBulkFiles = []string{
	"oe.area",
	"oe.areatype",
	"oe.datatype",
	"oe.footnote",
	"oe.industry",
	"oe.occupation",
	"oe.release",
	"oe.seasonal",
	"oe.sector",
	"oe.series",
	"oe.data.0.Current",
}

func setDefaults(v *viper.Viper, now time.Time) {
	v.SetDefault("api.base_url", "https://api.bls.gov/publicAPI/v2")
	v.SetDefault("api.batch_size", MaxAPIBatch)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.requests_per_second", 1.0)
	v.SetDefault("api.burst", 1)
	v.SetDefault("api.user_agent", "oews-ingest/0.1")
	v.SetDefault("crawl.start_year", now.Year()-5)
	v.SetDefault("crawl.end_year", now.Year())
	v.SetDefault("crawl.workers", 4)
	v.SetDefault("crawl.frontier_order", "fifo")
	v.SetDefault("crawl.occupations", []string{})
	v.SetDefault("loader.batch_size", 1000)
	v.SetDefault("loader.series_batch_size", 1000)
	v.SetDefault("loader.data_batch_size", 2000)
	v.SetDefault("loader.max_invalid", 100)
	v.SetDefault("loader.concurrency", 4)
	v.SetDefault("loader.filter_known_series", true)
	v.SetDefault("bulk.base_url", "https://download.bls.gov/pub/time.series/oe")
	v.SetDefault("bulk.dir", "data/bulk/oe")
	v.SetDefault("bulk.files", DefaultBulkFiles)
	v.SetDefault("bulk.discover", false)
	v.SetDefault("bulk.user_agent", "oews-ingest/0.1 (contact: data-team@example.com)")
	v.SetDefault("bulk.timeout", 10*time.Minute)
	v.SetDefault("bulk.max_attempts", 3)
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.dir", "data/archive")
	v.SetDefault("archive.prefix", "oews")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("storage.write_timeout", 30*time.Second)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values. Correctness-critical tunables are never
// silently clamped.
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.Key) == "" {
		return invalid("api.key", "is required (set OEWS_API_KEY or BLS_API_KEY)")
	}
	if c.API.BaseURL == "" {
		return invalid("api.base_url", "is required")
	}
	if c.API.BatchSize <= 0 || c.API.BatchSize > MaxAPIBatch {
		return invalid("api.batch_size", "must be between 1 and %d, got %d", MaxAPIBatch, c.API.BatchSize)
	}
	if c.API.Timeout <= 0 {
		return invalid("api.timeout", "must be > 0")
	}
	if c.API.RequestsPerSecond < 0 {
		return invalid("api.requests_per_second", "must be >= 0")
	}
	if err := c.Crawl.Years().Validate(); err != nil {
		return invalid("crawl.start_year", "%v", err)
	}
	if c.Crawl.Workers <= 0 {
		return invalid("crawl.workers", "must be > 0")
	}
	switch c.Crawl.FrontierOrder {
	case "fifo", "lifo":
	default:
		return invalid("crawl.frontier_order", "must be fifo or lifo, got %q", c.Crawl.FrontierOrder)
	}
	for key, n := range map[string]int{
		"loader.batch_size":        c.Loader.BatchSize,
		"loader.series_batch_size": c.Loader.SeriesBatchSize,
		"loader.data_batch_size":   c.Loader.DataBatchSize,
		"loader.concurrency":       c.Loader.Concurrency,
	} {
		if n <= 0 {
			return invalid(key, "must be > 0, got %d", n)
		}
	}
	if c.Loader.MaxInvalid < 0 {
		return invalid("loader.max_invalid", "must be >= 0")
	}
	if c.Bulk.BaseURL == "" {
		return invalid("bulk.base_url", "is required")
	}
	if c.Bulk.Dir == "" {
		return invalid("bulk.dir", "is required")
	}
	switch c.Archive.Backend {
	case "none", "":
	case "local":
		if c.Archive.Dir == "" {
			return invalid("archive.dir", "is required for the local backend")
		}
	case "gcs":
		if c.Archive.Bucket == "" {
			return invalid("archive.bucket", "is required for the gcs backend")
		}
	default:
		return invalid("archive.backend", "must be none, local or gcs, got %q", c.Archive.Backend)
	}
	if c.DB.MaxConns <= 0 {
		return invalid("db.max_conns", "must be > 0")
	}
	if c.Storage.WriteTimeout <= 0 {
		return invalid("storage.write_timeout", "must be > 0")
	}
	if c.Server.Port <= 0 {
		return invalid("server.port", "must be > 0")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return invalid("pubsub.project_id", "is required when pubsub.topic is set")
	}
	return nil
}

// BatchSizeFor returns the configured loader batch size for a bulk file.
func (c LoaderConfig) BatchSizeFor(file string) int {
	switch {
	case file == "oe.series":
		return c.SeriesBatchSize
	case strings.HasPrefix(file, "oe.data."):
		return c.DataBatchSize
	default:
		return c.BatchSize
	}
}
