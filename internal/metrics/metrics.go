// Package metrics exposes the Prometheus collectors shared by the ingest
// pipeline and the status server.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestsTotal           *prometheus.CounterVec
	apiRequestDurationSeconds  prometheus.Histogram
	apiBatchSeries             prometheus.Histogram
	rateLimitDelaySeconds      *prometheus.HistogramVec
	cacheLookupsTotal          *prometheus.CounterVec
	crawlActiveWorkers         prometheus.Gauge
	downloadBytesTotal         *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors on the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oews_api_requests_total",
			Help: "Timeseries API requests, labeled by outcome.",
		}, []string{"outcome"})

		apiRequestDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "oews_api_request_duration_seconds",
			Help:    "Latency of timeseries API requests.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		})

		apiBatchSeries = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "oews_api_batch_series",
			Help:    "Series identifiers per outgoing API request.",
			Buckets: []float64{1, 5, 10, 20, 30, 40, 50},
		})

		rateLimitDelaySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oews_rate_limit_delay_seconds",
			Help:    "Time spent waiting on the shared rate limiter.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"host"})

		cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oews_cache_lookups_total",
			Help: "Series existence cache lookups, labeled by result.",
		}, []string{"result"})

		crawlActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "oews_crawl_active_workers",
			Help: "Crawl workers currently walking an occupation.",
		})

		downloadBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oews_download_bytes_total",
			Help: "Bytes downloaded from the bulk distribution, labeled by file.",
		}, []string{"file"})

		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Status server requests, labeled by method and code.",
		}, []string{"method", "code"})

		httpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Status server latencies, labeled by method and route.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route"})
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAPIRequest records one timeseries API call.
func ObserveAPIRequest(outcome string, series int, duration time.Duration) {
	Init()
	apiRequestsTotal.WithLabelValues(outcome).Inc()
	apiRequestDurationSeconds.Observe(duration.Seconds())
	apiBatchSeries.Observe(float64(series))
}

// ObserveRateLimitDelay records a wait on the shared limiter.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveCacheLookup counts an existence cache hit or miss.
func ObserveCacheLookup(hit bool) {
	Init()
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// IncActiveWorkers increments the active crawl worker gauge.
func IncActiveWorkers() {
	Init()
	crawlActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active crawl worker gauge.
func DecActiveWorkers() {
	Init()
	crawlActiveWorkers.Dec()
}

// ObserveDownload adds downloaded bytes for a bulk file.
func ObserveDownload(file string, n int64) {
	Init()
	if n > 0 {
		downloadBytesTotal.WithLabelValues(file).Add(float64(n))
	}
}

// ObserveHTTPRequest records one status server request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
