// Package sinks implements progress consumers: Prometheus collectors, the
// ingest_runs repository, and structured logging.
package sinks
