// Package store defines the persistence contracts for ingest run tracking.
// Implementations live in internal/storage; this package must not import
// database drivers.
package store
