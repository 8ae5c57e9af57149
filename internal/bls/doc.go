// Package bls is the client for the BLS public data API.
//
// ResolveBatch posts series identifiers to the timeseries endpoint in
// requests of at most MaxBatch identifiers, validates the response shape and
// maps entries back to the requested identifiers by seriesID. Identifiers the
// response omits, or returns with no data, are not found.
package bls
