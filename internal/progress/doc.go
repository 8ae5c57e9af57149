// Package progress carries ingest and crawl progress events from the loaders
// and crawl workers to pluggable sinks. Emitters never block: events are
// buffered, batched on a background goroutine, and dropped under backpressure.
package progress
