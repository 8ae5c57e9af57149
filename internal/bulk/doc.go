// Package bulk downloads the OEWS flat-file distribution.
//
// Files are streamed to a temporary file next to their destination, hashed
// on the way through, and renamed into place only when complete, so an
// interrupted download never leaves a truncated file for the loader.
package bulk
