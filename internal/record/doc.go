// Package record parses single lines of the OEWS bulk distribution into typed
// records. Parsing is pure: every function takes a line and returns a record
// or a *ParseError, and no function performs I/O.
package record
