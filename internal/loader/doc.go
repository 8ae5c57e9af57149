// Package loader streams bulk flat files into Postgres.
//
// A file is read line by line. Its header must match the kind's expected
// field list before any row is touched; the header also fixes the layout used
// for every following line. Parsed records are validated, ordered by natural
// key and committed in batches through an insert that ignores existing keys,
// so loading the same file twice leaves the tables unchanged.
//
// Plan runs whole sets of files in foreign key order: reference tables, then
// series, then observations.
package loader
