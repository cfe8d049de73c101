// Package database stores link check runs in SQLite.
//
// The ResultDB keeps two tables:
//   - runs: one row per crawl run with its seeds and final summary
//   - results: one row per checked URL, keyed by run and URL
//
// The driver is modernc.org/sqlite, so no cgo is needed. WAL mode is
// enabled by default.
package database
