// Package model defines the data structures shared by the crawl engine,
// the checker and the result loggers.
//
// This package contains the following main types:
//   - CheckTask: one URL waiting to be checked
//   - Result: the outcome of checking one task
//   - RunInfo and Summary: run start and end records for loggers
//
// URL normalization (NormalizeURL, HostKey) also lives here because the
// queue, the connection pool and the robots cache must agree on it.
package model
