// Package report writes check results while a run is in progress.
//
// Every output format implements Logger (the crawler's ResultLogger):
// Start is called once with the run description, Log once per checked URL
// and End once with the run summary. Formats:
//   - text: human-readable blocks, the default on a terminal
//   - json: newline-delimited JSON records
//   - markdown: a report document written at the end of the run
//   - csv: one row per result
//   - xlsx: an Excel workbook written at the end of the run
//   - sql: rows in the SQLite result database
//   - none: discards everything
//
// Loggers are looked up by name in a Registry. MultiLogger fans out to
// several loggers. Loggers are not safe for concurrent use; the engine
// serializes calls.
package report
