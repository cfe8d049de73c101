// Package log builds the application's slog loggers.
//
// Every logger is wrapped in a SecureHandler that masks credentials before
// they are written:
//   - values of cookie, authorization and other credential keys
//   - bearer and basic auth values, JWTs
//   - passwords embedded in URLs
//
// Per-site cookies and headers from the configuration file are the main
// source of such values in a link checker.
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
