package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoSeed is returned when no URL to check was given.
	ErrNoSeed = errors.New("no URL specified: provide at least one URL or file path to check")

	// ErrInvalidThreads is returned when the worker count is not positive.
	ErrInvalidThreads = errors.New("invalid threads: must be positive")

	// ErrInvalidHostConnections is returned when the per-host connection
	// limit is not positive.
	ErrInvalidHostConnections = errors.New("invalid host connections: must be positive")

	// ErrInvalidWaitTimeout is returned when the connection wait timeout is negative.
	ErrInvalidWaitTimeout = errors.New("invalid wait timeout: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRecursionLevel is returned for a recursion level below -1.
	ErrInvalidRecursionLevel = errors.New("invalid recursion level: must be -1 (unlimited) or greater")

	// ErrInvalidPollInterval is returned when the poll interval is not positive.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")

	// ErrInvalidAbortTimeout is returned when the abort timeout is negative.
	ErrInvalidAbortTimeout = errors.New("invalid abort timeout: must be non-negative")

	// ErrInvalidRate is returned when the per-host request rate is negative.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoOutputFormat is returned when the output format is empty.
	ErrNoOutputFormat = errors.New("no output format specified")

	// ErrInvalidFileOutput is returned for a malformed file output argument.
	ErrInvalidFileOutput = errors.New("invalid file output")

	// ErrNoLanguage is returned when the output language is empty.
	ErrNoLanguage = errors.New("no output language specified")

	// ErrNoDBDir is returned when saving to the database without a directory.
	ErrNoDBDir = errors.New("no database directory specified")
)
