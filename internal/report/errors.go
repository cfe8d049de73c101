package report

import "errors"

var (
	// ErrUnknownFormat is returned by Registry.New for an unregistered name.
	ErrUnknownFormat = errors.New("unknown output format")

	// ErrNoDatabase is returned when the sql logger has no database.
	ErrNoDatabase = errors.New("sql output requires a result database")

	// ErrNotStarted is returned when Log or End is called before Start.
	ErrNotStarted = errors.New("logger not started")
)
