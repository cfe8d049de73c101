package pool

import "errors"

var (
	// ErrPoolExhausted is returned when a host is at its connection limit
	// and waiting is disabled or timed out.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrPoolClosed is returned by Acquire after CloseAll.
	ErrPoolClosed = errors.New("connection pool closed")
)
