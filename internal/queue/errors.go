package queue

import "errors"

var (
	// ErrClosed is returned by Take once the queue has been closed.
	ErrClosed = errors.New("check queue closed")

	// ErrTimeout is returned by Join when outstanding work remains after
	// the timeout. Callers use it to regain control periodically.
	ErrTimeout = errors.New("timed out waiting for outstanding tasks")

	// ErrNegativeCount is returned by TaskDone when no task is outstanding.
	ErrNegativeCount = errors.New("task done called with no outstanding task")
)
