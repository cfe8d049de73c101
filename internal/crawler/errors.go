package crawler

import "errors"

var (
	// ErrAlreadyStarted is returned when Run is called a second time.
	ErrAlreadyStarted = errors.New("engine already started")

	// ErrWorkerCrashed is the failure recorded for a task whose check
	// panicked.
	ErrWorkerCrashed = errors.New("worker crashed")

	// ErrRunFailed wraps orchestrator failures that aborted a run.
	ErrRunFailed = errors.New("crawl run failed")
)
