package model

import (
	"fmt"
	"time"
)

// Status is the outcome of checking one URL.
type Status int

const (
	// StatusValid means the link was reachable and acceptable.
	StatusValid Status = iota

	// StatusInvalid means the link is broken: unreachable, bad response,
	// or the check failed.
	StatusInvalid

	// StatusIgnored means the link was not checked (unsupported scheme,
	// denied by robots.txt).
	StatusIgnored
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	case StatusIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so JSON output uses names.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "valid":
		*s = StatusValid
	case "invalid":
		*s = StatusInvalid
	case "ignored":
		*s = StatusIgnored
	default:
		return fmt.Errorf("unknown status %q", string(text))
	}
	return nil
}

// Result is the record produced for every task a worker dequeued.
type Result struct {
	// URL is the normalized URL that was checked.
	URL string `json:"url"`

	// Parent is the page the link was found on, empty for seeds.
	Parent string `json:"parent,omitempty"`

	// Depth is the recursion depth of the task.
	Depth int `json:"depth"`

	// Extern is true when the link was checked without recursion.
	Extern bool `json:"extern,omitempty"`

	// Status is the outcome of the check.
	Status Status `json:"status"`

	// StatusCode is the protocol status code (HTTP status), 0 if none.
	StatusCode int `json:"status_code,omitempty"`

	// Message is a short human-readable description of the outcome.
	Message string `json:"message,omitempty"`

	// ContentType is the reported media type of the resource.
	ContentType string `json:"content_type,omitempty"`

	// Size is the number of body bytes read.
	Size int64 `json:"size,omitempty"`

	// Warnings are non-fatal problems noticed during the check.
	Warnings []string `json:"warnings,omitempty"`

	// Info holds informational notes (redirect targets and the like).
	Info []string `json:"info,omitempty"`

	// Duration is the wall time spent checking.
	Duration time.Duration `json:"duration"`

	// CheckedAt is when the check finished.
	CheckedAt time.Time `json:"checked_at"`

	// Children are absolute URLs discovered in the content. They are fed
	// back into the queue and not written by loggers.
	Children []string `json:"-"`
}

// NewResult creates a valid result for task. Checkers adjust it.
func NewResult(task CheckTask) *Result {
	return &Result{
		URL:    task.URL,
		Parent: task.Parent,
		Depth:  task.Depth,
		Extern: task.Extern,
		Status: StatusValid,
	}
}

// NewFailedResult creates an invalid result for a task whose check failed.
func NewFailedResult(task CheckTask, err error) *Result {
	r := NewResult(task)
	r.Fail(err)
	return r
}

// Fail marks the result invalid with err as message.
func (r *Result) Fail(err error) {
	r.Status = StatusInvalid
	if err != nil {
		r.Message = err.Error()
	}
}

// Ignore marks the result as ignored with the given reason.
func (r *Result) Ignore(reason string) {
	r.Status = StatusIgnored
	r.Message = reason
}

// AddWarning appends a formatted warning.
func (r *Result) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// AddInfo appends a formatted informational note.
func (r *Result) AddInfo(format string, args ...any) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// Valid reports whether the link is not broken. Ignored links count as valid.
func (r *Result) Valid() bool {
	return r.Status != StatusInvalid
}
