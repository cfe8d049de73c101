package model

import "time"

// RunInfo describes a crawl run when it starts.
type RunInfo struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Seeds are the URLs the run started from, as given by the user.
	Seeds []string `json:"seeds"`

	// Threads is the number of workers.
	Threads int `json:"threads"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`
}

// Summary describes a crawl run when it ends.
type Summary struct {
	// RunID is the RunInfo.ID of the run.
	RunID string `json:"run_id"`

	// Total is the number of results reported.
	Total int `json:"total"`

	// Valid, Invalid and Ignored count results by status.
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
	Ignored int `json:"ignored"`

	// Warnings is the number of warnings across all results.
	Warnings int `json:"warnings"`

	// Aborted is true when the run was interrupted before draining.
	Aborted bool `json:"aborted"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Add counts r into the summary.
func (s *Summary) Add(r *Result) {
	s.Total++
	s.Warnings += len(r.Warnings)
	switch r.Status {
	case StatusValid:
		s.Valid++
	case StatusInvalid:
		s.Invalid++
	case StatusIgnored:
		s.Ignored++
	}
}

// Elapsed returns the run duration.
func (s Summary) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
