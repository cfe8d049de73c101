package crawler

import (
	"context"
	"log/slog"

	"github.com/nao1215/linkcheck/internal/cookie"
	"github.com/nao1215/linkcheck/internal/model"
	"github.com/nao1215/linkcheck/internal/pool"
	"github.com/nao1215/linkcheck/internal/robots"
)

// Checker determines the validity of one link.
//
// Check is called concurrently from every worker. It returns a result for
// the task, including the absolute URLs of child links in Result.Children.
// A returned error marks the task failed; the crawl continues.
type Checker interface {
	Check(ctx context.Context, task model.CheckTask, s *Session) (*model.Result, error)
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, task model.CheckTask, s *Session) (*model.Result, error)

// Check calls f(ctx, task, s).
func (f CheckerFunc) Check(ctx context.Context, task model.CheckTask, s *Session) (*model.Result, error) {
	return f(ctx, task, s)
}

// RobotsFetcher is implemented by checkers that can retrieve robots.txt.
// Without it the engine allows every URL.
type RobotsFetcher interface {
	FetchRobots(ctx context.Context, s *Session, robotsURL string) (status int, body []byte, err error)
}

// ResultLogger receives the results of a run. The engine serializes calls:
// Start once, Log for every result, End once after the run finished.
type ResultLogger interface {
	Start(info model.RunInfo) error
	Log(result *model.Result) error
	End(summary model.Summary) error
}

// Session gives a checker access to the shared structures of the run.
type Session struct {
	// RunID identifies the run.
	RunID string

	// Pool bounds connections per host. Checkers acquire a handle before
	// talking to a host and release it afterwards.
	Pool *pool.Pool

	// Robots is nil when robots.txt is ignored.
	Robots *robots.Cache

	// Cookies holds the cookies of the run.
	Cookies *cookie.Store

	// Logger is the run logger.
	Logger *slog.Logger
}

// Allowed reports whether robots.txt permits checking rawURL.
func (s *Session) Allowed(ctx context.Context, rawURL string) bool {
	if s.Robots == nil {
		return true
	}
	return s.Robots.IsAllowed(ctx, rawURL)
}
