package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkcheck/internal/cookie"
	"github.com/nao1215/linkcheck/internal/model"
	"github.com/nao1215/linkcheck/internal/pool"
	"github.com/nao1215/linkcheck/internal/queue"
	"github.com/nao1215/linkcheck/internal/robots"
)

// Default engine settings.
const (
	DefaultThreads      = 10
	DefaultPollInterval = time.Second
	DefaultAbortTimeout = 10 * time.Second
)

// Phase is the lifecycle state of an Engine.
type Phase int

const (
	// PhaseIdle is the state before Run.
	PhaseIdle Phase = iota
	// PhaseRunning means workers are checking links.
	PhaseRunning
	// PhaseAborting means the run was interrupted and is shutting down.
	PhaseAborting
	// PhaseFinished means every worker stopped and the run was cleaned up.
	PhaseFinished
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseAborting:
		return "aborting"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Engine runs one crawl. It owns the queue, the connection pool, the
// robots cache and the cookie store of the run, starts the workers and
// drives them until the queue drains or the run is interrupted.
//
// An Engine runs once. Create a new one for every crawl.
type Engine struct {
	checker Checker
	results ResultLogger
	logger  *slog.Logger
	filter  *Filter

	threads      int
	pollInterval time.Duration
	abortTimeout time.Duration
	runID        string

	poolOpts     []pool.Option
	robotsOpts   []robots.Option
	ignoreRobots bool

	queue   *queue.CheckQueue
	pool    *pool.Pool
	cookies *cookie.Store
	session *Session

	workers errgroup.Group
	alive   atomic.Int32

	// mu guards phase and cancel.
	mu     sync.Mutex
	phase  Phase
	cancel context.CancelFunc

	finishOnce sync.Once

	// logMu serializes result logger calls and guards summary.
	logMu   sync.Mutex
	summary model.Summary
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreads sets the number of workers.
func WithThreads(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.threads = n
		}
	}
}

// WithPollInterval sets how often the orchestrator wakes up while waiting
// for the queue to drain.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithAbortTimeout sets how long an abort waits for in-flight tasks before
// cancelling them.
func WithAbortTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.abortTimeout = d
		}
	}
}

// WithFilter sets the link filter. The default follows links on seed
// hosts without a depth limit.
func WithFilter(f *Filter) Option {
	return func(e *Engine) {
		if f != nil {
			e.filter = f
		}
	}
}

// WithRunID sets the run identifier. A random UUID is used by default.
func WithRunID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.runID = id
		}
	}
}

// WithPoolOptions passes options to the connection pool.
func WithPoolOptions(opts ...pool.Option) Option {
	return func(e *Engine) {
		e.poolOpts = append(e.poolOpts, opts...)
	}
}

// WithRobotsOptions passes options to the robots cache.
func WithRobotsOptions(opts ...robots.Option) Option {
	return func(e *Engine) {
		e.robotsOpts = append(e.robotsOpts, opts...)
	}
}

// WithIgnoreRobots disables robots.txt checks.
func WithIgnoreRobots(ignore bool) Option {
	return func(e *Engine) {
		e.ignoreRobots = ignore
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine that checks links with checker and reports
// results to results.
//
// If checker implements pool.Dialer it opens the pooled connections. If it
// implements RobotsFetcher, robots.txt is honored.
func NewEngine(checker Checker, results ResultLogger, opts ...Option) *Engine {
	e := &Engine{
		checker:      checker,
		results:      results,
		logger:       slog.Default(),
		threads:      DefaultThreads,
		pollInterval: DefaultPollInterval,
		abortTimeout: DefaultAbortTimeout,
		runID:        uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.filter == nil {
		e.filter = NewFilter(nil, nil, Unlimited)
	}

	logger := e.logger.With("run_id", e.runID)
	poolOpts := []pool.Option{pool.WithLogger(logger)}
	if d, ok := checker.(pool.Dialer); ok {
		poolOpts = append(poolOpts, pool.WithDialer(d))
	}

	e.queue = queue.New()
	e.pool = pool.New(append(poolOpts, e.poolOpts...)...)
	e.cookies = cookie.NewStore()
	e.session = &Session{
		RunID:   e.runID,
		Pool:    e.pool,
		Cookies: e.cookies,
		Logger:  logger,
	}

	if f, ok := checker.(RobotsFetcher); ok && !e.ignoreRobots {
		fetch := func(ctx context.Context, robotsURL string) (int, []byte, error) {
			return f.FetchRobots(ctx, e.session, robotsURL)
		}
		robotsOpts := append([]robots.Option{robots.WithLogger(logger)}, e.robotsOpts...)
		e.session.Robots = robots.New(fetch, robotsOpts...)
	}

	return e
}

// RunID returns the run identifier.
func (e *Engine) RunID() string {
	return e.runID
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Pool returns the connection pool of the run.
func (e *Engine) Pool() *pool.Pool {
	return e.pool
}

// Session returns the shared run state handed to the checker.
func (e *Engine) Session() *Session {
	return e.session
}

// Run checks every link reachable from seeds and returns the summary.
//
// Run returns when the queue drained, when ctx is cancelled (the run is
// aborted) or when no worker is left to process pending tasks. Cleanup
// always happens exactly once before the result logger's End is called.
// A run-level failure is returned as error; broken links are not errors,
// they are reported in the summary.
func (e *Engine) Run(ctx context.Context, seeds ...string) (summary model.Summary, err error) {
	// Workers outlive an interrupt of ctx by up to the abort timeout.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	e.mu.Lock()
	if e.phase != PhaseIdle {
		e.mu.Unlock()
		return model.Summary{}, ErrAlreadyStarted
	}
	info := model.RunInfo{
		ID:        e.runID,
		Seeds:     seeds,
		Threads:   e.threads,
		StartedAt: time.Now(),
	}
	// The summary must exist before Abort can observe PhaseRunning.
	e.logMu.Lock()
	e.summary = model.Summary{RunID: e.runID, StartedAt: info.StartedAt}
	e.logMu.Unlock()
	e.phase = PhaseRunning
	e.cancel = cancel
	e.mu.Unlock()

	started := false

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("crawl run failed", "run_id", e.runID, "panic", r)
			e.Abort()
			err = fmt.Errorf("%w: %v", ErrRunFailed, r)
		}
		e.finish()
		summary = e.snapshot()
		if !started {
			return
		}
		if endErr := e.endLog(summary); endErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to end result log: %w", endErr))
		}
	}()

	if err := e.startLog(info); err != nil {
		e.Abort()
		return model.Summary{}, fmt.Errorf("%w: failed to start result log: %w", ErrRunFailed, err)
	}
	started = true

	e.logger.Info("starting crawl", "run_id", e.runID, "seeds", len(seeds), "threads", e.threads)
	for _, seed := range seeds {
		e.enqueueSeed(seed)
	}

	if e.Phase() != PhaseRunning {
		// Aborted before any worker started; seeds may have been dropped.
		e.logger.Warn("crawl aborted before checking started", "run_id", e.runID)
		e.markAborted()
		return model.Summary{}, nil
	}
	if e.queue.Empty() {
		e.logger.Info("nothing to check", "run_id", e.runID)
		return model.Summary{}, nil
	}

	e.startWorkers(runCtx)
	e.drive(ctx)

	return model.Summary{}, nil
}

// enqueueSeed adds a seed URL. Malformed seeds are reported as failed.
func (e *Engine) enqueueSeed(raw string) {
	task, err := model.NewSeedTask(raw)
	if err != nil {
		e.report(model.NewFailedResult(model.CheckTask{URL: raw}, err))
		return
	}
	e.filter.AddSeed(task)
	e.queue.Put(task)
}

// startWorkers spawns the worker goroutines.
func (e *Engine) startWorkers(ctx context.Context) {
	for i := range e.threads {
		e.alive.Add(1)
		w := &worker{id: i + 1, engine: e}
		e.workers.Go(func() error {
			defer e.alive.Add(-1)
			w.run(ctx)
			return nil
		})
	}
}

// drive waits for the queue to drain, waking up every poll interval to
// react to interrupts and dead workers.
func (e *Engine) drive(ctx context.Context) {
	for {
		err := e.queue.Join(e.pollInterval)
		if err == nil {
			e.logger.Debug("queue drained", "run_id", e.runID)
			return
		}

		if ctx.Err() != nil {
			e.logger.Warn("crawl interrupted, aborting", "run_id", e.runID, "reason", ctx.Err())
			e.Abort()
			return
		}

		if e.alive.Load() == 0 {
			e.logger.Error("no workers left with tasks pending",
				"run_id", e.runID,
				"pending", e.queue.Len(),
			)
			e.Abort()
			return
		}

		e.logger.Debug("waiting for tasks",
			"run_id", e.runID,
			"pending", e.queue.Len(),
			"outstanding", e.queue.Outstanding(),
			"workers", e.alive.Load(),
		)
	}
}

// Abort interrupts a running crawl. Pending tasks are dropped, in-flight
// tasks get the abort timeout to finish before their context is cancelled.
// Abort is a no-op unless the engine is running.
func (e *Engine) Abort() {
	e.mu.Lock()
	if e.phase != PhaseRunning {
		e.mu.Unlock()
		return
	}
	e.phase = PhaseAborting
	cancel := e.cancel
	e.mu.Unlock()

	dropped := e.queue.Close()
	e.markAborted()

	e.logger.Warn("aborting crawl",
		"run_id", e.runID,
		"dropped", dropped,
		"in_flight", e.queue.Outstanding(),
	)

	if err := e.queue.Join(e.abortTimeout); errors.Is(err, queue.ErrTimeout) {
		e.logger.Warn("in-flight checks did not finish, cancelling",
			"run_id", e.runID,
			"timeout", e.abortTimeout,
			"in_flight", e.queue.Outstanding(),
		)
	}
	cancel()
}

// finish waits for the workers and releases the run resources.
func (e *Engine) finish() {
	e.finishOnce.Do(func() {
		// Wakes workers blocked in Take.
		e.queue.Close()
		if err := e.workers.Wait(); err != nil {
			e.logger.Warn("worker error", "run_id", e.runID, "error", err)
		}
		e.pool.CloseAll()
		e.cookies.Clear()

		e.mu.Lock()
		e.phase = PhaseFinished
		e.mu.Unlock()

		e.logger.Info("crawl finished", "run_id", e.runID)
	})
}

// report counts and logs one result.
func (e *Engine) report(r *model.Result) {
	e.logMu.Lock()
	defer e.logMu.Unlock()

	e.summary.Add(r)
	if err := e.results.Log(r); err != nil {
		e.logger.Warn("failed to log result", "url", r.URL, "error", err)
	}
}

func (e *Engine) startLog(info model.RunInfo) error {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	return e.results.Start(info)
}

func (e *Engine) endLog(summary model.Summary) error {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	return e.results.End(summary)
}

func (e *Engine) markAborted() {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	e.summary.Aborted = true
}

// snapshot returns the final summary.
func (e *Engine) snapshot() model.Summary {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	e.summary.FinishedAt = time.Now()
	return e.summary
}
