package crawler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/nao1215/linkcheck/internal/model"
)

// worker pulls tasks from the engine's queue until the queue is closed or
// a check panics.
type worker struct {
	id     int
	engine *Engine
}

// run is the worker loop.
func (w *worker) run(ctx context.Context) {
	e := w.engine
	e.logger.Debug("worker started", "worker", w.id)

	for {
		task, err := e.queue.Take()
		if err != nil {
			e.logger.Debug("worker stopped", "worker", w.id)
			return
		}
		if !w.process(ctx, task) {
			return
		}
	}
}

// process checks one task and reports it. It returns false when the check
// panicked; the task is then reported failed and the worker must exit.
// The task is marked done however process returns.
func (w *worker) process(ctx context.Context, task model.CheckTask) (ok bool) {
	e := w.engine
	start := time.Now()
	reported := false

	defer func() {
		if err := e.queue.TaskDone(); err != nil {
			e.logger.Error("task accounting failed", "url", task.URL, "error", err)
		}
	}()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e.logger.Error("worker crashed",
			"worker", w.id,
			"url", task.URL,
			"panic", r,
			"stack", string(debug.Stack()),
		)
		ok = false
		if !reported {
			w.reportCrash(task, r, start)
		}
	}()

	res, err := e.checker.Check(ctx, task, e.session)
	switch {
	case err != nil && res == nil:
		res = model.NewFailedResult(task, err)
	case err != nil:
		res.Fail(err)
	case res == nil:
		res = model.NewResult(task)
	}

	w.enqueueChildren(task, res)
	// A result logger that panics must not get the same task twice.
	reported = true
	w.complete(res, start)

	return true
}

// reportCrash reports a task whose check panicked. A second panic while
// reporting is logged and dropped.
func (w *worker) reportCrash(task model.CheckTask, cause any, start time.Time) {
	e := w.engine
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("failed to report crashed task", "url", task.URL, "panic", r)
		}
	}()
	w.complete(model.NewFailedResult(task, fmt.Errorf("%w: %v", ErrWorkerCrashed, cause)), start)
}

// complete stamps and reports the result.
func (w *worker) complete(res *model.Result, start time.Time) {
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	res.CheckedAt = time.Now()
	w.engine.report(res)
}

// enqueueChildren feeds the links found by the check back into the queue.
// Links of extern tasks are not followed.
func (w *worker) enqueueChildren(task model.CheckTask, res *model.Result) {
	if task.Extern || len(res.Children) == 0 {
		return
	}
	e := w.engine

	added := 0
	for _, raw := range res.Children {
		child, err := model.NewChildTask(task, raw, false)
		if err != nil {
			// A malformed link is a broken link on the parent page.
			e.report(model.NewFailedResult(model.CheckTask{
				URL:    raw,
				Parent: task.URL,
				Depth:  task.Depth + 1,
			}, err))
			continue
		}

		child, follow := e.filter.Classify(child)
		if !follow {
			continue
		}
		if e.queue.Put(child) {
			added++
		}
	}

	if added > 0 {
		e.logger.Debug("links queued", "url", task.URL, "added", added, "found", len(res.Children))
	}
}
