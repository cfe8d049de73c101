// Package crawler runs link-checking crawls.
//
// # Architecture
//
// An Engine owns the run-scoped structures: a queue.CheckQueue, a
// pool.Pool, a robots.Cache and a cookie.Store. It starts a fixed number
// of workers that take tasks from the queue, hand them to a Checker,
// enqueue the links the checker found and report every result to a
// ResultLogger.
//
// The calling goroutine acts as orchestrator. It joins the queue with a
// short timeout in a loop so it notices interrupts (context cancellation)
// and the loss of every worker while waiting.
//
// # Lifecycle
//
//	idle -> running -> finished
//	idle -> running -> aborting -> finished
//
// Abort closes the queue, gives in-flight checks the abort timeout to
// complete and then cancels their context. Cleanup (waiting for workers,
// closing pooled connections, clearing cookies) runs exactly once per run.
//
// # Usage
//
//	engine := crawler.NewEngine(checker, resultLogger,
//		crawler.WithThreads(10),
//		crawler.WithFilter(crawler.NewFilter(intern, extern, 3)),
//	)
//	summary, err := engine.Run(ctx, "https://example.com/")
//
// # Failure handling
//
// A failing or panicking check becomes an invalid result and never stops
// the run. A panicking check also ends its worker; when no worker is left
// while tasks are pending, the run is aborted.
package crawler
