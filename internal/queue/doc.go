// Package queue provides CheckQueue, the deduplicating work queue of a
// crawl run with outstanding-task accounting.
//
// Producers call Put, workers call Take and then TaskDone once per taken
// task. The orchestrator calls Join with a short timeout in a loop so it
// can notice interrupts and dead workers between waits:
//
//	for {
//		err := q.Join(time.Second)
//		if err == nil {
//			break // drained
//		}
//		// queue.ErrTimeout: check for cancellation, then wait again
//	}
package queue
