package queue

import (
	"sync"
	"time"

	"github.com/nao1215/linkcheck/internal/model"
)

// CheckQueue is the work queue of one crawl run.
//
// It holds pending tasks in FIFO order, the set of URLs that were ever
// accepted, and the outstanding count (tasks accepted minus tasks marked
// done). A URL is accepted at most once per queue, which bounds the work
// on cyclic link graphs.
//
// All methods are safe for concurrent use.
type CheckQueue struct {
	mu sync.Mutex

	// notEmpty is signaled when a task is appended or the queue closes.
	notEmpty *sync.Cond

	// pending holds tasks not yet taken, oldest first.
	pending []model.CheckTask

	// seen contains every normalized URL ever accepted.
	seen map[string]struct{}

	// outstanding is accepted minus done. Never negative.
	outstanding int

	// drained is closed when outstanding drops to zero and replaced when
	// it rises above zero again. Joiners wait on it.
	drained chan struct{}

	closed bool
}

// New creates an empty queue.
func New() *CheckQueue {
	q := &CheckQueue{
		seen:    make(map[string]struct{}),
		drained: make(chan struct{}),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	// Nothing is outstanding yet.
	close(q.drained)
	return q
}

// Put enqueues task unless its URL was already accepted or the queue is
// closed. It reports whether the task was accepted.
func (q *CheckQueue) Put(task model.CheckTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if _, ok := q.seen[task.URL]; ok {
		return false
	}

	q.seen[task.URL] = struct{}{}
	q.pending = append(q.pending, task)
	if q.outstanding == 0 {
		q.drained = make(chan struct{})
	}
	q.outstanding++
	q.notEmpty.Signal()

	return true
}

// Take removes and returns the oldest pending task. It blocks until a task
// is available or the queue is closed, in which case it returns ErrClosed.
func (q *CheckQueue) Take() (model.CheckTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if q.closed {
		return model.CheckTask{}, ErrClosed
	}

	task := q.pending[0]
	q.pending[0] = model.CheckTask{}
	q.pending = q.pending[1:]

	return task, nil
}

// TaskDone marks one taken task as completed. When the outstanding count
// reaches zero every Join caller is released. Calling TaskDone more often
// than tasks were accepted returns ErrNegativeCount and changes nothing.
func (q *CheckQueue) TaskDone() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.outstanding == 0 {
		return ErrNegativeCount
	}
	q.outstanding--
	if q.outstanding == 0 {
		close(q.drained)
	}

	return nil
}

// Join blocks until the outstanding count is zero or timeout elapses.
// It returns nil when the queue is drained and ErrTimeout otherwise.
// A non-positive timeout waits without bound.
func (q *CheckQueue) Join(timeout time.Duration) error {
	q.mu.Lock()
	drained := q.drained
	q.mu.Unlock()

	if timeout <= 0 {
		<-drained
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-drained:
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}

// Empty reports whether there is neither pending nor outstanding work.
func (q *CheckQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0 && q.outstanding == 0
}

// Close shuts the queue down. Blocked and future Take calls return
// ErrClosed, further Put calls are rejected, and pending tasks are dropped
// and removed from the outstanding count. Tasks already taken still need
// TaskDone. Close returns the number of dropped tasks and is idempotent.
func (q *CheckQueue) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	q.closed = true

	dropped := len(q.pending)
	q.pending = nil
	if dropped > 0 {
		q.outstanding -= dropped
		if q.outstanding == 0 {
			close(q.drained)
		}
	}
	q.notEmpty.Broadcast()

	return dropped
}

// Len returns the number of pending tasks.
func (q *CheckQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Outstanding returns accepted minus done.
func (q *CheckQueue) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding
}

// Seen returns the number of distinct URLs accepted so far.
func (q *CheckQueue) Seen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.seen)
}

// Closed reports whether Close was called.
func (q *CheckQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
