package matching

import "sync"

// taskKind distinguishes the three things a caller can ask the matcher
// worker to do, all serialised through the same intake FIFO so none of
// them ever touches a SideBook from outside the worker goroutine.
type taskKind int

const (
	taskSubmit taskKind = iota
	taskCancel
	taskSnapshot
)

// task is one entry in the intake queue. Only the fields relevant to
// kind are populated.
type task struct {
	kind taskKind

	// taskSubmit
	order Order

	// taskCancel
	cancelID    uint64
	cancelSide  Side
	cancelPrice Price
	cancelDone  chan error

	// taskSnapshot
	snapshotDone chan BookSnapshot
}

// intakeQueue is a FIFO of pending tasks shared between submitter
// goroutines and the single matcher worker. A sync.Cond is the one lock
// in the core design; submitters hold it only long enough to append and
// signal, and the worker holds it only long enough to drain.
//
// A channel was considered (the teacher's own WorkerPool uses one) but
// does not give the drain-vs-discard shutdown choice of §5: closing a
// channel with sends still in flight from other goroutines panics, and
// there is no way to ask "stop accepting new items but keep serving what
// is already queued" from a channel alone.
type intakeQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []task
	closed bool
	drain  bool
}

func newIntakeQueue() *intakeQueue {
	q := &intakeQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues a task and wakes one waiter. It is a no-op (returning
// false) once the queue has been shut down.
func (q *intakeQueue) push(t task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	q.cond.Signal()
	return true
}

// popBlocking waits until a task is available or shutdown is requested.
// It returns (task, true) on success, or (zero, false) once shutdown has
// drained (or discarded) everything there is to give.
func (q *intakeQueue) popBlocking() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.tasks) == 0 {
		return task{}, false
	}
	if q.closed && !q.drain {
		return task{}, false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

// shutdown sets the terminal flag and wakes every waiter. drain controls
// whether already-queued tasks are still handed out by popBlocking
// (true) or discarded (false). Idempotent: only the first call has
// effect.
func (q *intakeQueue) shutdown(drain bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.drain = drain
	q.cond.Broadcast()
}

func (q *intakeQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
