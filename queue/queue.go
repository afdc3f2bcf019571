package queue

import (
	"sync"

	"statecheck/state"
)

// Queue is the multi-producer/multi-consumer FIFO of states awaiting
// expansion, with built-in termination detection for a fixed pool of workers.
//
// Emptiness alone does not end a run: a worker that is mid-expansion may
// still push successors. Pop therefore tracks how many workers are parked on
// an empty queue and declares the run drained only at the instant every
// worker is parked with nothing buffered. Pushes and the idle count are
// updated under one lock, so no push can slip past the termination check.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	items []*state.State
	head  int

	workers int
	idle    int
	closed  bool
}

// New returns an empty queue serving a pool of the given size. The pool size
// is fixed for the lifetime of the queue; termination detection depends on it.
func New(workers int) *Queue {
	q := &Queue{
		workers: workers,
		items:   make([]*state.State, 0, 1024),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends st and returns the approximate queue depth after the append.
// Pushing to a closed queue is a no-op; the run is already over.
func (q *Queue) Push(st *state.State) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0
	}
	q.items = append(q.items, st)
	q.cond.Signal()
	return len(q.items) - q.head
}

// Pop removes and returns the oldest queued state. It blocks while the queue
// is empty but other workers are still active. It returns ok=false once the
// queue is drained (every worker idle on an empty queue) or closed by an
// abort; after the first false return, every subsequent call on any worker
// also returns false.
func (q *Queue) Pop() (*state.State, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed {
			return nil, false
		}
		if q.head < len(q.items) {
			st := q.items[q.head]
			q.items[q.head] = nil
			q.head++
			if q.head > 1024 && q.head*2 >= len(q.items) {
				q.items = append(q.items[:0], q.items[q.head:]...)
				q.head = 0
			}
			return st, true
		}

		// Empty. Park this worker; if it is the last one awake the
		// frontier is exhausted and the run is complete.
		q.idle++
		if q.idle == q.workers {
			q.closed = true
			q.cond.Broadcast()
			q.idle--
			return nil, false
		}
		q.cond.Wait()
		q.idle--
	}
}

// Close wakes every parked worker and makes all further Pops return false.
// Used for cooperative abort when a violation has been recorded.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the current queue depth. Approximate under concurrency; used
// for progress reporting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
