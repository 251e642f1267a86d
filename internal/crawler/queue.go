package crawler

import (
	"sync"
)

// Queue implements a thread-safe FIFO of pending fetches. It does not
// deduplicate: the same URL pushed twice is fetched twice.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []FetchRequest
	stopped bool
}

// NewQueue creates a new request queue
func NewQueue() *Queue {
	q := &Queue{
		items: make([]FetchRequest, 0),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds a request to the queue
// Returns false if the queue has been stopped
func (q *Queue) Push(req FetchRequest) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Don't accept new entries if stopped
	if q.stopped {
		return false
	}

	q.items = append(q.items, req)

	// Signal waiting workers
	q.cond.Signal()

	return true
}

// Pop removes and returns the first request from the queue
// Blocks if queue is empty and not stopped
// Returns (req, true) if successful, (empty, false) if stopped and empty
func (q *Queue) Pop() (FetchRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.items) > 0 {
			req := q.items[0]
			q.items[0] = FetchRequest{}
			q.items = q.items[1:]
			return req, true
		}

		if q.stopped {
			return FetchRequest{}, false
		}

		// Queue is empty but not stopped - wait for new items
		q.cond.Wait()
	}
}

// Size returns the current number of queued requests
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stop signals the queue to stop accepting new requests
// Workers blocked on Pop() will drain remaining items, then receive false
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	// Broadcast to wake all waiting workers
	q.cond.Broadcast()
}
