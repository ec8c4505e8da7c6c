// Package framequeue provides the fixed-capacity holding area between frame
// admission and the analysis drain loop.
//
// Enqueue never blocks: when the queue is full the newest frame is rejected
// and the caller records the drop. The queue must tolerate a concurrent
// producer (enqueue) and consumer (dequeue); everything else in the pipeline
// is single-threaded.
package framequeue

import (
	"sync"

	"github.com/podium-data/delivery.report/internal/vision/frame"
)

// Queue is a bounded FIFO of frames.
type Queue struct {
	mu       sync.Mutex
	items    []frame.Frame
	capacity int
	closed   bool
}

// New creates a queue with the given fixed capacity. Capacity must be at
// least 1; the config layer validates this before construction.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		items:    make([]frame.Frame, 0, capacity),
		capacity: capacity,
	}
}

// Enqueue appends f unless the queue is full or closed. Returns false on
// rejection (reject-newest backpressure); never blocks.
func (q *Queue) Enqueue(f frame.Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, f)
	return true
}

// Dequeue removes and returns the oldest frame, or ok=false when empty.
func (q *Queue) Dequeue() (frame.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return frame.Frame{}, false
	}
	f := q.items[0]
	// Drop the payload reference from the backing array before shifting so
	// the queue never outlives the frames it has handed off.
	q.items[0] = frame.Frame{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		// Reclaim the backing array once drained to keep shift cost bounded.
		q.items = make([]frame.Frame, 0, q.capacity)
	}
	return f, true
}

// Len returns the current number of queued frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the fixed capacity.
func (q *Queue) Capacity() int {
	return q.capacity
}

// DrainDiscard atomically empties the queue without processing and returns
// the number of frames discarded. Used by Stop and by the finalization
// budget cutoff; discarded payload references are released immediately.
func (q *Queue) DrainDiscard() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = make([]frame.Frame, 0, q.capacity)
	return n
}

// Close marks the queue closed: all further enqueues are rejected. Dequeue
// continues to serve already-queued frames.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
