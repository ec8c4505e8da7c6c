package pipeline

import (
	"math"
	"sync"
)

// retentionTracker buckets frames into fixed time windows so the finalizer
// can tell whether any stretch of the session lost too many admitted frames
// to trust per-segment metrics.
//
// A frame is "retained" when it survives to a sampling decision on the drain
// loop: analyzed and sampler-skipped frames both count, since skipping is
// deliberate. Backpressure drops, detector errors, and budget discards do
// not. Admission records on the producer thread and retention on the drain
// loop, hence the lock.
type retentionTracker struct {
	mu            sync.Mutex
	windowSeconds float64
	admitted      map[int64]int64
	retained      map[int64]int64
}

func newRetentionTracker(windowSeconds float64) *retentionTracker {
	return &retentionTracker{
		windowSeconds: windowSeconds,
		admitted:      make(map[int64]int64),
		retained:      make(map[int64]int64),
	}
}

func (r *retentionTracker) bucket(t float64) int64 {
	return int64(math.Floor(t / r.windowSeconds))
}

func (r *retentionTracker) recordAdmitted(t float64) {
	r.mu.Lock()
	r.admitted[r.bucket(t)]++
	r.mu.Unlock()
}

func (r *retentionTracker) recordRetained(t float64) {
	r.mu.Lock()
	r.retained[r.bucket(t)]++
	r.mu.Unlock()
}

// allWindowsRetained reports whether every window with at least one admitted
// frame kept a retained/admitted ratio at or above threshold. A session with
// no admitted frames trivially retains everything.
func (r *retentionTracker) allWindowsRetained(threshold float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for bucket, admitted := range r.admitted {
		if admitted == 0 {
			continue
		}
		if float64(r.retained[bucket])/float64(admitted) < threshold {
			return false
		}
	}
	return true
}
