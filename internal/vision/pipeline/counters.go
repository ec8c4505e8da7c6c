package pipeline

import "sync/atomic"

// counters is the owned aggregation state for one processing session. The
// admission path touches received and the two admission drop counters; the
// drain loop touches the rest. Atomics let the finalizer snapshot a
// consistent view without a lock.
type counters struct {
	received            atomic.Int64
	analyzed            atomic.Int64
	skippedBySampler    atomic.Int64
	errored             atomic.Int64
	droppedBackpressure atomic.Int64
	droppedTimestamp    atomic.Int64
	droppedBudget       atomic.Int64

	resolutionChanges atomic.Int64
}

// CounterSnapshot is the immutable counter view exported in the final
// aggregate. The six outcome counters always sum to FramesReceived once the
// queue is empty.
type CounterSnapshot struct {
	FramesReceived                    int64 `json:"frames_received"`
	FramesAnalyzed                    int64 `json:"frames_analyzed"`
	FramesSkippedBySampler            int64 `json:"frames_skipped_by_sampler"`
	FramesErrored                     int64 `json:"frames_errored"`
	FramesDroppedByBackpressure       int64 `json:"frames_dropped_by_backpressure"`
	FramesDroppedByTimestamp          int64 `json:"frames_dropped_by_timestamp"`
	FramesDroppedByFinalizationBudget int64 `json:"frames_dropped_by_finalization_budget"`
	ResolutionChangeCount             int64 `json:"resolution_change_count"`
}

func (c *counters) snapshot() CounterSnapshot {
	return CounterSnapshot{
		FramesReceived:                    c.received.Load(),
		FramesAnalyzed:                    c.analyzed.Load(),
		FramesSkippedBySampler:            c.skippedBySampler.Load(),
		FramesErrored:                     c.errored.Load(),
		FramesDroppedByBackpressure:       c.droppedBackpressure.Load(),
		FramesDroppedByTimestamp:          c.droppedTimestamp.Load(),
		FramesDroppedByFinalizationBudget: c.droppedBudget.Load(),
		ResolutionChangeCount:             c.resolutionChanges.Load(),
	}
}

// OutcomeSum returns the sum of the six disjoint per-frame outcome buckets.
func (s CounterSnapshot) OutcomeSum() int64 {
	return s.FramesAnalyzed +
		s.FramesSkippedBySampler +
		s.FramesErrored +
		s.FramesDroppedByBackpressure +
		s.FramesDroppedByTimestamp +
		s.FramesDroppedByFinalizationBudget
}
