// Package gate implements the temporal-integrity admission check that every
// frame header must pass before it can enter the analysis queue.
//
// The gate tracks only admitted frames: a rejected frame never advances the
// sequence/timestamp baseline, so a single bad header cannot poison
// admission of subsequent well-formed frames.
package gate

import "github.com/podium-data/delivery.report/internal/vision/frame"

// RejectReason identifies why a frame failed admission.
type RejectReason string

const (
	// RejectNone means the frame was admitted.
	RejectNone RejectReason = ""
	// RejectMalformed covers negative sequence, non-positive dimensions, or
	// negative timestamps.
	RejectMalformed RejectReason = "malformed_header"
	// RejectNonMonotonicSeq means the sequence did not strictly increase.
	RejectNonMonotonicSeq RejectReason = "non_monotonic_sequence"
	// RejectNonMonotonicTime means the timestamp did not strictly increase.
	RejectNonMonotonicTime RejectReason = "non_monotonic_timestamp"
	// RejectStale means the timestamp jumped further than the stale threshold.
	RejectStale RejectReason = "stale_gap"
)

// Result reports one admission decision.
type Result struct {
	Admitted bool
	Reason   RejectReason
	// ResolutionChanged is set when an admitted frame's dimensions differ
	// from the previous admitted frame's dimensions.
	ResolutionChanged bool
}

// Gate admits frame headers whose sequence and timestamp strictly increase
// over the last admitted frame, with timestamp gaps bounded by the stale
// threshold. Not safe for concurrent use; the producer is the only caller.
type Gate struct {
	staleThreshold float64

	admittedAny bool
	lastSeq     int64
	lastTS      float64
	lastWidth   int
	lastHeight  int
}

// New creates a gate with the given stale-gap threshold in seconds.
func New(staleThresholdSeconds float64) *Gate {
	return &Gate{staleThreshold: staleThresholdSeconds}
}

// Admit checks one header. On admission the baseline advances; on rejection
// it is left untouched.
func (g *Gate) Admit(h frame.Header) Result {
	if h.Seq < 0 || h.Timestamp < 0 || h.Width <= 0 || h.Height <= 0 {
		return Result{Reason: RejectMalformed}
	}

	if g.admittedAny {
		if h.Seq <= g.lastSeq {
			return Result{Reason: RejectNonMonotonicSeq}
		}
		if h.Timestamp <= g.lastTS {
			return Result{Reason: RejectNonMonotonicTime}
		}
		if h.Timestamp-g.lastTS > g.staleThreshold {
			return Result{Reason: RejectStale}
		}
	}

	res := Result{Admitted: true}
	if g.admittedAny && (h.Width != g.lastWidth || h.Height != g.lastHeight) {
		res.ResolutionChanged = true
	}

	g.admittedAny = true
	g.lastSeq = h.Seq
	g.lastTS = h.Timestamp
	g.lastWidth = h.Width
	g.lastHeight = h.Height
	return res
}

// LastAdmitted returns the baseline sequence and timestamp, and whether any
// frame has been admitted yet.
func (g *Gate) LastAdmitted() (seq int64, ts float64, ok bool) {
	return g.lastSeq, g.lastTS, g.admittedAny
}
