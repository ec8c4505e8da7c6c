package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/podium-data/delivery.report/internal/vision/frame"
)

func header(seq int64, ts float64) frame.Header {
	return frame.Header{Seq: seq, Timestamp: ts, Width: 1280, Height: 720}
}

func TestAdmitFirstFrame(t *testing.T) {
	t.Parallel()

	g := New(2.0)
	res := g.Admit(header(0, 0))
	assert.True(t, res.Admitted)
	assert.False(t, res.ResolutionChanged)
}

func TestRejectMalformedHeaders(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		h    frame.Header
	}{
		{"negative seq", frame.Header{Seq: -1, Timestamp: 0, Width: 640, Height: 480}},
		{"negative timestamp", frame.Header{Seq: 0, Timestamp: -0.5, Width: 640, Height: 480}},
		{"zero width", frame.Header{Seq: 0, Timestamp: 0, Width: 0, Height: 480}},
		{"zero height", frame.Header{Seq: 0, Timestamp: 0, Width: 640, Height: 0}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := New(2.0)
			res := g.Admit(tc.h)
			assert.False(t, res.Admitted)
			assert.Equal(t, RejectMalformed, res.Reason)
		})
	}
}

func TestMonotonicAdmission(t *testing.T) {
	t.Parallel()

	g := New(2.0)
	assert.True(t, g.Admit(header(5, 1.0)).Admitted)

	// Equal or lower sequence is rejected.
	assert.Equal(t, RejectNonMonotonicSeq, g.Admit(header(5, 1.5)).Reason)
	assert.Equal(t, RejectNonMonotonicSeq, g.Admit(header(4, 1.5)).Reason)

	// Equal or earlier timestamp is rejected.
	assert.Equal(t, RejectNonMonotonicTime, g.Admit(header(6, 1.0)).Reason)
	assert.Equal(t, RejectNonMonotonicTime, g.Admit(header(6, 0.5)).Reason)

	// Gap above the stale threshold is rejected.
	assert.Equal(t, RejectStale, g.Admit(header(6, 3.5)).Reason)

	// Gap exactly at the threshold is admitted.
	assert.True(t, g.Admit(header(6, 3.0)).Admitted)
}

func TestRejectionPreservesBaseline(t *testing.T) {
	t.Parallel()

	g := New(2.0)
	assert.True(t, g.Admit(header(1, 1.0)).Admitted)

	// A stale frame must not advance the baseline...
	assert.False(t, g.Admit(header(2, 9.0)).Admitted)

	// ...so the next in-window frame is still judged against seq=1, ts=1.0.
	res := g.Admit(header(2, 2.0))
	assert.True(t, res.Admitted)

	seq, ts, ok := g.LastAdmitted()
	assert.True(t, ok)
	assert.Equal(t, int64(2), seq)
	assert.Equal(t, 2.0, ts)
}

func TestResolutionChangeFlag(t *testing.T) {
	t.Parallel()

	g := New(2.0)
	assert.False(t, g.Admit(frame.Header{Seq: 0, Timestamp: 0, Width: 1280, Height: 720}).ResolutionChanged,
		"first admitted frame establishes the baseline without a change")

	res := g.Admit(frame.Header{Seq: 1, Timestamp: 0.5, Width: 640, Height: 360})
	assert.True(t, res.Admitted)
	assert.True(t, res.ResolutionChanged)

	// Same dimensions again: no change flagged.
	res = g.Admit(frame.Header{Seq: 2, Timestamp: 1.0, Width: 640, Height: 360})
	assert.True(t, res.Admitted)
	assert.False(t, res.ResolutionChanged)
}

func TestRejectedFrameNeverFlagsResolutionChange(t *testing.T) {
	t.Parallel()

	g := New(2.0)
	assert.True(t, g.Admit(frame.Header{Seq: 0, Timestamp: 0, Width: 1280, Height: 720}).Admitted)

	// Out-of-order frame with different dims: rejected, no flag, no baseline update.
	res := g.Admit(frame.Header{Seq: 0, Timestamp: 0.5, Width: 640, Height: 360})
	assert.False(t, res.Admitted)
	assert.False(t, res.ResolutionChanged)

	// The 1280x720 baseline still stands.
	res = g.Admit(frame.Header{Seq: 1, Timestamp: 0.5, Width: 1280, Height: 720})
	assert.True(t, res.Admitted)
	assert.False(t, res.ResolutionChanged)
}
