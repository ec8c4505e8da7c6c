// Package gesture detects deliberate hand movement between consecutive
// analyzed frames and aggregates the session gesture counters.
//
// A frame has valid hands only when all four hand keypoints (both wrists
// and both elbows) clear the confidence threshold. A gesture fires when two
// consecutive frames both have valid hands and the largest hand-keypoint
// displacement, normalized by the body height in pixels, strictly exceeds
// the displacement threshold. Normalizing by body height keeps the decision
// independent of frame resolution.
package gesture

import (
	"math"

	"github.com/podium-data/delivery.report/internal/vision/detect"
)

// Config holds the gesture thresholds, fixed at construction.
type Config struct {
	// KeypointConfidenceThreshold is the minimum per-keypoint confidence for
	// a hand keypoint to count as tracked.
	KeypointConfidenceThreshold float64
	// DisplacementThreshold is the minimum hand displacement between
	// consecutive frames as a fraction of body height.
	DisplacementThreshold float64
}

// handState is the tracked hand geometry of one analyzed frame.
type handState struct {
	points     map[string]detect.Point
	bodyHeight float64
}

// Accumulator tracks hand movement across consecutive frames. Mutated only
// on the drain-loop thread.
type Accumulator struct {
	cfg Config

	prev    *handState
	prevSet bool

	gestureCount     int64
	gestureTimes     []float64
	handsDetected    int64
	handsNotDetected int64
}

// New creates an empty accumulator.
func New(cfg Config) *Accumulator {
	return &Accumulator{cfg: cfg}
}

// Observe evaluates one analyzed frame. det may be nil when the pose
// detector found nobody. Returns true when a gesture fired on this frame.
func (a *Accumulator) Observe(t float64, det *detect.PoseDetection) bool {
	cur, ok := a.extract(det)
	if !ok {
		a.handsNotDetected++
		// A frame without valid hands breaks the consecutive pair; the next
		// valid frame starts a fresh baseline.
		a.prev = nil
		a.prevSet = false
		return false
	}
	a.handsDetected++

	fired := false
	if a.prevSet && cur.bodyHeight > 0 {
		if maxHandDisplacement(a.prev, cur)/cur.bodyHeight > a.cfg.DisplacementThreshold {
			a.gestureCount++
			a.gestureTimes = append(a.gestureTimes, t)
			fired = true
		}
	}
	a.prev = cur
	a.prevSet = true
	return fired
}

// extract pulls the four hand keypoints and the body height out of a pose.
// ok is false unless all four hand keypoints clear the confidence threshold.
func (a *Accumulator) extract(det *detect.PoseDetection) (*handState, bool) {
	if det == nil {
		return nil, false
	}
	points := make(map[string]detect.Point, len(detect.HandKeypointNames))
	for _, name := range detect.HandKeypointNames {
		kp, present := det.Keypoints[name]
		if !present || kp.Confidence < a.cfg.KeypointConfidenceThreshold {
			return nil, false
		}
		points[name] = kp.Point
	}
	return &handState{
		points:     points,
		bodyHeight: a.bodyHeight(det),
	}, true
}

// bodyHeight is the vertical extent of the confidently tracked keypoints.
// Deriving it from the keypoints themselves avoids depending on a detector
// supplied bounding box, which not every pose model emits.
func (a *Accumulator) bodyHeight(det *detect.PoseDetection) float64 {
	minY := math.Inf(1)
	maxY := math.Inf(-1)
	for _, kp := range det.Keypoints {
		if kp.Confidence < a.cfg.KeypointConfidenceThreshold {
			continue
		}
		minY = math.Min(minY, kp.Point.Y)
		maxY = math.Max(maxY, kp.Point.Y)
	}
	if maxY <= minY {
		return 0
	}
	return maxY - minY
}

func maxHandDisplacement(prev, cur *handState) float64 {
	var max float64
	for _, name := range detect.HandKeypointNames {
		p := prev.points[name]
		c := cur.points[name]
		d := math.Hypot(c.X-p.X, c.Y-p.Y)
		if d > max {
			max = d
		}
	}
	return max
}

// ResetNormalization clears the consecutive-frame baseline. Called on a
// mid-session resolution change so that a pair straddling the change never
// fires from the coordinate jump; the counters are preserved.
func (a *Accumulator) ResetNormalization() {
	a.prev = nil
	a.prevSet = false
}

// GestureCount returns the number of gestures fired so far.
func (a *Accumulator) GestureCount() int64 {
	return a.gestureCount
}

// GestureTimes returns the frame timestamps at which gestures fired, in
// admission order. The finalizer uses them for the per-sentence ratio.
func (a *Accumulator) GestureTimes() []float64 {
	return a.gestureTimes
}

// HandsDetectedCount returns the number of analyzed frames with all four
// hand keypoints tracked.
func (a *Accumulator) HandsDetectedCount() int64 {
	return a.handsDetected
}

// HandsNotDetectedCount returns the number of analyzed frames without valid
// hands.
func (a *Accumulator) HandsNotDetectedCount() int64 {
	return a.handsNotDetected
}
