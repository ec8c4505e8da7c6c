// Package gaze classifies per-frame head orientation into audience-facing,
// notes-facing, or other, and aggregates the session-level breakdown.
//
// Yaw is estimated from the left/right asymmetry of the nose-to-ear
// distances; pitch from the vertical offset of the nose against the
// eye/mouth baseline, normalized by the face box height. Both angles are
// smoothed with an exponential moving average that resets after a detection
// gap longer than one second.
package gaze

import (
	"math"

	"github.com/podium-data/delivery.report/internal/vision/detect"
)

// Label is one per-frame gaze classification.
type Label string

const (
	// LabelAudience means the speaker is facing the audience.
	LabelAudience Label = "audience-facing"
	// LabelNotes means the speaker is looking down at notes.
	LabelNotes Label = "notes-facing"
	// LabelOther covers missing/unusable faces and off-axis orientations.
	LabelOther Label = "other"
)

// emaAlpha is the smoothing factor for yaw/pitch.
const emaAlpha = 0.5

// gapResetSeconds is the detection gap after which the EMA restarts from
// the raw measurement instead of blending with stale state.
const gapResetSeconds = 1.0

// Config holds the gaze thresholds, all fixed at construction.
type Config struct {
	// ConfidenceThreshold is the minimum face-detector confidence.
	ConfidenceThreshold float64
	// MinFaceAreaFraction is the minimum face box area as a fraction of the
	// frame area for the face to be considered usable.
	MinFaceAreaFraction float64
	// YawThresholdDegrees bounds |yaw| for audience-facing.
	YawThresholdDegrees float64
	// PitchThresholdDegrees is the (negative) pitch below which the frame is
	// notes-facing.
	PitchThresholdDegrees float64
}

// Accumulator holds the gaze EMA state and the per-label counts.
// Mutated only on the drain-loop thread.
type Accumulator struct {
	cfg Config

	smoothedYaw   float64
	smoothedPitch float64
	lastFaceTS    float64
	initialized   bool

	audienceCount int64
	notesCount    int64
	otherCount    int64

	faceNotDetected int64
}

// New creates an empty accumulator.
func New(cfg Config) *Accumulator {
	return &Accumulator{cfg: cfg}
}

// Observe classifies one analyzed frame and updates the counts. det may be
// nil when the detector found no face. Returns the assigned label.
func (a *Accumulator) Observe(t float64, det *detect.FaceDetection, frameWidth, frameHeight int) Label {
	if !a.usable(det, frameWidth, frameHeight) {
		// No-face, low-confidence, and tiny-face frames all land in "other"
		// and are the only frames counted as face-not-detected.
		a.faceNotDetected++
		a.otherCount++
		return LabelOther
	}

	rawYaw := yawDegrees(det.Landmarks)
	rawPitch := pitchDegrees(det.Landmarks, det.Box)

	if !a.initialized || t-a.lastFaceTS > gapResetSeconds {
		a.smoothedYaw = rawYaw
		a.smoothedPitch = rawPitch
		a.initialized = true
	} else {
		a.smoothedYaw = emaAlpha*rawYaw + (1-emaAlpha)*a.smoothedYaw
		a.smoothedPitch = emaAlpha*rawPitch + (1-emaAlpha)*a.smoothedPitch
	}
	a.lastFaceTS = t

	switch {
	case a.smoothedPitch < a.cfg.PitchThresholdDegrees:
		a.notesCount++
		return LabelNotes
	case math.Abs(a.smoothedYaw) <= a.cfg.YawThresholdDegrees:
		a.audienceCount++
		return LabelAudience
	default:
		// Orientation-failed "other": counted in the breakdown but not as a
		// detection failure.
		a.otherCount++
		return LabelOther
	}
}

// usable reports whether the detection passes the confidence and minimum
// face-area checks.
func (a *Accumulator) usable(det *detect.FaceDetection, frameWidth, frameHeight int) bool {
	if det == nil {
		return false
	}
	if det.Confidence < a.cfg.ConfidenceThreshold {
		return false
	}
	frameArea := float64(frameWidth) * float64(frameHeight)
	if frameArea <= 0 {
		return false
	}
	return det.Box.Area() >= a.cfg.MinFaceAreaFraction*frameArea
}

// ResetSmoothing clears the EMA state. Called on a mid-session resolution
// change; the per-label counts are preserved.
func (a *Accumulator) ResetSmoothing() {
	a.initialized = false
	a.smoothedYaw = 0
	a.smoothedPitch = 0
}

// FaceNotDetectedCount returns the number of analyzed frames with no usable
// face.
func (a *Accumulator) FaceNotDetectedCount() int64 {
	return a.faceNotDetected
}

// yawDegrees estimates horizontal head rotation from the asymmetry of the
// nose-to-ear distances. A symmetric face yields 0; the sign follows the
// turn direction.
func yawDegrees(l detect.FaceLandmarks) float64 {
	dRight := math.Abs(l.Nose.X - l.RightEar.X)
	dLeft := math.Abs(l.LeftEar.X - l.Nose.X)
	if dRight+dLeft == 0 {
		return 0
	}
	return radToDeg(math.Atan2(dLeft-dRight, dLeft+dRight))
}

// pitchDegrees estimates vertical head rotation from the nose offset against
// the midpoint of the eye line and the mouth, normalized by the face box
// height. Looking down pushes the nose below the baseline and yields a
// negative pitch.
func pitchDegrees(l detect.FaceLandmarks, box detect.BoundingBox) float64 {
	if box.Height <= 0 {
		return 0
	}
	eyeMidY := (l.RightEye.Y + l.LeftEye.Y) / 2
	baselineY := (eyeMidY + l.Mouth.Y) / 2
	return radToDeg(math.Atan2(baselineY-l.Nose.Y, box.Height))
}

func radToDeg(r float64) float64 {
	return r * 180 / math.Pi
}

// Breakdown is the final gaze percentages. The three values sum to exactly
// 100 whenever any frame was analyzed.
type Breakdown struct {
	AudienceFacingPct float64 `json:"audience_facing_pct"`
	NotesFacingPct    float64 `json:"notes_facing_pct"`
	OtherPct          float64 `json:"other_pct"`
}

// Finalize computes the percentage breakdown over framesAnalyzed, rounds to
// the given decimal precision, and reconciles the rounding remainder into
// the largest bucket so the three percentages sum to exactly 100.
func (a *Accumulator) Finalize(framesAnalyzed int64, precision int) Breakdown {
	if framesAnalyzed <= 0 {
		return Breakdown{}
	}
	total := float64(framesAnalyzed)
	b := Breakdown{
		AudienceFacingPct: roundTo(float64(a.audienceCount)/total*100, precision),
		NotesFacingPct:    roundTo(float64(a.notesCount)/total*100, precision),
		OtherPct:          roundTo(float64(a.otherCount)/total*100, precision),
	}

	remainder := 100 - (b.AudienceFacingPct + b.NotesFacingPct + b.OtherPct)
	switch {
	case b.AudienceFacingPct >= b.NotesFacingPct && b.AudienceFacingPct >= b.OtherPct:
		b.AudienceFacingPct = roundTo(b.AudienceFacingPct+remainder, precision)
	case b.NotesFacingPct >= b.OtherPct:
		b.NotesFacingPct = roundTo(b.NotesFacingPct+remainder, precision)
	default:
		b.OtherPct = roundTo(b.OtherPct+remainder, precision)
	}
	return b
}

func roundTo(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}
