package gaze

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/podium-data/delivery.report/internal/vision/detect"
)

func testConfig() Config {
	return Config{
		ConfidenceThreshold:   0.5,
		MinFaceAreaFraction:   0.01,
		YawThresholdDegrees:   30.0,
		PitchThresholdDegrees: -20.0,
	}
}

// faceAt builds a detection whose landmark geometry yields the given
// nose/ear X positions and nose Y, with eyes at y=90 and mouth at y=110 so
// the pitch baseline sits at y=100. The box is large enough to pass the
// minimum-area check on a 640x480 frame.
func faceAt(noseX, rightEarX, leftEarX, noseY float64) *detect.FaceDetection {
	return &detect.FaceDetection{
		Landmarks: detect.FaceLandmarks{
			RightEye: detect.Point{X: noseX - 10, Y: 90},
			LeftEye:  detect.Point{X: noseX + 10, Y: 90},
			Nose:     detect.Point{X: noseX, Y: noseY},
			Mouth:    detect.Point{X: noseX, Y: 110},
			RightEar: detect.Point{X: rightEarX, Y: 95},
			LeftEar:  detect.Point{X: leftEarX, Y: 95},
		},
		Box:        detect.BoundingBox{X: noseX - 40, Y: 60, Width: 80, Height: 80},
		Confidence: 0.9,
	}
}

func symmetricFace() *detect.FaceDetection {
	return faceAt(100, 80, 120, 100)
}

func TestSymmetricFaceIsAudienceFacing(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	assert.Equal(t, LabelAudience, a.Observe(0.0, symmetricFace(), 640, 480))
	assert.Equal(t, int64(0), a.FaceNotDetectedCount())
}

func TestLookingDownIsNotesFacing(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	// Nose 20px below the eye/mouth baseline on an 80px face box: pitch is
	// atan2(-20, 80) = -26.6 degrees, below the -20 threshold.
	face := faceAt(100, 80, 120, 120)
	assert.Equal(t, LabelNotes, a.Observe(0.0, face, 640, 480))
}

func TestTurnedHeadIsOther(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	// dRight=5, dLeft=45: yaw is atan2(40, 50) = 38.7 degrees, beyond the
	// 30 degree audience threshold.
	face := faceAt(100, 95, 145, 100)
	assert.Equal(t, LabelOther, a.Observe(0.0, face, 640, 480))
	assert.Equal(t, int64(0), a.FaceNotDetectedCount(),
		"an off-axis face is still a detected face")
}

func TestSmoothingDampsASingleTurnedFrame(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	assert.Equal(t, LabelAudience, a.Observe(0.0, symmetricFace(), 640, 480))

	// Raw yaw 45 degrees (nose directly over the right ear), but smoothed
	// against the previous 0: EMA gives 22.5, inside the audience band.
	turned := faceAt(100, 100, 150, 100)
	assert.Equal(t, LabelAudience, a.Observe(0.5, turned, 640, 480))
}

func TestDetectionGapResetsSmoothing(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	assert.Equal(t, LabelAudience, a.Observe(0.0, symmetricFace(), 640, 480))

	// Same turned face as above, but after a gap beyond one second the EMA
	// restarts from the raw 45 degrees.
	turned := faceAt(100, 100, 150, 100)
	assert.Equal(t, LabelOther, a.Observe(1.5, turned, 640, 480))
}

func TestUnusableDetectionsCountAsFaceNotDetected(t *testing.T) {
	t.Parallel()

	a := New(testConfig())

	assert.Equal(t, LabelOther, a.Observe(0.0, nil, 640, 480))

	lowConf := symmetricFace()
	lowConf.Confidence = 0.4
	assert.Equal(t, LabelOther, a.Observe(0.5, lowConf, 640, 480))

	tiny := symmetricFace()
	tiny.Box = detect.BoundingBox{X: 100, Y: 100, Width: 10, Height: 10}
	assert.Equal(t, LabelOther, a.Observe(1.0, tiny, 640, 480))

	assert.Equal(t, int64(3), a.FaceNotDetectedCount())
}

func TestResetSmoothingPreservesCounts(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	a.Observe(0.0, symmetricFace(), 640, 480)
	a.ResetSmoothing()

	// Next usable face restarts from its raw angles.
	turned := faceAt(100, 100, 150, 100)
	assert.Equal(t, LabelOther, a.Observe(0.5, turned, 640, 480))

	b := a.Finalize(2, 4)
	assert.Equal(t, 50.0, b.AudienceFacingPct)
	assert.Equal(t, 50.0, b.OtherPct)
}

func TestFinalizePercentagesSumToExactlyOneHundred(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	a.audienceCount = 1
	a.notesCount = 1
	a.otherCount = 1

	b := a.Finalize(3, 4)
	assert.Equal(t, 33.3334, b.AudienceFacingPct, "largest bucket absorbs the rounding remainder")
	assert.Equal(t, 33.3333, b.NotesFacingPct)
	assert.Equal(t, 33.3333, b.OtherPct)
	assert.InDelta(t, 100.0, b.AudienceFacingPct+b.NotesFacingPct+b.OtherPct, 1e-9)
}

func TestFinalizeEmptySession(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	b := a.Finalize(0, 4)
	assert.Zero(t, b.AudienceFacingPct)
	assert.Zero(t, b.NotesFacingPct)
	assert.Zero(t, b.OtherPct)
}
