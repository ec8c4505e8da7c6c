package energy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podium-data/delivery.report/internal/vision/detect"
)

func testConfig() Config {
	return Config{ConfidenceThreshold: 0.5}
}

// faceShifted returns a face whose six landmarks all sit at (x, x).
func faceShifted(x float64) *detect.FaceDetection {
	p := detect.Point{X: x, Y: x}
	return &detect.FaceDetection{
		Landmarks: detect.FaceLandmarks{
			RightEye: p, LeftEye: p, Nose: p, Mouth: p, RightEar: p, LeftEar: p,
		},
		Confidence: 0.9,
	}
}

func TestScoreIsBoundedAndOrdered(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	// Landmark positions 0, 1, 3, 10 produce deltas of increasing size.
	for _, x := range []float64{0, 1, 3, 10} {
		a.Observe(faceShifted(x))
	}
	require.Equal(t, 3, a.SampleCount())

	s := a.Finalize()
	require.False(t, s.LowSignal)
	assert.GreaterOrEqual(t, s.Score, 0.0)
	assert.LessOrEqual(t, s.Score, 1.0)
	assert.Greater(t, s.Variation, 0.0)
}

func TestTooFewDeltasIsLowSignal(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	a.Observe(faceShifted(0))
	a.Observe(faceShifted(5))
	require.Equal(t, 1, a.SampleCount())

	s := a.Finalize()
	assert.True(t, s.LowSignal)
	assert.Equal(t, 0.0, s.Score)
	assert.Equal(t, 0.0, s.Variation)
}

func TestFlatSignalIsLowSignal(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	// Constant motion: every delta is identical, so the variance is zero.
	for _, x := range []float64{0, 1, 2, 3, 4} {
		a.Observe(faceShifted(x))
	}

	s := a.Finalize()
	assert.True(t, s.LowSignal)
	assert.Equal(t, 0.0, s.Score)
}

func TestMissingFaceBreaksTheDeltaPair(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	a.Observe(faceShifted(0))
	a.Observe(nil)
	a.Observe(faceShifted(100))
	assert.Equal(t, 0, a.SampleCount(), "a delta never spans a no-face frame")

	lowConf := faceShifted(200)
	lowConf.Confidence = 0.2
	a.Observe(lowConf)
	a.Observe(faceShifted(300))
	assert.Equal(t, 0, a.SampleCount())
}

func TestResetNormalizationPreservesDeltas(t *testing.T) {
	t.Parallel()

	a := New(testConfig())
	for _, x := range []float64{0, 1, 3} {
		a.Observe(faceShifted(x))
	}
	require.Equal(t, 2, a.SampleCount())

	a.ResetNormalization()
	a.Observe(faceShifted(1000))
	assert.Equal(t, 2, a.SampleCount(), "no delta across the reset")
	a.Observe(faceShifted(1010))
	assert.Equal(t, 3, a.SampleCount())
}

func TestVariationIsScaleInvariant(t *testing.T) {
	t.Parallel()

	small := New(testConfig())
	large := New(testConfig())
	for _, x := range []float64{0, 1, 3, 10} {
		small.Observe(faceShifted(x))
		large.Observe(faceShifted(x * 4))
	}

	assert.InDelta(t, small.Finalize().Variation, large.Finalize().Variation, 1e-12)
}
