// Package energy estimates facial expressiveness from frame-to-frame
// landmark motion.
//
// Each consecutive pair of analyzed frames with a usable face contributes
// one delta: the sum of the point-wise distances between the six landmarks.
// At finalization the deltas are min-max normalized, so the score lands in
// [0,1] regardless of resolution; the variation figure is the coefficient
// of variation of the raw deltas, which is likewise scale free. Sessions
// with fewer than two deltas, or with near-zero delta variance, carry no
// usable signal and score exactly zero.
package energy

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/podium-data/delivery.report/internal/vision/detect"
)

// minDeltas is the minimum number of landmark deltas for a meaningful score.
const minDeltas = 2

// Config holds the energy parameters fixed at construction.
type Config struct {
	// ConfidenceThreshold is the minimum face confidence for a frame's
	// landmarks to enter the delta sequence.
	ConfidenceThreshold float64
	// Epsilon is the raw-delta variance below which the signal is treated
	// as flat.
	Epsilon float64
}

// Accumulator collects landmark motion deltas. Mutated only on the
// drain-loop thread.
type Accumulator struct {
	cfg Config

	prev    detect.FaceLandmarks
	prevSet bool
	deltas  []float64
}

// New creates an empty accumulator.
func New(cfg Config) *Accumulator {
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 0.001
	}
	return &Accumulator{cfg: cfg}
}

// Observe folds one analyzed frame into the delta sequence. det may be nil
// when no face was found; such frames break the consecutive pair.
func (a *Accumulator) Observe(det *detect.FaceDetection) {
	if det == nil || det.Confidence < a.cfg.ConfidenceThreshold {
		a.prev = detect.FaceLandmarks{}
		a.prevSet = false
		return
	}
	if a.prevSet {
		a.deltas = append(a.deltas, landmarkDelta(a.prev, det.Landmarks))
	}
	a.prev = det.Landmarks
	a.prevSet = true
}

// landmarkDelta sums the point-wise distances between two landmark sets.
func landmarkDelta(prev, cur detect.FaceLandmarks) float64 {
	pp := prev.Points()
	cp := cur.Points()
	var sum float64
	for i := range pp {
		sum += math.Hypot(cp[i].X-pp[i].X, cp[i].Y-pp[i].Y)
	}
	return sum
}

// ResetNormalization clears the consecutive-frame baseline. Called on a
// mid-session resolution change so a delta never spans the coordinate jump;
// already collected deltas are preserved.
func (a *Accumulator) ResetNormalization() {
	a.prev = detect.FaceLandmarks{}
	a.prevSet = false
}

// SampleCount returns the number of deltas collected so far.
func (a *Accumulator) SampleCount() int {
	return len(a.deltas)
}

// Summary is the finalized facial-energy result.
type Summary struct {
	// Score is the mean min-max-normalized delta, in [0,1]. Exactly zero
	// when LowSignal.
	Score float64
	// Variation is the coefficient of variation of the raw deltas; zero
	// when LowSignal.
	Variation float64
	// LowSignal reports that the session carried too little landmark motion
	// to score.
	LowSignal bool
}

// Finalize computes the session energy summary.
func (a *Accumulator) Finalize() Summary {
	if len(a.deltas) < minDeltas {
		return Summary{LowSignal: true}
	}
	mean, variance := stat.MeanVariance(a.deltas, nil)
	if variance < a.cfg.Epsilon {
		return Summary{LowSignal: true}
	}

	min, max := a.deltas[0], a.deltas[0]
	for _, d := range a.deltas[1:] {
		min = math.Min(min, d)
		max = math.Max(max, d)
	}
	// max > min is guaranteed by the variance check above.
	var normSum float64
	for _, d := range a.deltas {
		normSum += (d - min) / (max - min)
	}

	s := Summary{
		Score: normSum / float64(len(a.deltas)),
	}
	if mean > 0 {
		s.Variation = math.Sqrt(variance) / mean
	}
	return s
}
