// Package stability measures how much the speaker moves around the stage.
//
// Each analyzed frame with a usable pose contributes a body centroid,
// normalized by the frame dimensions so that scores are resolution
// independent. Centroids are grouped into fixed five-second windows by
// frame timestamp; a window with at least three samples scores
// clamp01(1 - (stddevX + stddevY) / 0.1), and the session score is the
// mean over valid windows. Stage crossings are counted between successive
// valid windows whose mean X positions differ by more than a quarter of
// the frame width.
package stability

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/podium-data/delivery.report/internal/vision/detect"
)

// spreadCeiling is the normalized positional spread at which a window
// scores zero.
const spreadCeiling = 0.1

// Movement classification labels.
const (
	MovementStationary = "stationary"
	MovementModerate   = "moderate_movement"
	MovementHigh       = "high_movement"
)

// Config holds the stability parameters fixed at construction.
type Config struct {
	// KeypointConfidenceThreshold is the minimum per-keypoint confidence for
	// a keypoint to contribute to the body centroid.
	KeypointConfidenceThreshold float64
	// WindowSeconds is the aggregation window width.
	WindowSeconds float64
	// MinSamplesPerWindow is the sample count below which a window is
	// discarded as statistically meaningless.
	MinSamplesPerWindow int
	// CrossingThreshold is the normalized mean-X shift between successive
	// valid windows that counts as one stage crossing.
	CrossingThreshold float64
}

// windowSamples collects the normalized centroids of one five-second window.
type windowSamples struct {
	xs []float64
	ys []float64
}

// Accumulator buckets normalized body centroids into timestamp windows.
// Mutated only on the drain-loop thread.
type Accumulator struct {
	cfg     Config
	windows map[int64]*windowSamples

	bodyDetected    int64
	bodyNotDetected int64
}

// New creates an empty accumulator.
func New(cfg Config) *Accumulator {
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = 5.0
	}
	if cfg.MinSamplesPerWindow < 1 {
		cfg.MinSamplesPerWindow = 3
	}
	if cfg.CrossingThreshold <= 0 {
		cfg.CrossingThreshold = 0.25
	}
	return &Accumulator{
		cfg:     cfg,
		windows: make(map[int64]*windowSamples),
	}
}

// Observe folds one analyzed frame into its timestamp window. det may be
// nil when the pose detector found nobody. Returns true when the frame
// contributed a centroid.
func (a *Accumulator) Observe(t float64, det *detect.PoseDetection, frameWidth, frameHeight int) bool {
	cx, cy, ok := a.centroid(det, frameWidth, frameHeight)
	if !ok {
		a.bodyNotDetected++
		return false
	}
	a.bodyDetected++

	idx := int64(math.Floor(t / a.cfg.WindowSeconds))
	w := a.windows[idx]
	if w == nil {
		w = &windowSamples{}
		a.windows[idx] = w
	}
	w.xs = append(w.xs, cx)
	w.ys = append(w.ys, cy)
	return true
}

// centroid averages the confidently tracked keypoints and normalizes by the
// frame dimensions.
func (a *Accumulator) centroid(det *detect.PoseDetection, frameWidth, frameHeight int) (float64, float64, bool) {
	if det == nil || frameWidth <= 0 || frameHeight <= 0 {
		return 0, 0, false
	}
	var sumX, sumY float64
	var n int
	for _, kp := range det.Keypoints {
		if kp.Confidence < a.cfg.KeypointConfidenceThreshold {
			continue
		}
		sumX += kp.Point.X
		sumY += kp.Point.Y
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return sumX / float64(n) / float64(frameWidth), sumY / float64(n) / float64(frameHeight), true
}

// BodyDetectedCount returns the number of analyzed frames that contributed
// a centroid.
func (a *Accumulator) BodyDetectedCount() int64 {
	return a.bodyDetected
}

// BodyNotDetectedCount returns the number of analyzed frames without a
// usable body.
func (a *Accumulator) BodyNotDetectedCount() int64 {
	return a.bodyNotDetected
}

// WindowScore is one valid window's result, kept for charting.
type WindowScore struct {
	// StartSeconds is the window's inclusive start timestamp.
	StartSeconds float64 `json:"start_seconds"`
	// Score is the window stability in [0,1]; 1 is perfectly still.
	Score float64 `json:"score"`
	// MeanX is the window's mean normalized horizontal position.
	MeanX float64 `json:"mean_x"`
}

// Summary is the finalized stability result.
type Summary struct {
	// Score is the mean over valid window scores, in [0,1]. Zero when no
	// window was valid.
	Score float64
	// MovementClass is one of the Movement* labels.
	MovementClass string
	// StageCrossings counts large horizontal shifts between successive
	// valid windows.
	StageCrossings int64
	// Windows holds the valid windows in timestamp order.
	Windows []WindowScore
	// Valid reports whether at least one window had enough samples.
	Valid bool
}

// Finalize scores every valid window and derives the session summary.
func (a *Accumulator) Finalize() Summary {
	indices := make([]int64, 0, len(a.windows))
	for idx, w := range a.windows {
		if len(w.xs) >= a.cfg.MinSamplesPerWindow {
			indices = append(indices, idx)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	if len(indices) == 0 {
		return Summary{MovementClass: MovementStationary}
	}

	s := Summary{
		Valid:   true,
		Windows: make([]WindowScore, 0, len(indices)),
	}
	var scoreSum float64
	prevMeanX := math.NaN()
	for _, idx := range indices {
		w := a.windows[idx]
		spread := stat.StdDev(w.xs, nil) + stat.StdDev(w.ys, nil)
		score := clamp01(1 - spread/spreadCeiling)
		meanX := stat.Mean(w.xs, nil)

		scoreSum += score
		s.Windows = append(s.Windows, WindowScore{
			StartSeconds: float64(idx) * a.cfg.WindowSeconds,
			Score:        score,
			MeanX:        meanX,
		})
		if !math.IsNaN(prevMeanX) && math.Abs(meanX-prevMeanX) > a.cfg.CrossingThreshold {
			s.StageCrossings++
		}
		prevMeanX = meanX
	}
	s.Score = scoreSum / float64(len(indices))

	switch {
	case s.Score >= 0.85:
		s.MovementClass = MovementStationary
	case s.Score >= 0.5:
		s.MovementClass = MovementModerate
	default:
		s.MovementClass = MovementHigh
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
