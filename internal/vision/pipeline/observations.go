package pipeline

import (
	"github.com/podium-data/delivery.report/internal/vision/gaze"
	"github.com/podium-data/delivery.report/internal/vision/stability"
)

// TranscriptSegment is one spoken sentence with its time extent, supplied by
// the caller at finalization. Text is optional and never influences scoring.
type TranscriptSegment struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Text         string  `json:"text,omitempty"`
}

// ReliabilityFlags tells downstream consumers which signals carried enough
// coverage to be referenced. Each flag is computed from its own coverage
// ratio and the low-retention signal, independent of the overall grade.
type ReliabilityFlags struct {
	GazeReliable      bool `json:"gaze_reliable"`
	GestureReliable   bool `json:"gesture_reliable"`
	StabilityReliable bool `json:"stability_reliable"`
	EnergyReliable    bool `json:"facial_energy_reliable"`
}

// VisualObservations is the final session aggregate: a pure serializable
// value with no payload buffers and no detector handles. Produced exactly
// once per processor, then immutable.
type VisualObservations struct {
	Counters CounterSnapshot `json:"counters"`

	DurationSeconds float64 `json:"duration_seconds"`

	GazeBreakdown        gaze.Breakdown `json:"gaze_breakdown"`
	FaceNotDetectedCount int64          `json:"face_not_detected_count"`

	TotalGestureCount       int64    `json:"total_gesture_count"`
	GestureFrequency        float64  `json:"gesture_frequency_per_minute"`
	GesturePerSentenceRatio *float64 `json:"gesture_per_sentence_ratio"`
	HandsDetectedFrames     int64    `json:"hands_detected_frames"`
	HandsNotDetectedFrames  int64    `json:"hands_not_detected_frames"`

	MeanBodyStabilityScore float64                 `json:"mean_body_stability_score"`
	MovementClassification string                  `json:"movement_classification"`
	StageCrossingCount     int64                   `json:"stage_crossing_count"`
	StabilityWindowScores  []stability.WindowScore `json:"stability_window_scores"`

	MeanFacialEnergyScore float64 `json:"mean_facial_energy_score"`
	FacialEnergyVariation float64 `json:"facial_energy_variation"`
	FacialEnergyLowSignal bool    `json:"facial_energy_low_signal"`

	VideoQualityGrade   string           `json:"video_quality_grade"`
	VideoQualityWarning bool             `json:"video_quality_warning"`
	Reliability         ReliabilityFlags `json:"reliability"`

	FinalizationLatencyMs int64  `json:"finalization_latency_ms"`
	ProcessingFingerprint string `json:"processing_fingerprint"`
}
