package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/podium-data/delivery.report/internal/config"
	"github.com/podium-data/delivery.report/internal/version"
	"github.com/podium-data/delivery.report/internal/vision/detect"
)

// fingerprintInput is the canonical form hashed into the processing
// fingerprint: every resolved tuning value plus the declared model and code
// identifiers. Struct field order fixes the serialization, so identical
// configurations always produce identical fingerprints.
type fingerprintInput struct {
	Version     string `json:"version"`
	FaceModelID string `json:"face_model_id"`
	PoseModelID string `json:"pose_model_id"`

	FrameRate          float64 `json:"frame_rate"`
	QueueMaxSize       int     `json:"queue_max_size"`
	StaleFrameSeconds  float64 `json:"stale_frame_threshold_seconds"`
	IdlePollIntervalMs int     `json:"idle_poll_interval_ms"`

	OverloadThreshold float64 `json:"backpressure_overload_threshold"`
	RecoveryThreshold float64 `json:"backpressure_recovery_threshold"`
	CooldownMs        int     `json:"backpressure_cooldown_ms"`

	FinalizationBudgetMs    int `json:"finalization_budget_ms"`
	MetricRoundingPrecision int `json:"metric_rounding_precision"`

	FaceConfidenceThreshold float64 `json:"face_detection_confidence_threshold"`
	MinFaceAreaFraction     float64 `json:"min_face_area_fraction"`
	GazeYawThresholdDeg     float64 `json:"gaze_yaw_threshold_degrees"`
	GazePitchThresholdDeg   float64 `json:"gaze_pitch_threshold_degrees"`

	PoseConfidenceThreshold      float64 `json:"pose_detection_confidence_threshold"`
	GestureDisplacementThreshold float64 `json:"gesture_displacement_threshold"`

	StabilityWindowSeconds  float64 `json:"stability_window_seconds"`
	MinValidFramesPerWindow int     `json:"min_valid_frames_per_window"`
	StageCrossingThreshold  float64 `json:"stage_crossing_threshold"`

	FacialEnergyEpsilon float64 `json:"facial_energy_epsilon"`

	RetentionWarningThreshold  float64 `json:"frame_retention_warning_threshold"`
	GazeCoverageThreshold      float64 `json:"gaze_coverage_threshold"`
	GestureCoverageThreshold   float64 `json:"gesture_coverage_threshold"`
	StabilityCoverageThreshold float64 `json:"stability_coverage_threshold"`
	EnergyCoverageThreshold    float64 `json:"facial_energy_coverage_threshold"`
}

// computeFingerprint derives the processing-version fingerprint from the
// resolved session configuration and the declared detector identifiers.
// Reruns with the same configuration and models report the same value, which
// is how reproducibility is verified downstream.
func computeFingerprint(cfg *config.SessionConfig, caps detect.Capabilities) string {
	in := fingerprintInput{
		Version:     version.Version,
		FaceModelID: caps.FaceModelID(),
		PoseModelID: caps.PoseModelID(),

		FrameRate:          cfg.GetFrameRate(),
		QueueMaxSize:       cfg.GetQueueMaxSize(),
		StaleFrameSeconds:  cfg.GetStaleFrameSeconds(),
		IdlePollIntervalMs: cfg.GetIdlePollIntervalMs(),

		OverloadThreshold: cfg.GetBackpressureOverloadThreshold(),
		RecoveryThreshold: cfg.GetBackpressureRecoveryThreshold(),
		CooldownMs:        cfg.GetBackpressureCooldownMs(),

		FinalizationBudgetMs:    cfg.GetFinalizationBudgetMs(),
		MetricRoundingPrecision: cfg.GetMetricRoundingPrecision(),

		FaceConfidenceThreshold: cfg.GetFaceConfidenceThreshold(),
		MinFaceAreaFraction:     cfg.GetMinFaceAreaFraction(),
		GazeYawThresholdDeg:     cfg.GetGazeYawThresholdDeg(),
		GazePitchThresholdDeg:   cfg.GetGazePitchThresholdDeg(),

		PoseConfidenceThreshold:      cfg.GetPoseConfidenceThreshold(),
		GestureDisplacementThreshold: cfg.GetGestureDisplacementThreshold(),

		StabilityWindowSeconds:  cfg.GetStabilityWindowSeconds(),
		MinValidFramesPerWindow: cfg.GetMinValidFramesPerWindow(),
		StageCrossingThreshold:  cfg.GetStageCrossingThreshold(),

		FacialEnergyEpsilon: cfg.GetFacialEnergyEpsilon(),

		RetentionWarningThreshold:  cfg.GetFrameRetentionWarningThreshold(),
		GazeCoverageThreshold:      cfg.GetGazeCoverageThreshold(),
		GestureCoverageThreshold:   cfg.GetGestureCoverageThreshold(),
		StabilityCoverageThreshold: cfg.GetStabilityCoverageThreshold(),
		EnergyCoverageThreshold:    cfg.GetEnergyCoverageThreshold(),
	}

	data, err := json.Marshal(in)
	if err != nil {
		// Marshaling a flat struct of numbers cannot fail at runtime.
		panic(fmt.Sprintf("fingerprint marshal: %v", err))
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
