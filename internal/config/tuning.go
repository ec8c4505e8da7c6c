package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// SessionConfig represents the root configuration for a processing session.
// All fields are optional pointers so a partial JSON file only overrides the
// values it names; the Get* accessors supply the defaults. The configuration
// is fixed for the processor's lifetime.
type SessionConfig struct {
	// Sampling and queue params
	FrameRate          *float64 `json:"frame_rate,omitempty"`
	QueueMaxSize       *int     `json:"queue_max_size,omitempty"`
	StaleFrameSeconds  *float64 `json:"stale_frame_threshold_seconds,omitempty"`
	IdlePollIntervalMs *int     `json:"idle_poll_interval_ms,omitempty"`

	// Backpressure params
	BackpressureOverloadThreshold *float64 `json:"backpressure_overload_threshold,omitempty"`
	BackpressureRecoveryThreshold *float64 `json:"backpressure_recovery_threshold,omitempty"`
	BackpressureCooldownMs        *int     `json:"backpressure_cooldown_ms,omitempty"`

	// Finalization params
	FinalizationBudgetMs    *int `json:"finalization_budget_ms,omitempty"`
	MetricRoundingPrecision *int `json:"metric_rounding_precision,omitempty"`

	// Gaze params
	FaceConfidenceThreshold *float64 `json:"face_detection_confidence_threshold,omitempty"`
	MinFaceAreaFraction     *float64 `json:"min_face_area_fraction,omitempty"`
	GazeYawThresholdDeg     *float64 `json:"gaze_yaw_threshold_degrees,omitempty"`
	GazePitchThresholdDeg   *float64 `json:"gaze_pitch_threshold_degrees,omitempty"`

	// Gesture params
	PoseConfidenceThreshold      *float64 `json:"pose_detection_confidence_threshold,omitempty"`
	GestureDisplacementThreshold *float64 `json:"gesture_displacement_threshold,omitempty"`

	// Stability params
	StabilityWindowSeconds  *float64 `json:"stability_window_seconds,omitempty"`
	MinValidFramesPerWindow *int     `json:"min_valid_frames_per_window,omitempty"`
	StageCrossingThreshold  *float64 `json:"stage_crossing_threshold,omitempty"`

	// Facial-energy params
	FacialEnergyEpsilon *float64 `json:"facial_energy_epsilon,omitempty"`

	// Grading and reliability params
	FrameRetentionWarningThreshold *float64 `json:"frame_retention_warning_threshold,omitempty"`
	GazeCoverageThreshold          *float64 `json:"gaze_coverage_threshold,omitempty"`
	GestureCoverageThreshold       *float64 `json:"gesture_coverage_threshold,omitempty"`
	StabilityCoverageThreshold     *float64 `json:"stability_coverage_threshold,omitempty"`
	EnergyCoverageThreshold        *float64 `json:"facial_energy_coverage_threshold,omitempty"`
}

// EmptySessionConfig returns a SessionConfig with all fields set to nil.
// Use LoadSessionConfig to load actual values from the defaults file.
func EmptySessionConfig() *SessionConfig {
	return &SessionConfig{}
}

// LoadSessionConfig loads a SessionConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptySessionConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *SessionConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/vision/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadSessionConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Construction is
// the only place configuration errors can surface; once a processor exists
// every degraded condition is reported as data, not as an error.
func (c *SessionConfig) Validate() error {
	if c.FrameRate != nil && *c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %f", *c.FrameRate)
	}
	if c.QueueMaxSize != nil && *c.QueueMaxSize < 1 {
		return fmt.Errorf("queue_max_size must be at least 1, got %d", *c.QueueMaxSize)
	}
	if c.StaleFrameSeconds != nil && *c.StaleFrameSeconds <= 0 {
		return fmt.Errorf("stale_frame_threshold_seconds must be positive, got %f", *c.StaleFrameSeconds)
	}
	if c.IdlePollIntervalMs != nil && *c.IdlePollIntervalMs < 1 {
		return fmt.Errorf("idle_poll_interval_ms must be at least 1, got %d", *c.IdlePollIntervalMs)
	}
	if c.FinalizationBudgetMs != nil && *c.FinalizationBudgetMs < 0 {
		return fmt.Errorf("finalization_budget_ms must be non-negative, got %d", *c.FinalizationBudgetMs)
	}
	if c.MetricRoundingPrecision != nil && (*c.MetricRoundingPrecision < 0 || *c.MetricRoundingPrecision > 10) {
		return fmt.Errorf("metric_rounding_precision must be between 0 and 10, got %d", *c.MetricRoundingPrecision)
	}

	ratios := map[string]*float64{
		"backpressure_overload_threshold":     c.BackpressureOverloadThreshold,
		"backpressure_recovery_threshold":     c.BackpressureRecoveryThreshold,
		"face_detection_confidence_threshold": c.FaceConfidenceThreshold,
		"pose_detection_confidence_threshold": c.PoseConfidenceThreshold,
		"min_face_area_fraction":              c.MinFaceAreaFraction,
		"frame_retention_warning_threshold":   c.FrameRetentionWarningThreshold,
		"gaze_coverage_threshold":             c.GazeCoverageThreshold,
		"gesture_coverage_threshold":          c.GestureCoverageThreshold,
		"stability_coverage_threshold":        c.StabilityCoverageThreshold,
		"facial_energy_coverage_threshold":    c.EnergyCoverageThreshold,
	}
	for name, v := range ratios {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}

	if c.BackpressureOverloadThreshold != nil && c.BackpressureRecoveryThreshold != nil &&
		*c.BackpressureRecoveryThreshold >= *c.BackpressureOverloadThreshold {
		return fmt.Errorf("backpressure_recovery_threshold (%f) must be below backpressure_overload_threshold (%f)",
			*c.BackpressureRecoveryThreshold, *c.BackpressureOverloadThreshold)
	}
	if c.BackpressureCooldownMs != nil && *c.BackpressureCooldownMs < 0 {
		return fmt.Errorf("backpressure_cooldown_ms must be non-negative, got %d", *c.BackpressureCooldownMs)
	}
	if c.GestureDisplacementThreshold != nil && *c.GestureDisplacementThreshold < 0 {
		return fmt.Errorf("gesture_displacement_threshold must be non-negative, got %f", *c.GestureDisplacementThreshold)
	}
	if c.StabilityWindowSeconds != nil && *c.StabilityWindowSeconds <= 0 {
		return fmt.Errorf("stability_window_seconds must be positive, got %f", *c.StabilityWindowSeconds)
	}
	if c.MinValidFramesPerWindow != nil && *c.MinValidFramesPerWindow < 1 {
		return fmt.Errorf("min_valid_frames_per_window must be at least 1, got %d", *c.MinValidFramesPerWindow)
	}
	if c.StageCrossingThreshold != nil && *c.StageCrossingThreshold <= 0 {
		return fmt.Errorf("stage_crossing_threshold must be positive, got %f", *c.StageCrossingThreshold)
	}
	if c.FacialEnergyEpsilon != nil && *c.FacialEnergyEpsilon < 0 {
		return fmt.Errorf("facial_energy_epsilon must be non-negative, got %f", *c.FacialEnergyEpsilon)
	}

	return nil
}

// GetFrameRate returns the frame_rate value or the default.
func (c *SessionConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return 2.0 // default: 2 analyzed frames per second
	}
	return *c.FrameRate
}

// GetQueueMaxSize returns the queue_max_size value or the default.
func (c *SessionConfig) GetQueueMaxSize() int {
	if c.QueueMaxSize == nil {
		return 32
	}
	return *c.QueueMaxSize
}

// GetStaleFrameSeconds returns the stale_frame_threshold_seconds value or the default.
func (c *SessionConfig) GetStaleFrameSeconds() float64 {
	if c.StaleFrameSeconds == nil {
		return 2.0
	}
	return *c.StaleFrameSeconds
}

// GetIdlePollIntervalMs returns the idle_poll_interval_ms value or the default.
func (c *SessionConfig) GetIdlePollIntervalMs() int {
	if c.IdlePollIntervalMs == nil {
		return 10
	}
	return *c.IdlePollIntervalMs
}

// GetBackpressureOverloadThreshold returns the backpressure_overload_threshold value or the default.
func (c *SessionConfig) GetBackpressureOverloadThreshold() float64 {
	if c.BackpressureOverloadThreshold == nil {
		return 0.20
	}
	return *c.BackpressureOverloadThreshold
}

// GetBackpressureRecoveryThreshold returns the backpressure_recovery_threshold value or the default.
func (c *SessionConfig) GetBackpressureRecoveryThreshold() float64 {
	if c.BackpressureRecoveryThreshold == nil {
		return 0.10
	}
	return *c.BackpressureRecoveryThreshold
}

// GetBackpressureCooldownMs returns the backpressure_cooldown_ms value or the default.
func (c *SessionConfig) GetBackpressureCooldownMs() int {
	if c.BackpressureCooldownMs == nil {
		return 3000
	}
	return *c.BackpressureCooldownMs
}

// GetFinalizationBudgetMs returns the finalization_budget_ms value or the default.
func (c *SessionConfig) GetFinalizationBudgetMs() int {
	if c.FinalizationBudgetMs == nil {
		return 3000
	}
	return *c.FinalizationBudgetMs
}

// GetMetricRoundingPrecision returns the metric_rounding_precision value or the default.
func (c *SessionConfig) GetMetricRoundingPrecision() int {
	if c.MetricRoundingPrecision == nil {
		return 4
	}
	return *c.MetricRoundingPrecision
}

// GetFaceConfidenceThreshold returns the face_detection_confidence_threshold value or the default.
func (c *SessionConfig) GetFaceConfidenceThreshold() float64 {
	if c.FaceConfidenceThreshold == nil {
		return 0.5
	}
	return *c.FaceConfidenceThreshold
}

// GetMinFaceAreaFraction returns the min_face_area_fraction value or the default.
func (c *SessionConfig) GetMinFaceAreaFraction() float64 {
	if c.MinFaceAreaFraction == nil {
		return 0.05
	}
	return *c.MinFaceAreaFraction
}

// GetGazeYawThresholdDeg returns the gaze_yaw_threshold_degrees value or the default.
func (c *SessionConfig) GetGazeYawThresholdDeg() float64 {
	if c.GazeYawThresholdDeg == nil {
		return 15.0
	}
	return *c.GazeYawThresholdDeg
}

// GetGazePitchThresholdDeg returns the gaze_pitch_threshold_degrees value or the default.
func (c *SessionConfig) GetGazePitchThresholdDeg() float64 {
	if c.GazePitchThresholdDeg == nil {
		return -20.0
	}
	return *c.GazePitchThresholdDeg
}

// GetPoseConfidenceThreshold returns the pose_detection_confidence_threshold value or the default.
func (c *SessionConfig) GetPoseConfidenceThreshold() float64 {
	if c.PoseConfidenceThreshold == nil {
		return 0.3
	}
	return *c.PoseConfidenceThreshold
}

// GetGestureDisplacementThreshold returns the gesture_displacement_threshold value or the default.
func (c *SessionConfig) GetGestureDisplacementThreshold() float64 {
	if c.GestureDisplacementThreshold == nil {
		return 0.15
	}
	return *c.GestureDisplacementThreshold
}

// GetStabilityWindowSeconds returns the stability_window_seconds value or the default.
func (c *SessionConfig) GetStabilityWindowSeconds() float64 {
	if c.StabilityWindowSeconds == nil {
		return 5.0
	}
	return *c.StabilityWindowSeconds
}

// GetMinValidFramesPerWindow returns the min_valid_frames_per_window value or the default.
func (c *SessionConfig) GetMinValidFramesPerWindow() int {
	if c.MinValidFramesPerWindow == nil {
		return 3
	}
	return *c.MinValidFramesPerWindow
}

// GetStageCrossingThreshold returns the stage_crossing_threshold value or the default.
func (c *SessionConfig) GetStageCrossingThreshold() float64 {
	if c.StageCrossingThreshold == nil {
		return 0.25
	}
	return *c.StageCrossingThreshold
}

// GetFacialEnergyEpsilon returns the facial_energy_epsilon value or the default.
func (c *SessionConfig) GetFacialEnergyEpsilon() float64 {
	if c.FacialEnergyEpsilon == nil {
		return 0.001
	}
	return *c.FacialEnergyEpsilon
}

// GetFrameRetentionWarningThreshold returns the frame_retention_warning_threshold value or the default.
func (c *SessionConfig) GetFrameRetentionWarningThreshold() float64 {
	if c.FrameRetentionWarningThreshold == nil {
		return 0.5
	}
	return *c.FrameRetentionWarningThreshold
}

// GetGazeCoverageThreshold returns the gaze_coverage_threshold value or the default.
func (c *SessionConfig) GetGazeCoverageThreshold() float64 {
	if c.GazeCoverageThreshold == nil {
		return 0.6
	}
	return *c.GazeCoverageThreshold
}

// GetGestureCoverageThreshold returns the gesture_coverage_threshold value or the default.
func (c *SessionConfig) GetGestureCoverageThreshold() float64 {
	if c.GestureCoverageThreshold == nil {
		return 0.3
	}
	return *c.GestureCoverageThreshold
}

// GetStabilityCoverageThreshold returns the stability_coverage_threshold value or the default.
func (c *SessionConfig) GetStabilityCoverageThreshold() float64 {
	if c.StabilityCoverageThreshold == nil {
		return 0.5
	}
	return *c.StabilityCoverageThreshold
}

// GetEnergyCoverageThreshold returns the facial_energy_coverage_threshold value or the default.
func (c *SessionConfig) GetEnergyCoverageThreshold() float64 {
	if c.EnergyCoverageThreshold == nil {
		return 0.5
	}
	return *c.EnergyCoverageThreshold
}
