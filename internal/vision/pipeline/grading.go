package pipeline

// Video quality grades.
const (
	GradeGood     = "good"
	GradeDegraded = "degraded"
	GradePoor     = "poor"
)

// gradeInputs carries the figures the grading rules consume.
type gradeInputs struct {
	hasDetectors      bool
	framesAnalyzed    int64
	faceNotDetected   int64
	expectedSamples   float64
	analysisRateFloor float64 // below this the session is rate-starved
	faceRateGood      float64
	faceRateDegraded  float64
}

// grade applies the quality rules in precedence order. Absence of every
// detector capability forces "poor" before anything else is considered. A
// rate-starved session (analysis rate below the floor) can never grade
// better than "degraded".
func grade(in gradeInputs) string {
	if !in.hasDetectors {
		return GradePoor
	}
	if in.framesAnalyzed == 0 {
		return GradePoor
	}

	faceRate := float64(in.framesAnalyzed-in.faceNotDetected) / float64(in.framesAnalyzed)

	if in.expectedSamples > 0 {
		analysisRate := float64(in.framesAnalyzed) / in.expectedSamples
		if analysisRate < in.analysisRateFloor {
			if faceRate >= in.faceRateGood {
				return GradeDegraded
			}
			return GradePoor
		}
	}

	switch {
	case faceRate >= in.faceRateGood:
		return GradeGood
	case faceRate >= in.faceRateDegraded:
		return GradeDegraded
	default:
		return GradePoor
	}
}

// analysisRateFloor is the analysis rate below which grading follows the
// rate-starved path.
const analysisRateFloor = 0.8

// Face-detection rate grade boundaries.
const (
	faceRateGood     = 0.6
	faceRateDegraded = 0.3
)
