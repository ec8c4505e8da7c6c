// Package detect defines the capability contracts for the externally
// supplied face and pose detectors and the detection result types the
// accumulators consume.
//
// Detectors are optional collaborators: a processor may be constructed with
// either, both, or neither present. Absence of both forces the session
// quality grade to "poor" but is not an error.
package detect

// Point is a 2-D image coordinate in pixels. Y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is an axis-aligned pixel-space box.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area in square pixels.
func (b BoundingBox) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// FaceLandmarks holds the six canonical face keypoints produced by
// BlazeFace-style detectors.
type FaceLandmarks struct {
	RightEye Point `json:"right_eye"`
	LeftEye  Point `json:"left_eye"`
	Nose     Point `json:"nose"`
	Mouth    Point `json:"mouth"`
	RightEar Point `json:"right_ear"`
	LeftEar  Point `json:"left_ear"`
}

// Points returns the six landmarks in a fixed order so callers can iterate
// without caring about names (facial-energy deltas, tests).
func (l FaceLandmarks) Points() [6]Point {
	return [6]Point{l.RightEye, l.LeftEye, l.Nose, l.Mouth, l.RightEar, l.LeftEar}
}

// FaceDetection is one face result: six landmarks, a bounding box, and the
// detector's confidence in [0,1].
type FaceDetection struct {
	Landmarks  FaceLandmarks `json:"landmarks"`
	Box        BoundingBox   `json:"box"`
	Confidence float64       `json:"confidence"`
}

// Pose keypoint names. Detectors may report more keypoints than these; the
// pipeline only relies on the wrist and elbow pair for gesture detection and
// on the full set for the body centroid.
const (
	KeypointNose          = "nose"
	KeypointLeftShoulder  = "left_shoulder"
	KeypointRightShoulder = "right_shoulder"
	KeypointLeftElbow     = "left_elbow"
	KeypointRightElbow    = "right_elbow"
	KeypointLeftWrist     = "left_wrist"
	KeypointRightWrist    = "right_wrist"
	KeypointLeftHip       = "left_hip"
	KeypointRightHip      = "right_hip"
)

// HandKeypointNames lists the keypoints that must all be present with
// sufficient confidence for a frame to count as "hands detected".
var HandKeypointNames = []string{
	KeypointLeftWrist, KeypointRightWrist,
	KeypointLeftElbow, KeypointRightElbow,
}

// Keypoint is one named body landmark with its own confidence.
type Keypoint struct {
	Point      Point   `json:"point"`
	Confidence float64 `json:"confidence"`
}

// PoseDetection is one body-pose result: named keypoints plus an overall
// confidence in [0,1].
type PoseDetection struct {
	Keypoints  map[string]Keypoint `json:"keypoints"`
	Confidence float64             `json:"confidence"`
}

// Keypoint returns the named keypoint and whether it was reported.
func (p *PoseDetection) Keypoint(name string) (Keypoint, bool) {
	kp, ok := p.Keypoints[name]
	return kp, ok
}

// FaceDetector is the face-detection capability. Detect returns (nil, nil)
// when no face is found; a non-nil error indicates a per-frame detector
// failure, which the pipeline counts and never retries.
type FaceDetector interface {
	DetectFace(payload []byte) (*FaceDetection, error)
	// ModelID identifies the underlying model for the processing fingerprint.
	ModelID() string
}

// PoseDetector is the pose-detection capability. Detect returns (nil, nil)
// when no body is found.
type PoseDetector interface {
	DetectPose(payload []byte) (*PoseDetection, error)
	ModelID() string
}

// Capabilities bundles the optional detector collaborators supplied at
// processor construction. Either field may be nil.
type Capabilities struct {
	Face FaceDetector
	Pose PoseDetector
}

// HasAny reports whether at least one detector capability is available.
func (c Capabilities) HasAny() bool {
	return c.Face != nil || c.Pose != nil
}

// FaceModelID returns the face model identifier or "none".
func (c Capabilities) FaceModelID() string {
	if c.Face == nil {
		return "none"
	}
	return c.Face.ModelID()
}

// PoseModelID returns the pose model identifier or "none".
func (c Capabilities) PoseModelID() string {
	if c.Pose == nil {
		return "none"
	}
	return c.Pose.ModelID()
}
