package detector

import "gocv.io/x/gocv"

// Object is one raw detection from the object detector.
type Object struct {
	X       int     `json:"x"`
	Y       int     `json:"y"`
	W       int     `json:"w"`
	H       int     `json:"h"`
	ClassID int     `json:"class_id"`
	Score   float64 `json:"score"`
}

// ObjectDetector runs object detection on a frame.
type ObjectDetector interface {
	// DetectObjects returns detections in detector output order.
	DetectObjects(frame *gocv.Mat) ([]Object, error)
}

// HandDetector runs hand-pose detection on a frame.
type HandDetector interface {
	// DetectHands returns detected hands, or an empty slice if none.
	DetectHands(frame *gocv.Mat) ([]HandLandmarks, error)
}

// Config holds detection thresholds passed to the inference service.
type Config struct {
	// ObjectConfidence is the minimum object score (0.0-1.0).
	ObjectConfidence float64

	// IOUThreshold is the non-maximum suppression overlap threshold.
	IOUThreshold float64

	// HandConfidence is the minimum hand detection score (0.0-1.0).
	HandConfidence float64

	// LandmarkConfidence is the minimum landmark regression score (0.0-1.0).
	LandmarkConfidence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ObjectConfidence:   0.5,
		IOUThreshold:       0.45,
		HandConfidence:     0.7,
		LandmarkConfidence: 0.8,
	}
}
