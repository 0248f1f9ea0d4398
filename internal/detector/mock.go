package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of ObjectDetector and HandDetector.
// It allows tests to control the detection results.
type MockDetector struct {
	objects   []Object
	hands     []HandLandmarks
	objectErr error
	handErr   error
	calls     int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetObjects sets the objects that will be returned by DetectObjects.
func (m *MockDetector) SetObjects(objects []Object) {
	m.objects = objects
}

// SetHands sets the hands that will be returned by DetectHands.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// SetObjectError sets the error that will be returned by DetectObjects.
func (m *MockDetector) SetObjectError(err error) {
	m.objectErr = err
}

// SetHandError sets the error that will be returned by DetectHands.
func (m *MockDetector) SetHandError(err error) {
	m.handErr = err
}

// HandCalls returns how many times DetectHands was called.
func (m *MockDetector) HandCalls() int {
	return m.calls
}

// DetectObjects returns the pre-configured objects or error.
func (m *MockDetector) DetectObjects(frame *gocv.Mat) ([]Object, error) {
	if m.objectErr != nil {
		return nil, m.objectErr
	}
	return m.objects, nil
}

// DetectHands returns the pre-configured hands or error.
func (m *MockDetector) DetectHands(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.calls++
	if m.handErr != nil {
		return nil, m.handErr
	}
	return m.hands, nil
}

// Pixel layout used by PoseLandmarks, for a right hand in a 320x224 frame.
const (
	poseWristX = 160.0
	poseWristY = 200.0
	poseMirror = 2 * poseWristX
)

// PoseLandmarks builds a right or left hand in pixel coordinates whose
// fingers (thumb, index, middle, ring, pinky) are extended as given.
func PoseLandmarks(fingers [5]bool, handedness string) HandLandmarks {
	h := HandLandmarks{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: handedness,
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: poseWristX, Y: poseWristY}

	// Thumb runs sideways; extended puts the tip well past the IP joint.
	h.Points[ThumbCMC] = Point3D{X: 180, Y: 190}
	h.Points[ThumbMCP] = Point3D{X: 200, Y: 180}
	h.Points[ThumbIP] = Point3D{X: 210, Y: 170}
	if fingers[0] {
		h.Points[ThumbTip] = Point3D{X: 230, Y: 165}
	} else {
		h.Points[ThumbTip] = Point3D{X: 205, Y: 172}
	}

	// Remaining fingers run upward; curled puts the tip below the PIP joint.
	columns := [4]float64{185, 170, 155, 140}
	for f, x := range columns {
		mcp := IndexMCP + f*4
		h.Points[mcp] = Point3D{X: x, Y: 150}
		h.Points[mcp+1] = Point3D{X: x, Y: 130}
		if fingers[f+1] {
			h.Points[mcp+2] = Point3D{X: x, Y: 110, Z: -0.01}
			h.Points[mcp+3] = Point3D{X: x, Y: 90, Z: -0.02}
		} else {
			h.Points[mcp+2] = Point3D{X: x, Y: 140, Z: -0.04}
			h.Points[mcp+3] = Point3D{X: x, Y: 145, Z: -0.02}
		}
	}

	if handedness == LeftHand {
		for i := range h.Points {
			h.Points[i].X = poseMirror - h.Points[i].X
		}
	}

	return h
}

// ThumbsUpLandmarks returns a right hand with only the thumb extended.
func ThumbsUpLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{true, false, false, false, false}, RightHand)
}

// OpenPalmLandmarks returns a right hand with every finger extended.
func OpenPalmLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{true, true, true, true, true}, RightHand)
}

// VictoryLandmarks returns a right hand with index and middle extended.
func VictoryLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{false, true, true, false, false}, RightHand)
}

// FistLandmarks returns a right hand with every finger curled.
func FistLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{}, RightHand)
}
