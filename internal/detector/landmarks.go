// Package detector defines the inference collaborators (object and hand
// detection) and the types they produce.
package detector

// Hand landmark indices following the 21-point hand model.
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// boxCoords is the number of leading values in a raw hand result that hold
// the four corners of the hand box.
const boxCoords = 8

// Handedness values.
const (
	LeftHand  = "Left"
	RightHand = "Right"
)

// Point3D is one landmark in image-pixel coordinates (y grows downward).
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one detected hand. A hand is classifiable only when
// Points holds exactly NumLandmarks entries.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// Complete reports whether the hand has the full landmark set.
func (h *HandLandmarks) Complete() bool {
	return h != nil && len(h.Points) == NumLandmarks
}

// ParseHandPoints converts the detector's flat point layout (eight box
// coordinates followed by x, y, z triples) into landmarks. Trailing
// incomplete triples are dropped, so short input yields fewer than
// NumLandmarks points.
func ParseHandPoints(raw []float64) []Point3D {
	if len(raw) <= boxCoords {
		return nil
	}

	triples := (len(raw) - boxCoords) / 3
	if triples > NumLandmarks {
		triples = NumLandmarks
	}

	points := make([]Point3D, triples)
	for i := range points {
		base := boxCoords + i*3
		points[i] = Point3D{X: raw[base], Y: raw[base+1], Z: raw[base+2]}
	}
	return points
}
