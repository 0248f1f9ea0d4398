// Package gesture classifies hand landmarks into discrete gestures and
// debounces the per-frame labels into control events.
package gesture

import "github.com/ayusman/visionlink/internal/detector"

// Gesture is a discrete hand gesture label.
type Gesture string

const (
	Fist     Gesture = "fist"
	OpenPalm Gesture = "open_palm"
	PointUp  Gesture = "point_up"
	Victory  Gesture = "victory"
	ThumbsUp Gesture = "thumbs_up"
	Rock     Gesture = "rock"
	Unknown  Gesture = "unknown"
)

// ExtensionMargin is the pixel distance a fingertip must pass its
// proximal joint by to count as extended.
const ExtensionMargin = 10.0

// Fingers holds the extended state of thumb, index, middle, ring and pinky.
type Fingers [5]bool

// Classification is the result of classifying one hand.
type Classification struct {
	Gesture    Gesture
	Confidence float64
}

// Known reports whether c names a gesture other than Unknown.
func (c Classification) Known() bool {
	return c.Gesture != "" && c.Gesture != Unknown
}

var unknown = Classification{Gesture: Unknown, Confidence: 0}

// rules maps finger vectors to gestures. Order matters: the first rule whose
// vector equals the input wins.
var rules = []struct {
	fingers Fingers
	result  Classification
}{
	{Fingers{false, false, false, false, false}, Classification{Fist, 0.95}},
	{Fingers{true, true, true, true, true}, Classification{OpenPalm, 0.95}},
	{Fingers{false, true, false, false, false}, Classification{PointUp, 0.9}},
	{Fingers{false, true, true, false, false}, Classification{Victory, 0.9}},
	{Fingers{true, false, false, false, false}, Classification{ThumbsUp, 0.9}},
	{Fingers{true, true, false, false, true}, Classification{Rock, 0.85}},
}

// tips and pips are the fingertip and proximal-joint landmarks per finger.
// For the thumb the IP joint stands in for the PIP.
var (
	tips = [5]int{detector.ThumbTip, detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}
	pips = [5]int{detector.ThumbIP, detector.IndexPIP, detector.MiddlePIP, detector.RingPIP, detector.PinkyPIP}
)

// ExtendedFingers computes which fingers of a complete hand are extended.
// The thumb is compared horizontally and points away from the palm: right
// for a right hand, left for a left hand. Unrecognised handedness is treated
// as a right hand. The other fingers are compared vertically with y growing
// downward.
func ExtendedFingers(hand *detector.HandLandmarks) Fingers {
	var f Fingers
	p := hand.Points

	tip, ip := p[tips[0]], p[pips[0]]
	if hand.Handedness == detector.LeftHand {
		f[0] = tip.X < ip.X-ExtensionMargin
	} else {
		f[0] = tip.X > ip.X+ExtensionMargin
	}

	for i := 1; i < len(f); i++ {
		f[i] = p[tips[i]].Y < p[pips[i]].Y-ExtensionMargin
	}
	return f
}

// ClassifyFingers maps a finger vector to a gesture. Vectors outside the
// table are Unknown with zero confidence.
func ClassifyFingers(f Fingers) Classification {
	for _, r := range rules {
		if r.fingers == f {
			return r.result
		}
	}
	return unknown
}

// Classify classifies a hand. Hands without exactly NumLandmarks points are
// Unknown.
func Classify(hand *detector.HandLandmarks) Classification {
	if !hand.Complete() {
		return unknown
	}
	return ClassifyFingers(ExtendedFingers(hand))
}
