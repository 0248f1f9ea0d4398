package gesture

import "github.com/ayusman/visionlink/internal/detector"

// Debounce defaults.
const (
	DefaultLength    = 3
	DefaultThreshold = 0.8
)

// Observation is the gesture-path outcome of one frame. The zero value means
// no hand was seen.
type Observation struct {
	Classification
	Hands int
}

// NoHand is the observation of a frame without a usable hand, including
// frames where hand detection failed.
var NoHand = Observation{}

// Observe classifies hands and returns the last one whose classification is
// known and above threshold. If none qualifies, the result carries Unknown.
func Observe(hands []detector.HandLandmarks, threshold float64) Observation {
	if len(hands) == 0 {
		return NoHand
	}
	obs := Observation{Classification: unknown, Hands: len(hands)}
	for i := range hands {
		c := Classify(&hands[i])
		if c.Known() && c.Confidence > threshold {
			obs.Classification = c
		}
	}
	return obs
}

// Event is a confirmed gesture transition.
type Event struct {
	Gesture    Gesture `json:"gesture"`
	Confidence float64 `json:"confidence"`
	Action     Action  `json:"action"`
}

// Debouncer turns per-tick observations into events. A gesture is emitted
// once it is observed on Length consecutive qualifying ticks and differs
// from the last emitted gesture. Any non-qualifying tick clears both the
// history and the last emitted gesture.
type Debouncer struct {
	length      int
	threshold   float64
	history     []Gesture
	lastEmitted Gesture
}

// NewDebouncer returns a Debouncer requiring length identical observations
// with confidence above threshold. A length below 1 is treated as 1.
func NewDebouncer(length int, threshold float64) *Debouncer {
	if length < 1 {
		length = 1
	}
	return &Debouncer{
		length:    length,
		threshold: threshold,
		history:   make([]Gesture, 0, length),
	}
}

// Observe feeds one tick and returns the event, if one is confirmed.
func (d *Debouncer) Observe(o Observation) (Event, bool) {
	if !o.Known() || o.Confidence <= d.threshold {
		d.Reset()
		return Event{}, false
	}

	if len(d.history) >= d.length {
		// Shift left by 1, dropping the oldest label
		copy(d.history, d.history[1:])
		d.history = d.history[:d.length-1]
	}
	d.history = append(d.history, o.Gesture)

	if len(d.history) < d.length || o.Gesture == d.lastEmitted {
		return Event{}, false
	}
	for _, g := range d.history {
		if g != o.Gesture {
			return Event{}, false
		}
	}

	d.lastEmitted = o.Gesture
	d.history = d.history[:0]
	return Event{
		Gesture:    o.Gesture,
		Confidence: o.Confidence,
		Action:     ActionFor(o.Gesture),
	}, true
}

// Reset clears the history and the last emitted gesture.
func (d *Debouncer) Reset() {
	d.history = d.history[:0]
	d.lastEmitted = ""
}

// LastEmitted returns the last emitted gesture, if any.
func (d *Debouncer) LastEmitted() (Gesture, bool) {
	return d.lastEmitted, d.lastEmitted != ""
}

// History returns a copy of the pending labels, oldest first.
func (d *Debouncer) History() []Gesture {
	out := make([]Gesture, len(d.history))
	copy(out, d.history)
	return out
}
