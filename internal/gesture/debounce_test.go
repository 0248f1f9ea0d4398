package gesture

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/visionlink/internal/detector"
)

func seen(g Gesture) Observation {
	return Observation{Classification: ClassifyFingers(fingersOf(g)), Hands: 1}
}

func fingersOf(g Gesture) Fingers {
	for _, r := range rules {
		if r.result.Gesture == g {
			return r.fingers
		}
	}
	return Fingers{true, false, true, false, true}
}

func feed(d *Debouncer, obs ...Observation) []Event {
	var events []Event
	for _, o := range obs {
		if e, ok := d.Observe(o); ok {
			events = append(events, e)
		}
	}
	return events
}

func TestDebouncer_EmitsAfterNIdentical(t *testing.T) {
	d := NewDebouncer(DefaultLength, DefaultThreshold)

	events := feed(d, seen(Victory), seen(Victory), seen(Victory))

	require.Len(t, events, 1)
	assert.Equal(t, Victory, events[0].Gesture)
	assert.Equal(t, 0.9, events[0].Confidence)
	assert.Equal(t, "fan", events[0].Action.Device)
	assert.Empty(t, d.History())

	last, ok := d.LastEmitted()
	assert.True(t, ok)
	assert.Equal(t, Victory, last)
}

func TestDebouncer_MixedHistoryDoesNotEmit(t *testing.T) {
	d := NewDebouncer(DefaultLength, DefaultThreshold)

	events := feed(d, seen(Victory), seen(Victory), seen(Fist))

	assert.Empty(t, events)
	assert.Equal(t, []Gesture{Victory, Victory, Fist}, d.History())
}

func TestDebouncer_HistoryIsBounded(t *testing.T) {
	d := NewDebouncer(DefaultLength, DefaultThreshold)

	// The window slides: fist drops out after three more victories.
	events := feed(d, seen(Fist), seen(Victory), seen(Victory), seen(Victory))

	require.Len(t, events, 1)
	assert.Equal(t, Victory, events[0].Gesture)
}

func TestDebouncer_SuppressesRepeatWithoutReset(t *testing.T) {
	d := NewDebouncer(DefaultLength, DefaultThreshold)
	require.Len(t, feed(d, seen(Victory), seen(Victory), seen(Victory)), 1)

	// Holding the same gesture never re-emits.
	events := feed(d, seen(Victory), seen(Victory), seen(Victory), seen(Victory))
	assert.Empty(t, events)
	assert.Len(t, d.History(), DefaultLength)
}

func TestDebouncer_ReemitsAfterRelease(t *testing.T) {
	d := NewDebouncer(DefaultLength, DefaultThreshold)
	require.Len(t, feed(d, seen(Victory), seen(Victory), seen(Victory)), 1)

	events := feed(d, NoHand, seen(Victory), seen(Victory), seen(Victory))

	require.Len(t, events, 1)
	assert.Equal(t, Victory, events[0].Gesture)
}

func TestDebouncer_StrictReset(t *testing.T) {
	tests := []struct {
		name string
		obs  Observation
	}{
		{"no hand", NoHand},
		{"unknown gesture", seen(Unknown)},
		{"low confidence", Observation{Classification: Classification{Gesture: Rock, Confidence: 0.8}, Hands: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(DefaultLength, DefaultThreshold)
			require.Len(t, feed(d, seen(Fist), seen(Fist), seen(Fist), seen(Fist)), 1)
			require.NotEmpty(t, d.History())

			_, ok := d.Observe(tt.obs)
			assert.False(t, ok)
			assert.Empty(t, d.History())
			_, emitted := d.LastEmitted()
			assert.False(t, emitted)
		})
	}
}

func TestDebouncer_DifferentGestureEmits(t *testing.T) {
	d := NewDebouncer(DefaultLength, DefaultThreshold)

	events := feed(d,
		seen(Victory), seen(Victory), seen(Victory),
		seen(OpenPalm), seen(OpenPalm), seen(OpenPalm),
	)

	require.Len(t, events, 2)
	assert.Equal(t, Victory, events[0].Gesture)
	assert.Equal(t, OpenPalm, events[1].Gesture)
}

func TestDebouncer_LengthOne(t *testing.T) {
	d := NewDebouncer(0, DefaultThreshold)

	events := feed(d, seen(PointUp), seen(PointUp), seen(ThumbsUp))

	require.Len(t, events, 2)
	assert.Equal(t, PointUp, events[0].Gesture)
	assert.Equal(t, ThumbsUp, events[1].Gesture)
}

func TestObserve(t *testing.T) {
	t.Run("no hands", func(t *testing.T) {
		assert.Equal(t, NoHand, Observe(nil, DefaultThreshold))
	})

	t.Run("last qualifying hand wins", func(t *testing.T) {
		hands := []detector.HandLandmarks{
			detector.VictoryLandmarks(),
			detector.FistLandmarks(),
			detector.PoseLandmarks(Fingers{true, false, true, false, true}, detector.RightHand),
		}
		obs := Observe(hands, DefaultThreshold)
		assert.Equal(t, Fist, obs.Gesture)
		assert.Equal(t, 3, obs.Hands)
	})

	t.Run("nothing qualifies", func(t *testing.T) {
		rock := detector.PoseLandmarks(Fingers{true, true, false, false, true}, detector.RightHand)
		obs := Observe([]detector.HandLandmarks{rock}, 0.9)
		assert.Equal(t, Unknown, obs.Gesture)
		assert.Equal(t, 1, obs.Hands)
	})
}

func TestEvent_JSON(t *testing.T) {
	d := NewDebouncer(1, DefaultThreshold)
	e, ok := d.Observe(seen(Victory))
	require.True(t, ok)

	data, err := json.Marshal(e)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"gesture": "victory",
		"confidence": 0.9,
		"action": {"device": "fan", "action": {"power": "on", "speed": 3, "reason": "gesture turns the fan on"}}
	}`, string(data))
}

func TestActionFor_Unbound(t *testing.T) {
	a := ActionFor(Unknown)
	assert.Equal(t, "unknown", a.Device)
	assert.Empty(t, a.Command)

	for _, r := range rules {
		assert.NotEqual(t, "unknown", ActionFor(r.result.Gesture).Device, r.result.Gesture)
		assert.NotEqual(t, string(r.result.Gesture), Label(r.result.Gesture))
	}
}
