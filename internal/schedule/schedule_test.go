package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestScheduler_Due(t *testing.T) {
	s := New(DefaultIntervals(), t0)

	tests := []struct {
		name    string
		channel Channel
		elapsed time.Duration
		want    bool
	}{
		{"image not yet", Image, 99 * time.Millisecond, false},
		{"image exactly", Image, 100 * time.Millisecond, true},
		{"detection not yet", Detection, 499 * time.Millisecond, false},
		{"detection exactly", Detection, 500 * time.Millisecond, true},
		{"gesture not yet", Gesture, 250 * time.Millisecond, false},
		{"gesture late", Gesture, 2 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Due(tt.channel, t0.Add(tt.elapsed)))
		})
	}
}

func TestScheduler_MarkSentIsIdempotent(t *testing.T) {
	s := New(DefaultIntervals(), t0)
	now := t0.Add(150 * time.Millisecond)

	assert.True(t, s.Due(Image, now))
	s.MarkSent(Image, now)
	assert.False(t, s.Due(Image, now))
	assert.False(t, s.Due(Image, now.Add(99*time.Millisecond)))
	assert.True(t, s.Due(Image, now.Add(100*time.Millisecond)))
}

func TestScheduler_AnchorsToSendTime(t *testing.T) {
	s := New(DefaultIntervals(), t0)

	// A send delayed by a 350ms stall does not create a burst of catch-up sends.
	stalled := t0.Add(450 * time.Millisecond)
	assert.True(t, s.Due(Image, stalled))
	s.MarkSent(Image, stalled)

	assert.Equal(t, stalled, s.Schedule(Image).LastSentAt)
	assert.False(t, s.Due(Image, stalled.Add(50*time.Millisecond)))
}

func TestScheduler_ChannelsAreIndependent(t *testing.T) {
	s := New(DefaultIntervals(), t0)
	now := t0.Add(time.Second)

	s.MarkSent(Image, now)
	assert.False(t, s.Due(Image, now))
	assert.True(t, s.Due(Detection, now))
	assert.True(t, s.Due(Gesture, now))
}

func TestScheduler_SimulatedCadence(t *testing.T) {
	s := New(DefaultIntervals(), t0)
	sent := map[Channel]int{}

	// 30 fps camera for 3 seconds.
	frame := time.Second / 30
	for i := 1; i <= 90; i++ {
		now := t0.Add(time.Duration(i) * frame)
		for _, ch := range Channels {
			if s.Due(ch, now) {
				s.MarkSent(ch, now)
				sent[ch]++
			}
		}
	}

	// Frame boundaries round each interval up to the next frame.
	assert.InDelta(t, 22, sent[Image], 1)
	assert.InDelta(t, 5, sent[Detection], 1)
	assert.InDelta(t, 9, sent[Gesture], 1)
}

func TestChannel_String(t *testing.T) {
	assert.Equal(t, "image", Image.String())
	assert.Equal(t, "detection", Detection.String())
	assert.Equal(t, "gesture", Gesture.String())
}
