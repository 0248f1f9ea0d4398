// Package schedule gates the outbound channels to fixed wall-clock intervals,
// independent of the camera frame rate.
package schedule

import "time"

// Channel is one independently paced category of outbound message.
type Channel int

// Outbound channels, in evaluation order.
const (
	Image Channel = iota
	Detection
	Gesture
	numChannels
)

// Channels lists every channel in evaluation order.
var Channels = [...]Channel{Image, Detection, Gesture}

func (c Channel) String() string {
	switch c {
	case Image:
		return "image"
	case Detection:
		return "detection"
	case Gesture:
		return "gesture"
	default:
		return "unknown"
	}
}

// Intervals holds the send interval of each channel.
type Intervals struct {
	Image     time.Duration
	Detection time.Duration
	Gesture   time.Duration
}

// DefaultIntervals returns the reference cadence: 10 images/s, 2 detection
// summaries/s, and a gesture tick every 300ms.
func DefaultIntervals() Intervals {
	return Intervals{
		Image:     100 * time.Millisecond,
		Detection: 500 * time.Millisecond,
		Gesture:   300 * time.Millisecond,
	}
}

// ChannelSchedule is the pacing state of one channel.
type ChannelSchedule struct {
	Interval   time.Duration
	LastSentAt time.Time
}

// Scheduler holds one ChannelSchedule per channel.
type Scheduler struct {
	channels [numChannels]ChannelSchedule
}

// New creates a Scheduler whose channels all count from start, so the first
// send of each channel happens one interval after start.
func New(iv Intervals, start time.Time) *Scheduler {
	s := &Scheduler{}
	s.channels[Image] = ChannelSchedule{Interval: iv.Image, LastSentAt: start}
	s.channels[Detection] = ChannelSchedule{Interval: iv.Detection, LastSentAt: start}
	s.channels[Gesture] = ChannelSchedule{Interval: iv.Gesture, LastSentAt: start}
	return s
}

// Due reports whether at least one interval has elapsed since the channel
// was last marked sent.
func (s *Scheduler) Due(ch Channel, now time.Time) bool {
	c := s.channels[ch]
	return now.Sub(c.LastSentAt) >= c.Interval
}

// MarkSent anchors the channel to now. Anchoring to the actual send time
// rather than adding the interval keeps I/O stalls from building a backlog.
func (s *Scheduler) MarkSent(ch Channel, now time.Time) {
	s.channels[ch].LastSentAt = now
}

// Schedule returns a copy of the channel's state.
func (s *Scheduler) Schedule(ch Channel) ChannelSchedule {
	return s.channels[ch]
}
