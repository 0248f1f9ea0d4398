package viewer

import (
	"sync"

	"github.com/ayusman/visionlink/internal/detection"
	"github.com/ayusman/visionlink/internal/gesture"
	"github.com/ayusman/visionlink/internal/message"
)

// Response types

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Devices int    `json:"devices"`
	Clients int    `json:"clients"`
	Frames  int    `json:"frames"`
}

type detectionResponse struct {
	Timestamp   int64                 `json:"timestamp"`
	Detections  []detection.Detection `json:"detections"`
	FrameWidth  int                   `json:"frame_width"`
	FrameHeight int                   `json:"frame_height"`
}

// GestureRecord is a received gesture event with the device timestamp.
type GestureRecord struct {
	Timestamp int64 `json:"timestamp"`
	gesture.Event
}

type gesturesResponse struct {
	Gestures []GestureRecord `json:"gestures"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// state is what the viewer has seen from devices.
type state struct {
	mu        sync.RWMutex
	limit     int
	connected int
	detection *message.Detection
	gestures  []GestureRecord
	frames    int
}

func newState(limit int) *state {
	return &state{limit: limit}
}

func (s *state) deviceConnected() {
	s.mu.Lock()
	s.connected++
	s.mu.Unlock()
}

func (s *state) deviceDisconnected() {
	s.mu.Lock()
	s.connected--
	s.mu.Unlock()
}

func (s *state) devices() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *state) recordFrame() {
	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
}

func (s *state) frameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

func (s *state) recordDetection(d message.Detection) {
	s.mu.Lock()
	s.detection = &d
	s.mu.Unlock()
}

func (s *state) latestDetection() (message.Detection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detection == nil {
		return message.Detection{}, false
	}
	return *s.detection, true
}

// recordGesture appends g, dropping the oldest record past the limit.
func (s *state) recordGesture(g GestureRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures = append(s.gestures, g)
	if over := len(s.gestures) - s.limit; over > 0 {
		s.gestures = append(s.gestures[:0], s.gestures[over:]...)
	}
}

// recentGestures returns the kept records, oldest first.
func (s *state) recentGestures() []GestureRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GestureRecord, len(s.gestures))
	copy(out, s.gestures)
	return out
}
