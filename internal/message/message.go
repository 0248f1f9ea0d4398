// Package message defines the JSON envelopes exchanged with the viewer.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/visionlink/internal/detection"
	"github.com/ayusman/visionlink/internal/gesture"
)

// Message types.
const (
	TypeDetection = "ai_detection"
	TypeGesture   = "gesture_control"
)

var (
	// ErrUnknownType is returned when decoding an envelope of an unsupported type.
	ErrUnknownType = errors.New("unknown message type")

	// ErrInvalid is returned when an envelope's data does not match its type.
	ErrInvalid = errors.New("invalid message")
)

// Envelope is the outer JSON object of every text frame.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Detection is the data of an ai_detection message.
type Detection = detection.Batch

// Gesture is the data of a gesture_control message.
type Gesture = gesture.Event

func encode(typ string, ts int64, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Timestamp: ts, Data: raw})
}

// EncodeDetection encodes an ai_detection message stamped with the batch
// timestamp.
func EncodeDetection(b detection.Batch) ([]byte, error) {
	if b.Detections == nil {
		b.Detections = []detection.Detection{}
	}
	return encode(TypeDetection, b.TimestampMs, b)
}

// EncodeGesture encodes a gesture_control message stamped with now.
func EncodeGesture(e gesture.Event, now time.Time) ([]byte, error) {
	return encode(TypeGesture, now.UnixMilli(), e)
}

// Decode parses an envelope and checks its type.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch env.Type {
	case TypeDetection, TypeGesture:
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return env, nil
}

// DecodeDetection returns the data of an ai_detection envelope. The
// detections array is required.
func (e Envelope) DecodeDetection() (Detection, error) {
	if e.Type != TypeDetection {
		return Detection{}, fmt.Errorf("%w: want %s, got %s", ErrInvalid, TypeDetection, e.Type)
	}
	var probe struct {
		Detections json.RawMessage `json:"detections"`
	}
	if err := json.Unmarshal(e.Data, &probe); err != nil {
		return Detection{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(probe.Detections) == 0 || probe.Detections[0] != '[' {
		return Detection{}, fmt.Errorf("%w: detections must be an array", ErrInvalid)
	}

	var d Detection
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return Detection{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	d.TimestampMs = e.Timestamp
	return d, nil
}

// DecodeGesture returns the data of a gesture_control envelope.
func (e Envelope) DecodeGesture() (Gesture, error) {
	if e.Type != TypeGesture {
		return Gesture{}, fmt.Errorf("%w: want %s, got %s", ErrInvalid, TypeGesture, e.Type)
	}
	var g Gesture
	if err := json.Unmarshal(e.Data, &g); err != nil {
		return Gesture{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if g.Gesture == "" {
		return Gesture{}, fmt.Errorf("%w: gesture is empty", ErrInvalid)
	}
	return g, nil
}
