// Package hook runs local executables in response to confirmed gestures.
// A hook is a directory holding a hook.json manifest and an executable that
// reads one Request from stdin and writes one Response to stdout.
package hook

import (
	"encoding/json"
	"slices"

	"github.com/ayusman/visionlink/internal/gesture"
)

// ManifestFile is the manifest name looked up in each hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook and the gestures it subscribes to. An empty
// Gestures list subscribes to every gesture.
type Manifest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Executable  string            `json:"executable"`
	Gestures    []gesture.Gesture `json:"gestures"`
}

// Request is written to the hook's stdin.
type Request struct {
	Gesture    gesture.Gesture `json:"gesture"`
	Confidence float64         `json:"confidence"`
	Action     gesture.Action  `json:"action"`
	Timestamp  int64           `json:"timestamp"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Subscribes reports whether the hook wants events for g.
func (h *Hook) Subscribes(g gesture.Gesture) bool {
	return len(h.Manifest.Gestures) == 0 || slices.Contains(h.Manifest.Gestures, g)
}
