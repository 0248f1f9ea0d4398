package gesture

// Action is the device command attached to a gesture event.
type Action struct {
	Device  string         `json:"device"`
	Command map[string]any `json:"action"`
}

// ActionFor returns the device command bound to g. Gestures without a
// binding map to device "unknown" with an empty command.
func ActionFor(g Gesture) Action {
	switch g {
	case PointUp:
		return Action{Device: "led", Command: map[string]any{"power": "on", "reason": "gesture turns the light on"}}
	case Victory:
		return Action{Device: "fan", Command: map[string]any{"power": "on", "speed": 3, "reason": "gesture turns the fan on"}}
	case OpenPalm:
		return Action{Device: "all", Command: map[string]any{"power": "off", "reason": "gesture turns everything off"}}
	case ThumbsUp:
		return Action{Device: "curtain", Command: map[string]any{"power": "on", "reason": "gesture opens the curtain"}}
	case Fist:
		return Action{Device: "security", Command: map[string]any{"mode": "armed", "reason": "gesture arms security mode"}}
	case Rock:
		return Action{Device: "scene", Command: map[string]any{"scene": "party", "reason": "gesture starts party mode"}}
	}
	return Action{Device: "unknown", Command: map[string]any{}}
}

// Label returns a short caption for g, used for on-screen overlays.
func Label(g Gesture) string {
	switch g {
	case Fist:
		return "fist: security armed"
	case OpenPalm:
		return "open palm: all off"
	case PointUp:
		return "point up: light on"
	case Victory:
		return "victory: fan on"
	case ThumbsUp:
		return "thumbs up: curtain open"
	case Rock:
		return "rock: party mode"
	}
	return string(g)
}
