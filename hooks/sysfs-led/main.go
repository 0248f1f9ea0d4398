// Command sysfs-led is a gesture hook that switches a Linux LED class
// device. It reads one hook request from stdin and writes one response to
// stdout.
//
// Environment:
//
//	SYSFS_LED_NAME  LED under /sys/class/leds (default "led0")
//	SYSFS_LED_ROOT  sysfs LED class directory (default "/sys/class/leds")
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Request is the subset of the hook request this hook reads.
type Request struct {
	Gesture string `json:"gesture"`
	Action  struct {
		Device  string         `json:"device"`
		Command map[string]any `json:"action"`
	} `json:"action"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// deviceHandler applies a command for one device.
type deviceHandler func(led *led, command map[string]any) error

// deviceHandlers maps action devices to their handlers.
var deviceHandlers = map[string]deviceHandler{
	"led": switchLED,
	"all": switchLED,
}

type led struct {
	dir string
}

func (l *led) set(on bool) error {
	value := 0
	if on {
		peak, err := l.maxBrightness()
		if err != nil {
			return err
		}
		value = peak
	}
	path := filepath.Join(l.dir, "brightness")
	if err := os.WriteFile(path, []byte(strconv.Itoa(value)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (l *led) maxBrightness() (int, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, "max_brightness"))
	if os.IsNotExist(err) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(string(trimNewline(data)))
	if err != nil {
		return 0, fmt.Errorf("parse max_brightness: %w", err)
	}
	return n, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// switchLED turns the LED on for power "on" and off for power "off".
func switchLED(l *led, command map[string]any) error {
	switch command["power"] {
	case "on":
		return l.set(true)
	case "off":
		return l.set(false)
	default:
		return fmt.Errorf("unsupported power value %v", command["power"])
	}
}

func main() {
	resp := handle(os.Stdin, ledFromEnv())
	json.NewEncoder(os.Stdout).Encode(resp)
}

func ledFromEnv() *led {
	root := os.Getenv("SYSFS_LED_ROOT")
	if root == "" {
		root = "/sys/class/leds"
	}
	name := os.Getenv("SYSFS_LED_NAME")
	if name == "" {
		name = "led0"
	}
	return &led{dir: filepath.Join(root, name)}
}

func handle(r io.Reader, l *led) Response {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return Response{Error: fmt.Sprintf("failed to decode request: %v", err)}
	}

	handler, ok := deviceHandlers[req.Action.Device]
	if !ok {
		return Response{Error: fmt.Sprintf("unsupported device: %s", req.Action.Device)}
	}

	if err := handler(l, req.Action.Command); err != nil {
		return Response{Error: fmt.Sprintf("gesture %s failed: %v", req.Gesture, err)}
	}
	return Response{Success: true}
}
