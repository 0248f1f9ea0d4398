// Package config loads device and viewer settings from flags and
// environment variables. Environment values override flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/visionlink/internal/app"
	"github.com/ayusman/visionlink/internal/capture"
	"github.com/ayusman/visionlink/internal/detection"
	"github.com/ayusman/visionlink/internal/detector"
	"github.com/ayusman/visionlink/internal/gesture"
	"github.com/ayusman/visionlink/internal/schedule"
	"github.com/ayusman/visionlink/internal/transport"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "VISIONLINK_"

// DevicePath is the viewer route devices connect to.
const DevicePath = "/ws/device"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// LookupFunc returns the value of an environment variable. os.LookupEnv
// satisfies it.
type LookupFunc func(key string) (string, bool)

// Config holds the device settings. It is fixed at startup.
type Config struct {
	Server    transport.Config
	Intervals schedule.Intervals
	Camera    CameraConfig
	Detector  DetectorConfig
	Gesture   GestureConfig
	Labels    []string
	HooksDir  string
	Window    bool
	Log       LogConfig
}

// CameraConfig holds capture settings.
type CameraConfig struct {
	Device      int
	Width       int
	Height      int
	JPEGQuality int
}

// DetectorConfig holds inference settings.
type DetectorConfig struct {
	// Script is the inference service script; empty searches the usual places.
	Script           string
	ObjectConfidence float64
	// HandThreshold is the minimum hand detection score.
	HandThreshold float64
}

// GestureConfig holds gesture acceptance settings.
type GestureConfig struct {
	Threshold      float64
	DebounceLength int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
	JSON  bool
}

// Default returns the reference device settings.
func Default() Config {
	det := detector.DefaultConfig()
	srv := transport.DefaultConfig()
	srv.Path = DevicePath
	return Config{
		Server:    srv,
		Intervals: schedule.DefaultIntervals(),
		Camera: CameraConfig{
			Width:       capture.DefaultWidth,
			Height:      capture.DefaultHeight,
			JPEGQuality: capture.DefaultJPEGQuality,
		},
		Detector: DetectorConfig{
			ObjectConfidence: det.ObjectConfidence,
			HandThreshold:    det.HandConfidence,
		},
		Gesture: GestureConfig{
			Threshold:      gesture.DefaultThreshold,
			DebounceLength: gesture.DefaultLength,
		},
		Labels: append([]string(nil), detection.DefaultLabels...),
		Log:    LogConfig{Level: "info"},
	}
}

// Load parses args over the defaults, applies environment overrides and
// validates the result.
func Load(args []string, lookup LookupFunc) (*Config, error) {
	cfg := Default()
	fs := flag.NewFlagSet("visionlink", flag.ContinueOnError)

	fs.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Viewer host")
	fs.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "Viewer port")
	fs.StringVar(&cfg.Server.Path, "path", cfg.Server.Path, "Viewer WebSocket path")
	fs.DurationVar(&cfg.Server.DialTimeout, "dial-timeout", cfg.Server.DialTimeout, "Connect and handshake timeout")
	fs.DurationVar(&cfg.Server.WriteTimeout, "write-timeout", cfg.Server.WriteTimeout, "Frame write timeout (0 disables)")
	fs.DurationVar(&cfg.Server.InitialBackoff, "backoff-initial", cfg.Server.InitialBackoff, "First reconnect delay")
	fs.DurationVar(&cfg.Server.MaxBackoff, "backoff-max", cfg.Server.MaxBackoff, "Reconnect delay cap")

	fs.DurationVar(&cfg.Intervals.Image, "image-interval", cfg.Intervals.Image, "Preview frame interval")
	fs.DurationVar(&cfg.Intervals.Detection, "detection-interval", cfg.Intervals.Detection, "Detection message interval")
	fs.DurationVar(&cfg.Intervals.Gesture, "gesture-interval", cfg.Intervals.Gesture, "Gesture tick interval")

	fs.IntVar(&cfg.Camera.Device, "camera", cfg.Camera.Device, "Camera device ID")
	fs.IntVar(&cfg.Camera.Width, "width", cfg.Camera.Width, "Frame width")
	fs.IntVar(&cfg.Camera.Height, "height", cfg.Camera.Height, "Frame height")
	fs.IntVar(&cfg.Camera.JPEGQuality, "jpeg-quality", cfg.Camera.JPEGQuality, "Preview JPEG quality (1-100)")

	fs.StringVar(&cfg.Detector.Script, "service-script", "", "Inference service script")
	fs.Float64Var(&cfg.Detector.ObjectConfidence, "object-conf", cfg.Detector.ObjectConfidence, "Minimum object score")
	fs.Float64Var(&cfg.Detector.HandThreshold, "hand-threshold", cfg.Detector.HandThreshold, "Minimum hand detection score")
	fs.Float64Var(&cfg.Gesture.Threshold, "gesture-threshold", cfg.Gesture.Threshold, "Minimum gesture confidence")
	fs.IntVar(&cfg.Gesture.DebounceLength, "debounce", cfg.Gesture.DebounceLength, "Consecutive ticks needed to confirm a gesture")
	labels := fs.String("labels", strings.Join(cfg.Labels, ","), "Comma-separated class labels")

	fs.StringVar(&cfg.HooksDir, "hooks-dir", "", "Gesture hooks directory (empty disables hooks)")
	fs.BoolVar(&cfg.Window, "window", false, "Show the annotated preview in a window")
	cfg.Log.register(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Labels = splitList(*labels)

	if err := applyEnv(lookup, cfg.overrides()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) overrides() []envVar {
	vars := []envVar{
		{"HOST", stringVar(&c.Server.Host)},
		{"PORT", intVar(&c.Server.Port)},
		{"PATH", stringVar(&c.Server.Path)},
		{"DIAL_TIMEOUT", durationVar(&c.Server.DialTimeout)},
		{"WRITE_TIMEOUT", durationVar(&c.Server.WriteTimeout)},
		{"BACKOFF_INITIAL", durationVar(&c.Server.InitialBackoff)},
		{"BACKOFF_MAX", durationVar(&c.Server.MaxBackoff)},
		{"IMAGE_INTERVAL", durationVar(&c.Intervals.Image)},
		{"DETECTION_INTERVAL", durationVar(&c.Intervals.Detection)},
		{"GESTURE_INTERVAL", durationVar(&c.Intervals.Gesture)},
		{"CAMERA", intVar(&c.Camera.Device)},
		{"WIDTH", intVar(&c.Camera.Width)},
		{"HEIGHT", intVar(&c.Camera.Height)},
		{"JPEG_QUALITY", intVar(&c.Camera.JPEGQuality)},
		{"SERVICE_SCRIPT", stringVar(&c.Detector.Script)},
		{"OBJECT_CONF", floatVar(&c.Detector.ObjectConfidence)},
		{"HAND_THRESHOLD", floatVar(&c.Detector.HandThreshold)},
		{"GESTURE_THRESHOLD", floatVar(&c.Gesture.Threshold)},
		{"DEBOUNCE", intVar(&c.Gesture.DebounceLength)},
		{"LABELS", listVar(&c.Labels)},
		{"HOOKS_DIR", stringVar(&c.HooksDir)},
		{"WINDOW", boolVar(&c.Window)},
	}
	return append(vars, c.Log.overrides()...)
}

// Validate reports every impossible value.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Server.Host != "", "host is empty")
	check(c.Server.Port > 0 && c.Server.Port <= 65535, "port %d out of range", c.Server.Port)
	check(strings.HasPrefix(c.Server.Path, "/"), "path %q must start with /", c.Server.Path)
	check(c.Server.DialTimeout > 0, "dial timeout must be positive")
	check(c.Server.WriteTimeout >= 0, "write timeout must not be negative")
	check(c.Server.InitialBackoff > 0, "initial backoff must be positive")
	check(c.Server.MaxBackoff >= c.Server.InitialBackoff, "max backoff %s below initial %s", c.Server.MaxBackoff, c.Server.InitialBackoff)

	for _, iv := range []struct {
		name string
		d    time.Duration
	}{
		{"image", c.Intervals.Image},
		{"detection", c.Intervals.Detection},
		{"gesture", c.Intervals.Gesture},
	} {
		check(iv.d > 0, "%s interval must be positive", iv.name)
	}

	check(c.Camera.Device >= 0, "camera device %d is negative", c.Camera.Device)
	check(c.Camera.Width > 0 && c.Camera.Height > 0, "frame size %dx%d", c.Camera.Width, c.Camera.Height)
	check(c.Camera.JPEGQuality >= 1 && c.Camera.JPEGQuality <= 100, "jpeg quality %d out of range", c.Camera.JPEGQuality)

	check(unit(c.Detector.ObjectConfidence), "object confidence %v out of range", c.Detector.ObjectConfidence)
	check(unit(c.Detector.HandThreshold), "hand threshold %v out of range", c.Detector.HandThreshold)
	check(unit(c.Gesture.Threshold), "gesture threshold %v out of range", c.Gesture.Threshold)
	check(c.Gesture.DebounceLength >= 1, "debounce length %d below 1", c.Gesture.DebounceLength)

	check(len(c.Labels) > 0, "no class labels")
	for i, l := range c.Labels {
		check(l != "", "label %d is empty", i)
	}

	if err := c.Log.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Session returns the session settings.
func (c *Config) Session() app.Config {
	return app.Config{
		Intervals:        c.Intervals,
		JPEGQuality:      c.Camera.JPEGQuality,
		GestureThreshold: c.Gesture.Threshold,
		DebounceLength:   c.Gesture.DebounceLength,
		Labels:           c.Labels,
	}
}

// Inference returns the thresholds passed to the inference service.
func (c *Config) Inference() detector.Config {
	d := detector.DefaultConfig()
	d.ObjectConfidence = c.Detector.ObjectConfidence
	d.HandConfidence = c.Detector.HandThreshold
	return d
}

// Apply configures logger from the settings.
func (l LogConfig) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	logger.SetLevel(level)
	if l.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func (l *LogConfig) register(fs *flag.FlagSet) {
	fs.StringVar(&l.Level, "log-level", l.Level, "Log level (debug, info, warn, error)")
	fs.BoolVar(&l.JSON, "log-json", l.JSON, "Log as JSON")
}

func (l *LogConfig) overrides() []envVar {
	return []envVar{
		{"LOG_LEVEL", stringVar(&l.Level)},
		{"LOG_JSON", boolVar(&l.JSON)},
	}
}

func (l LogConfig) validate() error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func unit(v float64) bool {
	return v > 0 && v <= 1
}
