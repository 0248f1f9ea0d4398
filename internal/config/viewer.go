package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/ayusman/visionlink/internal/viewer"
)

// ViewerConfig holds the viewer settings.
type ViewerConfig struct {
	Listen         string
	StaticDir      string
	History        int
	Heartbeat      time.Duration
	MaxConnections int
	Log            LogConfig
}

// DefaultViewer returns the reference viewer settings.
func DefaultViewer() ViewerConfig {
	return ViewerConfig{
		Listen:         ":8080",
		History:        viewer.DefaultHistory,
		Heartbeat:      viewer.DefaultHeartbeat,
		MaxConnections: viewer.DefaultMaxConnections,
		Log:            LogConfig{Level: "info"},
	}
}

// LoadViewer parses args over the viewer defaults, applies environment
// overrides and validates the result.
func LoadViewer(args []string, lookup LookupFunc) (*ViewerConfig, error) {
	cfg := DefaultViewer()
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)

	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "Listen address")
	fs.StringVar(&cfg.StaticDir, "static", "", "Directory of browser assets to serve")
	fs.IntVar(&cfg.History, "history", cfg.History, "Gesture events kept for /api/gestures")
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "WebSocket ping interval")
	fs.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "Open WebSocket connections allowed")
	cfg.Log.register(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	vars := []envVar{
		{"LISTEN", stringVar(&cfg.Listen)},
		{"STATIC_DIR", stringVar(&cfg.StaticDir)},
		{"HISTORY", intVar(&cfg.History)},
		{"HEARTBEAT", durationVar(&cfg.Heartbeat)},
		{"MAX_CONNECTIONS", intVar(&cfg.MaxConnections)},
	}
	if err := applyEnv(lookup, append(vars, cfg.Log.overrides()...)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every impossible value.
func (c *ViewerConfig) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, fmt.Errorf("%w: listen address is empty", ErrInvalid))
	}
	if c.History < 1 {
		errs = append(errs, fmt.Errorf("%w: history %d below 1", ErrInvalid, c.History))
	}
	if c.Heartbeat <= 0 {
		errs = append(errs, fmt.Errorf("%w: heartbeat %s must be positive", ErrInvalid, c.Heartbeat))
	}
	if c.MaxConnections < 1 {
		errs = append(errs, fmt.Errorf("%w: max connections %d below 1", ErrInvalid, c.MaxConnections))
	}
	if err := c.Log.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Server returns the viewer server settings.
func (c *ViewerConfig) Server() viewer.Config {
	return viewer.Config{
		History:        c.History,
		StaticDir:      c.StaticDir,
		Heartbeat:      c.Heartbeat,
		MaxConnections: c.MaxConnections,
	}
}
