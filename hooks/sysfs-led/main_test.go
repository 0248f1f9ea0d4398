package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeLED(t *testing.T, max string) *led {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "led0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if max != "" {
		if err := os.WriteFile(filepath.Join(dir, "max_brightness"), []byte(max), 0o644); err != nil {
			t.Fatalf("write max_brightness: %v", err)
		}
	}
	return &led{dir: dir}
}

func brightness(t *testing.T, l *led) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(l.dir, "brightness"))
	if err != nil {
		t.Fatalf("read brightness: %v", err)
	}
	return string(data)
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		max         string
		wantSuccess bool
		wantValue   string
		wantError   string
	}{
		{
			name:        "point up turns the led on",
			input:       `{"gesture":"point_up","action":{"device":"led","action":{"power":"on"}}}`,
			max:         "255\n",
			wantSuccess: true,
			wantValue:   "255",
		},
		{
			name:        "open palm turns everything off",
			input:       `{"gesture":"open_palm","action":{"device":"all","action":{"power":"off"}}}`,
			max:         "255\n",
			wantSuccess: true,
			wantValue:   "0",
		},
		{
			name:        "missing max brightness means 1",
			input:       `{"gesture":"point_up","action":{"device":"led","action":{"power":"on"}}}`,
			wantSuccess: true,
			wantValue:   "1",
		},
		{
			name:      "unsupported device",
			input:     `{"gesture":"victory","action":{"device":"fan","action":{"power":"on"}}}`,
			wantError: "unsupported device",
		},
		{
			name:      "unsupported power",
			input:     `{"gesture":"point_up","action":{"device":"led","action":{"power":"dim"}}}`,
			wantError: "unsupported power",
		},
		{
			name:      "invalid json",
			input:     `{`,
			wantError: "failed to decode request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := fakeLED(t, tt.max)

			resp := handle(strings.NewReader(tt.input), l)

			if resp.Success != tt.wantSuccess {
				t.Fatalf("expected success=%v, got %+v", tt.wantSuccess, resp)
			}
			if tt.wantError != "" && !strings.Contains(resp.Error, tt.wantError) {
				t.Errorf("expected error containing %q, got %q", tt.wantError, resp.Error)
			}
			if tt.wantValue != "" {
				if got := brightness(t, l); got != tt.wantValue {
					t.Errorf("brightness = %q, want %q", got, tt.wantValue)
				}
			}
		})
	}
}

func TestLedFromEnv(t *testing.T) {
	t.Setenv("SYSFS_LED_ROOT", "/tmp/leds")
	t.Setenv("SYSFS_LED_NAME", "status")

	if got := ledFromEnv().dir; got != filepath.Join("/tmp/leds", "status") {
		t.Errorf("dir = %q", got)
	}
}
