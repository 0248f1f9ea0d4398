package e2e

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"gocv.io/x/gocv"

	"github.com/ayusman/visionlink/internal/app"
	"github.com/ayusman/visionlink/internal/capture"
	"github.com/ayusman/visionlink/internal/config"
	"github.com/ayusman/visionlink/internal/detector"
	"github.com/ayusman/visionlink/internal/gesture"
	"github.com/ayusman/visionlink/internal/message"
	"github.com/ayusman/visionlink/internal/schedule"
	"github.com/ayusman/visionlink/internal/transport"
	"github.com/ayusman/visionlink/internal/viewer"
)

func TestE2E_DeviceToBrowser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	logger, _ := test.NewNullLogger()

	srv := viewer.New(viewer.Config{}, logger)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	browser, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/client", nil)
	if err != nil {
		t.Fatalf("dial browser: %v", err)
	}
	defer browser.Close()

	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(ts.URL, "http://"))
	if err != nil {
		t.Fatalf("split %s: %v", ts.URL, err)
	}
	port, _ := strconv.Atoi(portStr)

	linkCfg := transport.DefaultConfig()
	linkCfg.Host = host
	linkCfg.Port = port
	linkCfg.Path = config.DevicePath
	link := transport.New(linkCfg, logger)

	frame := gocv.NewMatWithSize(capture.DefaultHeight, capture.DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	if err := cam.Open(); err != nil {
		t.Fatalf("open camera: %v", err)
	}

	det := detector.NewMockDetector()
	det.SetObjects([]detector.Object{{X: 10, Y: 20, W: 30, H: 40, ClassID: 1, Score: 0.9}})
	det.SetHands([]detector.HandLandmarks{detector.VictoryLandmarks()})

	cfg := app.DefaultConfig()
	cfg.Intervals = schedule.Intervals{
		Image:     5 * time.Millisecond,
		Detection: 10 * time.Millisecond,
		Gesture:   5 * time.Millisecond,
	}
	session := app.New(cfg, app.Collaborators{
		Link:    link,
		Camera:  cam,
		Objects: det,
		Hands:   det,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	t.Run("BrowserReceivesMessages", func(t *testing.T) {
		seen := map[string]bool{}
		deadline := time.Now().Add(10 * time.Second)
		for !(seen[message.TypeDetection] && seen[message.TypeGesture]) {
			browser.SetReadDeadline(deadline)
			_, data, err := browser.ReadMessage()
			if err != nil {
				t.Fatalf("read browser message: %v (seen %v)", err, seen)
			}

			var env message.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("browser message %q: %v", data, err)
			}
			switch env.Type {
			case message.TypeGesture:
				g, err := env.DecodeGesture()
				if err != nil {
					t.Fatalf("decode gesture: %v", err)
				}
				if g.Gesture != gesture.Victory || g.Action.Device != "fan" {
					t.Errorf("unexpected gesture %+v", g)
				}
			case message.TypeDetection:
				d, err := env.DecodeDetection()
				if err != nil {
					t.Fatalf("decode detection: %v", err)
				}
				if len(d.Detections) != 1 || d.Detections[0].ClassName != "fire" {
					t.Errorf("unexpected detections %+v", d.Detections)
				}
			}
			seen[env.Type] = true
		}
	})

	t.Run("APIReflectsDevice", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/api/detections")
		if err != nil {
			t.Fatalf("get detections: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var batch struct {
			FrameWidth  int `json:"frame_width"`
			FrameHeight int `json:"frame_height"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if batch.FrameWidth != capture.DefaultWidth || batch.FrameHeight != capture.DefaultHeight {
			t.Errorf("frame size = %dx%d", batch.FrameWidth, batch.FrameHeight)
		}

		gresp, err := ts.Client().Get(ts.URL + "/api/gestures")
		if err != nil {
			t.Fatalf("get gestures: %v", err)
		}
		defer gresp.Body.Close()

		var gestures struct {
			Gestures []viewer.GestureRecord `json:"gestures"`
		}
		if err := json.NewDecoder(gresp.Body).Decode(&gestures); err != nil {
			t.Fatalf("decode: %v", err)
		}
		// A held gesture is confirmed once.
		if len(gestures.Gestures) != 1 || gestures.Gestures[0].Gesture != gesture.Victory {
			t.Errorf("gestures = %+v", gestures.Gestures)
		}
	})

	t.Run("Shutdown", func(t *testing.T) {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("session did not stop")
		}
		if link.State() != transport.Disconnected {
			t.Errorf("link state = %s after shutdown", link.State())
		}
		if session.Stats().Sent[schedule.Image] == 0 {
			t.Error("expected preview frames to be sent")
		}
	})
}
