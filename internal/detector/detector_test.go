package detector

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"gocv.io/x/gocv"
)

func rawHand(triples int) []float64 {
	raw := make([]float64, boxCoords, boxCoords+triples*3)
	for i := range raw {
		raw[i] = -1
	}
	for i := 0; i < triples; i++ {
		raw = append(raw, float64(i), float64(i)+0.5, float64(i)/100)
	}
	return raw
}

func TestParseHandPoints(t *testing.T) {
	t.Run("full hand skips box coordinates", func(t *testing.T) {
		points := ParseHandPoints(rawHand(NumLandmarks))
		if len(points) != NumLandmarks {
			t.Fatalf("expected %d points, got %d", NumLandmarks, len(points))
		}
		if points[Wrist].X != 0 || points[Wrist].Y != 0.5 {
			t.Errorf("expected wrist (0, 0.5), got (%f, %f)", points[Wrist].X, points[Wrist].Y)
		}
		if points[PinkyTip].X != 20 || points[PinkyTip].Z != 0.2 {
			t.Errorf("unexpected pinky tip %+v", points[PinkyTip])
		}
	})

	t.Run("extra triples are ignored", func(t *testing.T) {
		points := ParseHandPoints(rawHand(NumLandmarks + 3))
		if len(points) != NumLandmarks {
			t.Errorf("expected %d points, got %d", NumLandmarks, len(points))
		}
	})

	t.Run("short input yields fewer points", func(t *testing.T) {
		raw := rawHand(12)
		raw = append(raw, 1, 2) // incomplete triple
		points := ParseHandPoints(raw)
		if len(points) != 12 {
			t.Errorf("expected 12 points, got %d", len(points))
		}
		h := HandLandmarks{Points: points}
		if h.Complete() {
			t.Error("expected hand with 12 points to be incomplete")
		}
	})

	t.Run("box only yields nothing", func(t *testing.T) {
		if points := ParseHandPoints(rawHand(0)); points != nil {
			t.Errorf("expected nil, got %v", points)
		}
		if points := ParseHandPoints(nil); points != nil {
			t.Errorf("expected nil, got %v", points)
		}
	})
}

func TestHandLandmarks_Complete(t *testing.T) {
	var nilHand *HandLandmarks
	if nilHand.Complete() {
		t.Error("nil hand should not be complete")
	}

	h := ThumbsUpLandmarks()
	if !h.Complete() {
		t.Error("preset hand should be complete")
	}

	h.Points = h.Points[:NumLandmarks-1]
	if h.Complete() {
		t.Error("hand with 20 points should not be complete")
	}
}

func TestMockDetector(t *testing.T) {
	var _ ObjectDetector = (*MockDetector)(nil)
	var _ HandDetector = (*MockDetector)(nil)
	var _ ObjectDetector = (*ServiceDetector)(nil)
	var _ HandDetector = (*ServiceDetector)(nil)

	t.Run("returns configured results", func(t *testing.T) {
		m := NewMockDetector()
		m.SetObjects([]Object{{X: 1, Y: 2, W: 3, H: 4, ClassID: 1, Score: 0.9}})
		m.SetHands([]HandLandmarks{FistLandmarks()})

		objects, err := m.DetectObjects(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(objects) != 1 || objects[0].ClassID != 1 {
			t.Errorf("unexpected objects %+v", objects)
		}

		hands, err := m.DetectHands(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Errorf("expected 1 hand, got %d", len(hands))
		}
		if m.HandCalls() != 1 {
			t.Errorf("expected 1 hand call, got %d", m.HandCalls())
		}
	})

	t.Run("returns configured errors", func(t *testing.T) {
		m := NewMockDetector()
		objErr := errors.New("model failed")
		handErr := errors.New("hand model failed")
		m.SetObjectError(objErr)
		m.SetHandError(handErr)

		if _, err := m.DetectObjects(nil); !errors.Is(err, objErr) {
			t.Errorf("expected %v, got %v", objErr, err)
		}
		if _, err := m.DetectHands(nil); !errors.Is(err, handErr) {
			t.Errorf("expected %v, got %v", handErr, err)
		}
		if m.HandCalls() != 1 {
			t.Errorf("expected failed call to be counted, got %d", m.HandCalls())
		}
	})
}

func TestPoseLandmarks(t *testing.T) {
	t.Run("extended fingers point up", func(t *testing.T) {
		h := OpenPalmLandmarks()
		for _, f := range [][2]int{{IndexTip, IndexPIP}, {MiddleTip, MiddlePIP}, {RingTip, RingPIP}, {PinkyTip, PinkyPIP}} {
			if h.Points[f[0]].Y >= h.Points[f[1]].Y-10 {
				t.Errorf("tip %d not above pip %d", f[0], f[1])
			}
		}
		if h.Points[ThumbTip].X <= h.Points[ThumbIP].X+10 {
			t.Error("right thumb tip should be right of the IP joint")
		}
	})

	t.Run("curled fingers", func(t *testing.T) {
		h := FistLandmarks()
		if h.Points[IndexTip].Y < h.Points[IndexPIP].Y {
			t.Error("curled index tip should be below the pip joint")
		}
		if h.Points[ThumbTip].X > h.Points[ThumbIP].X+10 {
			t.Error("curled thumb should stay near the IP joint")
		}
	})

	t.Run("left hand is mirrored", func(t *testing.T) {
		right := PoseLandmarks([5]bool{true, false, false, false, false}, RightHand)
		left := PoseLandmarks([5]bool{true, false, false, false, false}, LeftHand)
		if left.Handedness != LeftHand {
			t.Errorf("expected handedness %q, got %q", LeftHand, left.Handedness)
		}
		if left.Points[ThumbTip].X != poseMirror-right.Points[ThumbTip].X {
			t.Errorf("expected mirrored thumb tip, got %f", left.Points[ThumbTip].X)
		}
		if left.Points[ThumbTip].X >= left.Points[ThumbIP].X-10 {
			t.Error("left thumb tip should be left of the IP joint")
		}
		if left.Points[Wrist] != right.Points[Wrist] {
			t.Error("wrist sits on the mirror axis")
		}
	})

	t.Run("victory", func(t *testing.T) {
		h := VictoryLandmarks()
		if h.Points[IndexTip].Y >= h.Points[IndexPIP].Y || h.Points[MiddleTip].Y >= h.Points[MiddlePIP].Y {
			t.Error("index and middle should be extended")
		}
		if h.Points[RingTip].Y < h.Points[RingPIP].Y {
			t.Error("ring should be curled")
		}
	})
}

func TestNewServiceDetector_MissingScript(t *testing.T) {
	_, err := NewServiceDetector(DefaultConfig(), filepath.Join(t.TempDir(), "missing.py"))
	if err == nil {
		t.Fatal("expected error for missing script")
	}
}

// fakeService answers one objects request and one hands request, then
// drains stdin until closed.
const fakeService = `#!/bin/sh
printf '%s\n' '{"objects":[{"x":10,"y":20,"w":30,"h":40,"class_id":1,"score":0.88}]}'
printf '%s\n' '{"hands":[{"points":[0,0,0,0,0,0,0,0,1,2,3],"handedness":"Left","score":0.9}]}'
cat >/dev/null
`

func TestServiceDetector_RoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	script := filepath.Join(t.TempDir(), "service.sh")
	if err := os.WriteFile(script, []byte(fakeService), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	d, err := NewServiceDetector(DefaultConfig(), script)
	if err != nil {
		t.Fatalf("NewServiceDetector: %v", err)
	}
	d.interpreter = "/bin/sh"
	defer d.Close()

	frame := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer frame.Close()

	objects, err := d.DetectObjects(&frame)
	if err != nil {
		t.Fatalf("DetectObjects: %v", err)
	}
	if len(objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objects))
	}
	want := Object{X: 10, Y: 20, W: 30, H: 40, ClassID: 1, Score: 0.88}
	if objects[0] != want {
		t.Errorf("expected %+v, got %+v", want, objects[0])
	}

	hands, err := d.DetectHands(&frame)
	if err != nil {
		t.Fatalf("DetectHands: %v", err)
	}
	if len(hands) != 1 {
		t.Fatalf("expected 1 hand, got %d", len(hands))
	}
	if hands[0].Handedness != LeftHand {
		t.Errorf("expected handedness %q, got %q", LeftHand, hands[0].Handedness)
	}
	if len(hands[0].Points) != 1 || hands[0].Points[0] != (Point3D{X: 1, Y: 2, Z: 3}) {
		t.Errorf("unexpected points %+v", hands[0].Points)
	}
	if hands[0].Complete() {
		t.Error("single-point hand should not be complete")
	}
}
