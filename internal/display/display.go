// Package display renders annotated frames on the local screen.
package display

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/visionlink/internal/detection"
	"github.com/ayusman/visionlink/internal/gesture"
)

// Renderer shows a frame on a local output.
type Renderer interface {
	Render(frame *gocv.Mat) error
	Close() error
}

// Window renders frames into a HighGUI window.
type Window struct {
	mu     sync.Mutex
	title  string
	window *gocv.Window
}

// NewWindow returns a Window; the native window is created on first render.
func NewWindow(title string) *Window {
	return &Window{title: title}
}

// Render shows frame and pumps the window event loop.
func (w *Window) Render(frame *gocv.Mat) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		w.window = gocv.NewWindow(w.title)
	}
	if frame == nil || frame.Empty() {
		return fmt.Errorf("show frame: empty")
	}
	w.window.IMShow(*frame)
	w.window.WaitKey(1)
	return nil
}

// Close destroys the native window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}

// Discard is a Renderer for headless operation.
type Discard struct{}

func (Discard) Render(*gocv.Mat) error { return nil }
func (Discard) Close() error           { return nil }

var (
	primaryColor   = color.RGBA{B: 255, A: 255}
	secondaryColor = color.RGBA{R: 255, A: 255}
	gestureColor   = color.RGBA{G: 255, A: 255}
	textColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	fontFace      = gocv.FontHersheySimplex
	fontScale     = 0.5
	lineThickness = 2
)

// Overlay is what Annotate draws on a frame.
type Overlay struct {
	Detections []detection.Detection
	// Summary is the per-class count line, e.g. "human=1 fire=0".
	Summary string
	Gesture gesture.Gesture
}

// Annotate draws detection boxes with "label: score" captions, the count
// summary and the current gesture onto frame. Class 0 boxes are blue, all
// others red.
func Annotate(frame *gocv.Mat, o Overlay) {
	for _, d := range o.Detections {
		c := secondaryColor
		if d.ClassID == 0 {
			c = primaryColor
		}
		rect := image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
		gocv.Rectangle(frame, rect, c, lineThickness)

		caption := fmt.Sprintf("%s: %.2f", d.ClassName, d.Score)
		gocv.PutText(frame, caption, image.Pt(d.X, d.Y-5), fontFace, fontScale, c, 1)
	}

	if o.Gesture != "" && o.Gesture != gesture.Unknown {
		gocv.PutText(frame, gesture.Label(o.Gesture), image.Pt(10, 20), fontFace, fontScale*1.5, gestureColor, lineThickness)
	}

	if o.Summary != "" {
		gocv.PutText(frame, o.Summary, image.Pt(10, frame.Rows()-10), fontFace, fontScale, textColor, 1)
	}
}
