// Package capture provides camera capture and JPEG encoding using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings, matching the detector input size.
const (
	DefaultWidth  = 320
	DefaultHeight = 224
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrEmptyFrame is returned when the device delivers no image data.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame blocks until a frame is available. The caller closes the Mat.
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
	// Size returns the frame width and height.
	Size() (width, height int)
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	deviceID int
	width    int
	height   int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
}

// NewCamera creates a new Camera with the given device ID and frame size.
// Non-positive sizes select DefaultWidth and DefaultHeight.
func NewCamera(deviceID, width, height int) Camera {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &cameraImpl{
		deviceID: deviceID,
		width:    width,
		height:   height,
	}
}

// Open opens the camera for capturing frames at the configured size.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera. Frames that the device
// delivers at a different size are resized to the configured size.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("read frame from camera %d", c.deviceID)
	}

	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	if mat.Cols() != c.width || mat.Rows() != c.height {
		gocv.Resize(mat, &mat, image.Pt(c.width, c.height), 0, 0, gocv.InterpolationLinear)
	}

	return &mat, nil
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// Size returns the configured frame size.
func (c *cameraImpl) Size() (int, int) {
	return c.width, c.height
}
