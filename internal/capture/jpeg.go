package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is the preview image quality sent on the image channel.
const DefaultJPEGQuality = 70

// ErrInvalidQuality is returned for JPEG qualities outside 1-100.
var ErrInvalidQuality = errors.New("jpeg quality must be between 1 and 100")

// EncodeJPEG encodes frame as a JPEG image with the given quality.
func EncodeJPEG(frame *gocv.Mat, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		return nil, ErrInvalidQuality
	}
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// Copy out before the native buffer is released.
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
