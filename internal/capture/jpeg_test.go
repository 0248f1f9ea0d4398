package capture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestEncodeJPEG(t *testing.T) {
	frame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(40, 40, 200, 180), color.RGBA{R: 255, A: 255}, -1)

	data, err := EncodeJPEG(&frame, DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}

	// JPEG start and end of image markers.
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) || !bytes.HasSuffix(data, []byte{0xFF, 0xD9}) {
		t.Fatalf("output is not a JPEG image (%d bytes)", len(data))
	}

	decoded, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		t.Fatalf("IMDecode() error = %v", err)
	}
	defer decoded.Close()
	if decoded.Cols() != DefaultWidth || decoded.Rows() != DefaultHeight {
		t.Errorf("decoded size %dx%d, want %dx%d", decoded.Cols(), decoded.Rows(), DefaultWidth, DefaultHeight)
	}
}

func TestEncodeJPEG_QualityAffectsSize(t *testing.T) {
	frame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()
	gocv.RandU(&frame, gocv.NewScalar(0, 0, 0, 0), gocv.NewScalar(255, 255, 255, 0))

	low, err := EncodeJPEG(&frame, 10)
	if err != nil {
		t.Fatalf("EncodeJPEG(10) error = %v", err)
	}
	high, err := EncodeJPEG(&frame, 95)
	if err != nil {
		t.Fatalf("EncodeJPEG(95) error = %v", err)
	}

	if len(low) >= len(high) {
		t.Errorf("quality 10 produced %d bytes, quality 95 produced %d", len(low), len(high))
	}
}

func TestEncodeJPEG_Errors(t *testing.T) {
	frame := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer frame.Close()
	empty := gocv.NewMat()
	defer empty.Close()

	tests := []struct {
		name    string
		frame   *gocv.Mat
		quality int
		want    error
	}{
		{"quality zero", &frame, 0, ErrInvalidQuality},
		{"quality too high", &frame, 101, ErrInvalidQuality},
		{"nil frame", nil, 70, ErrEmptyFrame},
		{"empty frame", &empty, 70, ErrEmptyFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeJPEG(tt.frame, tt.quality)
			if !errors.Is(err, tt.want) {
				t.Errorf("EncodeJPEG() error = %v, want %v", err, tt.want)
			}
		})
	}
}
