package filters

import (
	"fmt"
	"image"

	"sketch-sprite/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// GaussianBlur smooths src with a square kernel; sigma is derived from the
// kernel size.
func GaussianBlur(src *safe.Mat, kernelSize int) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "gaussian blur"); err != nil {
		return nil, err
	}
	if kernelSize < 1 || kernelSize%2 == 0 {
		return nil, fmt.Errorf("gaussian kernel must be odd and positive, got %d", kernelSize)
	}

	dst, err := safe.NewMatWithTag(src.Rows(), src.Cols(), src.Type(), "blurred")
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	gocv.GaussianBlur(src.GetMat(), dst.Ptr(), image.Point{X: kernelSize, Y: kernelSize}, 0, 0, gocv.BorderDefault)

	return dst, nil
}

// Canny runs edge detection on a single channel image.
func Canny(gray *safe.Mat, low, high float64) (*safe.Mat, error) {
	if err := safe.ValidateMask(gray, "canny"); err != nil {
		return nil, err
	}

	edges, err := safe.NewMatWithTag(gray.Rows(), gray.Cols(), gocv.MatTypeCV8UC1, "edges")
	if err != nil {
		return nil, err
	}

	gocv.Canny(gray.GetMat(), edges.Ptr(), float32(low), float32(high))

	return edges, nil
}
