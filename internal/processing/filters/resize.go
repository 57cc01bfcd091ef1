package filters

import (
	"image"

	"sketch-sprite/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ResizeFilter stretches an image to exactly Width x Height with area
// interpolation. Aspect ratio is not preserved.
type ResizeFilter struct {
	Width  int
	Height int
}

func NewResizeFilter(width, height int) *ResizeFilter {
	return &ResizeFilter{Width: width, Height: height}
}

func (r *ResizeFilter) Name() string {
	return "resize_filter"
}

func (r *ResizeFilter) Apply(input *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(input, "resize"); err != nil {
		return nil, err
	}
	if err := safe.ValidateDimensions(r.Width, r.Height, "resize"); err != nil {
		return nil, err
	}

	if input.Cols() == r.Width && input.Rows() == r.Height {
		return input.Clone()
	}

	dst, err := safe.NewMatWithTag(r.Height, r.Width, input.Type(), "resized")
	if err != nil {
		return nil, err
	}

	gocv.Resize(input.GetMat(), dst.Ptr(), image.Point{X: r.Width, Y: r.Height}, 0, 0, gocv.InterpolationArea)

	return dst, nil
}
