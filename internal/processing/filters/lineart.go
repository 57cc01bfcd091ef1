package filters

import (
	"fmt"

	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// LineArtFilter isolates stroke detail with adaptive mean thresholding and
// blends it back over the image at Weight.
type LineArtFilter struct {
	BlockSize int
	C         float64
	Weight    float64
}

func NewLineArtFilter(blockSize int, c, weight float64) *LineArtFilter {
	return &LineArtFilter{BlockSize: blockSize, C: c, Weight: weight}
}

func (l *LineArtFilter) Name() string {
	return "lineart_filter"
}

func (l *LineArtFilter) Apply(input *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateBGR(input, "line-art enhancement"); err != nil {
		return nil, err
	}
	if l.BlockSize < 3 || l.BlockSize%2 == 0 {
		return nil, fmt.Errorf("line-art block size must be odd and >= 3, got %d", l.BlockSize)
	}
	if l.Weight < 0 || l.Weight > 1 {
		return nil, fmt.Errorf("line-art weight must be in [0,1], got %v", l.Weight)
	}

	gray, err := conversion.ConvertToGrayscale(input)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	strokes, err := safe.NewMatWithTag(gray.Rows(), gray.Cols(), gocv.MatTypeCV8UC1, "strokes")
	if err != nil {
		return nil, err
	}
	defer strokes.Close()

	gocv.AdaptiveThreshold(gray.GetMat(), strokes.Ptr(), 255,
		gocv.AdaptiveThresholdMean, gocv.ThresholdBinary, l.BlockSize, float32(l.C))

	strokesBGR, err := conversion.ToBGR(strokes)
	if err != nil {
		return nil, err
	}
	defer strokesBGR.Close()

	blended, err := safe.NewMatWithTag(input.Rows(), input.Cols(), gocv.MatTypeCV8UC3, "lineart")
	if err != nil {
		return nil, err
	}

	gocv.AddWeighted(input.GetMat(), 1-l.Weight, strokesBGR.GetMat(), l.Weight, 0, blended.Ptr())

	return blended, nil
}
