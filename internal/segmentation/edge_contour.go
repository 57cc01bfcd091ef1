package segmentation

import (
	"fmt"
	"image/color"

	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/processing/filters"

	"gocv.io/x/gocv"
)

// EdgeContour takes the largest external contour of the Canny edge map as
// the character silhouette.
type EdgeContour struct {
	params ContourParams
}

func NewEdgeContour(params ContourParams) *EdgeContour {
	return &EdgeContour{params: params}
}

func (s *EdgeContour) Name() models.StrategyName {
	return models.StrategyEdgeContour
}

func (s *EdgeContour) Extract(img *safe.Mat) Outcome {
	gray, err := conversion.ConvertToGrayscale(img)
	if err != nil {
		return Rejected(fmt.Sprintf("grayscale: %v", err), models.QualityMetrics{})
	}
	defer gray.Close()

	blurred, err := filters.GaussianBlur(gray, s.params.BlurKernel)
	if err != nil {
		return Rejected(fmt.Sprintf("blur: %v", err), models.QualityMetrics{})
	}
	defer blurred.Close()

	edges, err := filters.Canny(blurred, s.params.CannyLow, s.params.CannyHigh)
	if err != nil {
		return Rejected(fmt.Sprintf("canny: %v", err), models.QualityMetrics{})
	}
	defer edges.Close()

	contours := gocv.FindContours(edges.GetMat(), gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return Rejected("no contours found", models.QualityMetrics{})
	}

	maxArea := 0.0
	maxIndex := 0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > maxArea {
			maxArea = area
			maxIndex = i
		}
	}

	ratio := maxArea / float64(img.Rows()*img.Cols())
	if !s.params.Bounds.Contains(ratio) {
		return Rejected(fmt.Sprintf("largest contour area ratio %.3f outside %s", ratio, s.params.Bounds), ratioOnly(ratio))
	}

	candidate, err := safe.NewMatFromScalar(gocv.NewScalar(0, 0, 0, 0), img.Rows(), img.Cols(), gocv.MatTypeCV8UC1, "contour_mask")
	if err != nil {
		return Rejected(fmt.Sprintf("contour mask: %v", err), ratioOnly(ratio))
	}

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.DrawContours(candidate.Ptr(), contours, maxIndex, white, -1)

	return Accepted(candidate, ratioOnly(ratio), "")
}
