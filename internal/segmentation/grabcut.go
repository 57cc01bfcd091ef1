package segmentation

import (
	"fmt"
	"image"

	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/processing/mask"

	"gocv.io/x/gocv"
)

// GrabCut seeds a centred rectangle as probable foreground and runs a fixed
// number of GrabCut iterations.
type GrabCut struct {
	params GrabCutParams
}

func NewGrabCut(params GrabCutParams) *GrabCut {
	return &GrabCut{params: params}
}

func (s *GrabCut) Name() models.StrategyName {
	return models.StrategyGrabCut
}

// SeedRect returns the centred rectangle covering RectFraction of each
// dimension.
func (s *GrabCut) SeedRect(cols, rows int) image.Rectangle {
	w := int(float64(cols) * s.params.RectFraction)
	h := int(float64(rows) * s.params.RectFraction)
	x := (cols - w) / 2
	y := (rows - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

func (s *GrabCut) Extract(img *safe.Mat) Outcome {
	rect := s.SeedRect(img.Cols(), img.Rows())
	if rect.Dx() < 1 || rect.Dy() < 1 {
		return Rejected(fmt.Sprintf("image %dx%d too small to seed", img.Cols(), img.Rows()), models.QualityMetrics{})
	}

	labels := gocv.NewMatWithSize(img.Rows(), img.Cols(), gocv.MatTypeCV8UC1)
	defer labels.Close()
	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	gocv.GrabCut(img.GetMat(), &labels, rect, &bgdModel, &fgdModel, s.params.Iterations, gocv.GCInitWithRect)

	if labels.Empty() {
		return Rejected("grabcut produced no labels", models.QualityMetrics{})
	}

	// GC_FGD=1 and GC_PR_FGD=3 are the only odd labels.
	raw, err := labels.DataPtrUint8()
	if err != nil {
		return Rejected(fmt.Sprintf("grabcut labels unreadable: %v", err), models.QualityMetrics{})
	}
	fg := make([]byte, len(raw))
	for i, v := range raw {
		if v&1 == 1 {
			fg[i] = 255
		}
	}

	candidate, err := conversion.MatFromBytes(img.Rows(), img.Cols(), gocv.MatTypeCV8UC1, fg, "grabcut_mask")
	if err != nil {
		return Rejected(fmt.Sprintf("grabcut mask: %v", err), models.QualityMetrics{})
	}

	ratio := mask.ForegroundRatio(candidate)
	if !s.params.Bounds.Contains(ratio) {
		candidate.Close()
		return Rejected(fmt.Sprintf("foreground ratio %.3f outside %s", ratio, s.params.Bounds), ratioOnly(ratio))
	}

	return Accepted(candidate, ratioOnly(ratio), "")
}
