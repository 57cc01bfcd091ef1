package segmentation

import (
	"image"
	"testing"

	"sketch-sprite/internal/config"
	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestScore(t *testing.T) {
	_, ok := Score(0)
	assert.False(t, ok)

	s, ok := Score(0.5)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, s, 1e-9)

	s, _ = Score(1.0)
	assert.InDelta(t, 0.5, s, 1e-9)

	low, _ := Score(0.1)
	high, _ := Score(0.9)
	assert.InDelta(t, low, high, 1e-9)
}

func TestAdaptiveThreshold_AllWhiteStillProducesMask(t *testing.T) {
	img := canvas(t, 120, 255)

	out := NewAdaptiveThreshold(DefaultParams().Threshold).Extract(img)
	require.True(t, out.IsAccepted())
	defer out.Mask.Close()

	assert.Positive(t, out.Mask.CountNonZero())
	assert.Equal(t, img.Size(), out.Mask.Size())
}

func TestAdaptiveThreshold_PrefersCutoffNearHalf(t *testing.T) {
	img := canvas(t, 100, 255)
	// left half inked: every cutoff from 200 marks exactly that half
	gocv.Rectangle(img.Ptr(), image.Rect(0, 0, 49, 99), ink, -1)

	out := NewAdaptiveThreshold(DefaultParams().Threshold).Extract(img)
	require.True(t, out.IsAccepted())
	defer out.Mask.Close()

	assert.InDelta(t, 0.5, out.Metrics.ForegroundRatio, 0.05)
	assert.Contains(t, out.Reason, "cutoff 200")
}

func thinStroke(t *testing.T) *safe.Mat {
	t.Helper()
	img := canvas(t, 300, 255)
	gocv.Line(img.Ptr(), image.Pt(40, 150), image.Pt(260, 150), ink, 1)
	return img
}

func TestAdaptiveThreshold_ThinStrokeOnWhiteIsNotEmpty(t *testing.T) {
	img := thinStroke(t)

	out := NewAdaptiveThreshold(DefaultParams().Threshold).Extract(img)
	require.True(t, out.IsAccepted())
	defer out.Mask.Close()

	assert.Positive(t, out.Mask.CountNonZero())
	assert.Equal(t, img.Size(), out.Mask.Size())
}

func TestAdaptiveThreshold_DefaultCutoffKeepsStrokeThinnerThanKernel(t *testing.T) {
	img := thinStroke(t)
	params := ThresholdParams{Candidates: []int{200}, Default: 220, Kernel: 3}

	out := NewAdaptiveThreshold(params).Extract(img)
	require.True(t, out.IsAccepted())
	defer out.Mask.Close()

	assert.Contains(t, out.Reason, "unfiltered ink")
	assert.Positive(t, out.Mask.CountNonZero())
	assert.Less(t, out.Metrics.ForegroundRatio, 0.01)
}

func TestCascade_ThinStrokeTerminalMaskIsNotEmpty(t *testing.T) {
	img := thinStroke(t)

	res, err := NewCascade(DefaultParams(), nil).Extract(img)
	require.NoError(t, err)
	require.NotNil(t, res)
	defer res.Close()

	assert.Positive(t, res.Mask.CountNonZero())
}

func TestAdaptiveThreshold_DefaultWhenNothingScores(t *testing.T) {
	img := canvas(t, 60, 255)
	params := ThresholdParams{Candidates: []int{100}, Default: 220, Kernel: 3}

	out := NewAdaptiveThreshold(params).Extract(img)
	require.True(t, out.IsAccepted())
	defer out.Mask.Close()

	assert.Contains(t, out.Reason, "default cutoff 220")
}

func TestGrabCut_SeedRectIsCentred(t *testing.T) {
	s := NewGrabCut(DefaultParams().GrabCut)
	assert.Equal(t, image.Rect(60, 60, 240, 240), s.SeedRect(300, 300))
	assert.Equal(t, image.Rect(20, 40, 80, 160), s.SeedRect(100, 200))
}

func TestGrabCut_ProducesSizedMask(t *testing.T) {
	img := sketch(t)

	out := NewGrabCut(DefaultParams().GrabCut).Extract(img)
	if out.IsAccepted() {
		defer out.Mask.Close()
		assert.Equal(t, img.Size(), out.Mask.Size())
		assert.GreaterOrEqual(t, out.Metrics.ForegroundRatio, 0.05)
		assert.LessOrEqual(t, out.Metrics.ForegroundRatio, 0.95)
	} else {
		assert.NotEmpty(t, out.Reason)
	}
}

func TestEdgeContour_FillsLargestOutline(t *testing.T) {
	img := canvas(t, 200, 255)
	gocv.Rectangle(img.Ptr(), image.Rect(50, 50, 150, 150), ink, 2)

	out := NewEdgeContour(DefaultParams().Contour).Extract(img)
	require.True(t, out.IsAccepted(), out.Reason)
	defer out.Mask.Close()

	assert.Equal(t, uint8(255), out.Mask.GetMat().GetUCharAt(100, 100), "interior is filled")
	assert.Equal(t, uint8(0), out.Mask.GetMat().GetUCharAt(10, 10))
	assert.InDelta(t, 0.25, out.Metrics.ForegroundRatio, 0.05)
}

func TestEdgeContour_RejectsBlankImage(t *testing.T) {
	out := NewEdgeContour(DefaultParams().Contour).Extract(canvas(t, 100, 255))
	assert.False(t, out.IsAccepted())
	assert.Equal(t, "no contours found", out.Reason)
}

func TestWhiteBackground_RejectsBlackImage(t *testing.T) {
	p := DefaultParams()
	out := NewWhiteBackground(p.Color, p.Quality).Extract(canvas(t, 120, 0))
	assert.False(t, out.IsAccepted())
	assert.Nil(t, out.Mask)
}

func TestParamsFromConfig_MatchesDefaults(t *testing.T) {
	assert.Equal(t, DefaultParams(), ParamsFromConfig(config.Default().Extraction))
}

func TestOutcome(t *testing.T) {
	r := Rejected("nope", models.QualityMetrics{ForegroundRatio: 0.9})
	assert.False(t, r.IsAccepted())
	assert.Equal(t, "nope", r.Reason)
}
