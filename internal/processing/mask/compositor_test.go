package mask

import (
	"image"
	"image/color"
	"testing"

	"sketch-sprite/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func blank(t *testing.T, rows, cols int) *safe.Mat {
	t.Helper()
	m, err := safe.NewMatFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1, "mask")
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func fill(m *safe.Mat, x, y, w, h int) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			m.GetMat().SetUCharAt(row, col, 255)
		}
	}
}

func TestKeepLargestComponent_DropsSmallBlob(t *testing.T) {
	m := blank(t, 100, 100)
	fill(m, 10, 10, 40, 25)
	fill(m, 80, 90, 5, 1)
	require.Equal(t, 1005, m.CountNonZero())

	out, err := KeepLargestComponent(m)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 1000, out.CountNonZero())
	assert.Equal(t, uint8(255), out.GetMat().GetUCharAt(20, 20))
	assert.Equal(t, uint8(0), out.GetMat().GetUCharAt(90, 82))
}

func TestKeepLargestComponent_EmptyStaysEmpty(t *testing.T) {
	m := blank(t, 20, 20)

	out, err := KeepLargestComponent(m)
	require.NoError(t, err)
	defer out.Close()

	assert.Zero(t, out.CountNonZero())
	assert.Equal(t, m.Size(), out.Size())
}

func TestUnion(t *testing.T) {
	a := blank(t, 10, 10)
	b := blank(t, 10, 10)
	a.GetMat().SetUCharAt(1, 1, 255)
	b.GetMat().SetUCharAt(8, 8, 255)

	out, err := Union(a, b)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 2, out.CountNonZero())
	assert.Equal(t, 1, a.CountNonZero(), "inputs are untouched")
}

func TestUnion_RejectsSizeMismatch(t *testing.T) {
	_, err := Union(blank(t, 10, 10), blank(t, 12, 10))
	assert.Error(t, err)
}

func TestComposite_KeepsOnlyLargerBlob(t *testing.T) {
	rgb := blank(t, 120, 120)
	hsv := blank(t, 120, 120)
	lab := blank(t, 120, 120)
	gocv.Circle(rgb.Ptr(), image.Pt(40, 40), 25, white, -1)
	gocv.Rectangle(lab.Ptr(), image.Rect(95, 95, 105, 105), white, -1)

	out, err := Composite([]*safe.Mat{rgb, hsv, lab}, nil)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, uint8(255), out.GetMat().GetUCharAt(40, 40))
	assert.Equal(t, uint8(0), out.GetMat().GetUCharAt(100, 100))
	assert.Equal(t, rgb.Size(), out.Size())
}

func TestComposite_EdgesFillIntoSilhouette(t *testing.T) {
	area := blank(t, 100, 100)
	edges := blank(t, 100, 100)
	gocv.Rectangle(edges.Ptr(), image.Rect(20, 20, 80, 80), white, 3)

	out, err := Composite([]*safe.Mat{area}, edges)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, uint8(255), out.GetMat().GetUCharAt(20, 50))
	assert.Zero(t, area.CountNonZero(), "area mask is untouched")
}

func TestComposite_AllEmpty(t *testing.T) {
	out, err := Composite([]*safe.Mat{blank(t, 30, 30), blank(t, 30, 30)}, blank(t, 30, 30))
	require.NoError(t, err)
	defer out.Close()

	assert.Zero(t, out.CountNonZero())
}

func TestForegroundRatio(t *testing.T) {
	m := blank(t, 10, 10)
	fill(m, 0, 0, 5, 5)
	assert.InDelta(t, 0.25, ForegroundRatio(m), 1e-9)
}
