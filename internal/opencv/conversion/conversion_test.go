package conversion

import (
	"image"
	"image/color"
	"testing"

	"sketch-sprite/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestImageToMat_OpaqueBecomesBGR(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetRGBA(1, 2, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	mat, err := ImageToMat(img)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, gocv.MatTypeCV8UC3, mat.Type())
	assert.Equal(t, 4, mat.Cols())
	assert.Equal(t, 3, mat.Rows())

	m := mat.GetMat()
	assert.Equal(t, uint8(50), m.GetUCharAt3(2, 1, 0))
	assert.Equal(t, uint8(100), m.GetUCharAt3(2, 1, 1))
	assert.Equal(t, uint8(200), m.GetUCharAt3(2, 1, 2))
}

func TestImageToMat_TransparencyBecomesBGRA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0})

	mat, err := ImageToMat(img)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, gocv.MatTypeCV8UC4, mat.Type())
}

func TestMatToImage_RoundTripBGRA(t *testing.T) {
	src, err := safe.NewMatFromScalar(gocv.NewScalar(30, 20, 10, 128), 3, 3, gocv.MatTypeCV8UC4, "bgra")
	require.NoError(t, err)
	defer src.Close()

	img, err := MatToImage(src)
	require.NoError(t, err)

	nrgba, ok := img.(*image.NRGBA)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 128}, nrgba.NRGBAAt(1, 1))
}

func TestAttachAlpha(t *testing.T) {
	bgr, err := safe.NewMatFromScalar(gocv.NewScalar(1, 2, 3, 0), 5, 6, gocv.MatTypeCV8UC3, "bgr")
	require.NoError(t, err)
	defer bgr.Close()

	alpha, err := safe.NewMatFromScalar(gocv.NewScalar(255, 0, 0, 0), 5, 6, gocv.MatTypeCV8UC1, "alpha")
	require.NoError(t, err)
	defer alpha.Close()

	bgra, err := AttachAlpha(bgr, alpha)
	require.NoError(t, err)
	defer bgra.Close()

	assert.Equal(t, 4, bgra.Channels())
	assert.Equal(t, uint8(255), bgra.GetMat().GetUCharAt3(0, 0, 3))

	small, err := safe.NewMat(2, 2, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	defer small.Close()

	_, err = AttachAlpha(bgr, small)
	assert.Error(t, err)
}

func TestConvertToGrayscale_FromEveryLayout(t *testing.T) {
	for _, mt := range []gocv.MatType{gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4} {
		src, err := safe.NewMatFromScalar(gocv.NewScalar(255, 255, 255, 255), 4, 4, mt, "src")
		require.NoError(t, err)

		gray, err := ConvertToGrayscale(src)
		require.NoError(t, err)
		assert.Equal(t, gocv.MatTypeCV8UC1, gray.Type())

		safe.CloseAll(src, gray)
	}
}
