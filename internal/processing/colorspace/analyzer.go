package colorspace

import (
	"fmt"
	"math"

	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/processing/filters"

	"gocv.io/x/gocv"
)

// maxWhiteDistance is the Euclidean distance from (255,255,255) to (0,0,0).
const maxWhiteDistance = 441.6729559300637

type Params struct {
	SaturationThreshold float64
	LabLuminanceMax     float64
	LabChromaMin        float64
	CannyLow            float64
	CannyHigh           float64
	EdgeDilateKernel    int
}

func DefaultParams() Params {
	return Params{
		SaturationThreshold: 30,
		LabLuminanceMax:     200,
		LabChromaMin:        12,
		CannyLow:            50,
		CannyHigh:           150,
		EdgeDilateKernel:    3,
	}
}

// Masks holds the independent foreground-likelihood masks of one image.
// Every mask is 8UC1, 0 or 255, with the dimensions of the analysed image.
type Masks struct {
	RGB   *safe.Mat
	HSV   *safe.Mat
	LAB   *safe.Mat
	Edges *safe.Mat
}

// Area returns the region masks, excluding the edge map.
func (m *Masks) Area() []*safe.Mat {
	return []*safe.Mat{m.RGB, m.HSV, m.LAB}
}

func (m *Masks) Close() {
	if m == nil {
		return
	}
	safe.CloseAll(m.RGB, m.HSV, m.LAB, m.Edges)
}

// Analyzer derives candidate foreground masks from a BGR image. It holds no
// state besides its parameters and is safe for concurrent use.
type Analyzer struct {
	params Params
}

func NewAnalyzer(params Params) *Analyzer {
	return &Analyzer{params: params}
}

// Analyze never modifies img. The only failures are invalid input and
// native allocation errors.
func (a *Analyzer) Analyze(img *safe.Mat) (*Masks, error) {
	if err := safe.ValidateBGR(img, "color space analysis"); err != nil {
		return nil, err
	}

	masks := &Masks{}
	var err error

	if masks.RGB, err = a.WhitenessMask(img); err != nil {
		masks.Close()
		return nil, fmt.Errorf("rgb mask: %w", err)
	}
	if masks.HSV, err = a.SaturationMask(img); err != nil {
		masks.Close()
		return nil, fmt.Errorf("hsv mask: %w", err)
	}
	if masks.LAB, err = a.NeutralityMask(img); err != nil {
		masks.Close()
		return nil, fmt.Errorf("lab mask: %w", err)
	}
	if masks.Edges, err = a.EdgeMask(img); err != nil {
		masks.Close()
		return nil, fmt.Errorf("edge mask: %w", err)
	}

	return masks, nil
}

// WhitenessMask binarises each pixel's distance from pure white with an Otsu
// cutoff, so the split follows the overall brightness of the scan.
func (a *Analyzer) WhitenessMask(img *safe.Mat) (*safe.Mat, error) {
	distance, err := pixelMap(img, "white_distance", func(b, g, r byte) byte {
		return byte(math.Round(WhiteDistance(b, g, r) / maxWhiteDistance * 255))
	})
	if err != nil {
		return nil, err
	}
	defer distance.Close()

	mask, err := safe.NewMatWithTag(img.Rows(), img.Cols(), gocv.MatTypeCV8UC1, "rgb_mask")
	if err != nil {
		return nil, err
	}

	gocv.Threshold(distance.GetMat(), mask.Ptr(), 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	return mask, nil
}

// SaturationMask marks pixels whose HSV saturation exceeds the threshold.
func (a *Analyzer) SaturationMask(img *safe.Mat) (*safe.Mat, error) {
	hsv, err := conversion.ConvertBGRToHSV(img)
	if err != nil {
		return nil, err
	}
	defer hsv.Close()

	channels := gocv.Split(hsv.GetMat())
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()
	if len(channels) != 3 {
		return nil, fmt.Errorf("expected 3 HSV channels, got %d", len(channels))
	}

	mask, err := safe.NewMatWithTag(img.Rows(), img.Cols(), gocv.MatTypeCV8UC1, "hsv_mask")
	if err != nil {
		return nil, err
	}

	gocv.Threshold(channels[1], mask.Ptr(), float32(a.params.SaturationThreshold), 255, gocv.ThresholdBinary)

	return mask, nil
}

// NeutralityMask marks dark pixels and pixels far from neutral gray in the
// a/b plane.
func (a *Analyzer) NeutralityMask(img *safe.Mat) (*safe.Mat, error) {
	lab, err := conversion.ConvertBGRToLab(img)
	if err != nil {
		return nil, err
	}
	defer lab.Close()

	lumMax := a.params.LabLuminanceMax
	chromaMin := a.params.LabChromaMin

	return pixelMap(lab, "lab_mask", func(l, aa, bb byte) byte {
		da := float64(aa) - 128
		db := float64(bb) - 128
		if float64(l) < lumMax || math.Sqrt(da*da+db*db) > chromaMin {
			return 255
		}
		return 0
	})
}

// EdgeMask is a dilated Canny map of the grayscale image.
func (a *Analyzer) EdgeMask(img *safe.Mat) (*safe.Mat, error) {
	gray, err := conversion.ConvertToGrayscale(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	edges, err := filters.Canny(gray, a.params.CannyLow, a.params.CannyHigh)
	if err != nil {
		return nil, err
	}
	defer edges.Close()

	return filters.ApplyMorphology(edges, filters.Dilate(a.params.EdgeDilateKernel))
}

// WhiteDistance is the Euclidean distance of a pixel from (255,255,255).
func WhiteDistance(b, g, r byte) float64 {
	db := 255 - float64(b)
	dg := 255 - float64(g)
	dr := 255 - float64(r)
	return math.Sqrt(db*db + dg*dg + dr*dr)
}

// pixelMap evaluates fn over every pixel of a 3-channel 8-bit image and
// returns the single-channel result.
func pixelMap(img *safe.Mat, tag string, fn func(c0, c1, c2 byte) byte) (*safe.Mat, error) {
	data := img.Bytes()
	pixels := img.Rows() * img.Cols()
	if len(data) < pixels*3 {
		return nil, fmt.Errorf("%s: expected %d bytes, got %d", tag, pixels*3, len(data))
	}

	out := make([]byte, pixels)
	for i := 0; i < pixels; i++ {
		out[i] = fn(data[3*i], data[3*i+1], data[3*i+2])
	}

	return conversion.MatFromBytes(img.Rows(), img.Cols(), gocv.MatTypeCV8UC1, out, tag)
}
