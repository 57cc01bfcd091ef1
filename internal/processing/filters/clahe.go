package filters

import (
	"fmt"
	"image"

	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// CLAHEFilter equalises the L channel of a BGR image in Lab space, leaving
// chroma alone so flat colour regions do not pick up noise.
type CLAHEFilter struct {
	ClipLimit float64
	TileSize  int
}

func NewCLAHEFilter(clipLimit float64, tileSize int) *CLAHEFilter {
	return &CLAHEFilter{ClipLimit: clipLimit, TileSize: tileSize}
}

func (c *CLAHEFilter) Name() string {
	return "clahe_filter"
}

func (c *CLAHEFilter) Apply(input *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateBGR(input, "CLAHE"); err != nil {
		return nil, err
	}
	if c.ClipLimit <= 0 || c.TileSize <= 0 {
		return nil, fmt.Errorf("invalid CLAHE parameters: clip=%v tile=%d", c.ClipLimit, c.TileSize)
	}

	lab, err := conversion.ConvertBGRToLab(input)
	if err != nil {
		return nil, err
	}
	defer lab.Close()

	channels := gocv.Split(lab.GetMat())
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()
	if len(channels) != 3 {
		return nil, fmt.Errorf("expected 3 Lab channels, got %d", len(channels))
	}

	clahe := gocv.NewCLAHEWithParams(c.ClipLimit, image.Point{X: c.TileSize, Y: c.TileSize})
	defer clahe.Close()

	equalized := gocv.NewMat()
	defer equalized.Close()
	clahe.Apply(channels[0], &equalized)
	if equalized.Empty() {
		return nil, fmt.Errorf("CLAHE produced an empty luminance channel")
	}

	mergedLab := gocv.NewMat()
	gocv.Merge([]gocv.Mat{equalized, channels[1], channels[2]}, &mergedLab)
	enhancedLab, err := safe.Adopt(mergedLab, "lab_clahe")
	if err != nil {
		return nil, err
	}
	defer enhancedLab.Close()

	return conversion.ConvertLabToBGR(enhancedLab)
}
