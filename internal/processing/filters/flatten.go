package filters

import (
	"image"

	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"

	"golang.org/x/image/draw"
)

// FlattenFilter composites BGRA input onto a white canvas weighted by alpha
// and returns BGR. BGR input is copied and gray input is expanded to BGR.
type FlattenFilter struct{}

func NewFlattenFilter() *FlattenFilter {
	return &FlattenFilter{}
}

func (f *FlattenFilter) Name() string {
	return "flatten_filter"
}

func (f *FlattenFilter) Apply(input *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(input, "flatten"); err != nil {
		return nil, err
	}

	if input.Channels() != 4 {
		return conversion.ToBGR(input)
	}

	return FlattenOnWhite(input)
}

// FlattenOnWhite is the alpha composite behind FlattenFilter.
func FlattenOnWhite(bgra *safe.Mat) (*safe.Mat, error) {
	src, err := conversion.MatToImage(bgra)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Over)

	return conversion.ImageToMat(canvas)
}
