package filters

import (
	"fmt"
	"image"

	"sketch-sprite/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MorphOp is a single morphological operation with an elliptical kernel.
type MorphOp struct {
	Type gocv.MorphType
	Size int
}

func Close(size int) MorphOp  { return MorphOp{Type: gocv.MorphClose, Size: size} }
func Open(size int) MorphOp   { return MorphOp{Type: gocv.MorphOpen, Size: size} }
func Dilate(size int) MorphOp { return MorphOp{Type: gocv.MorphDilate, Size: size} }

func (op MorphOp) String() string {
	name := "morph"
	switch op.Type {
	case gocv.MorphClose:
		name = "close"
	case gocv.MorphOpen:
		name = "open"
	case gocv.MorphDilate:
		name = "dilate"
	}
	return fmt.Sprintf("%s%dx%d", name, op.Size, op.Size)
}

// ApplyMorphology runs ops in order over a mask and returns a new mask.
// The input is left untouched.
func ApplyMorphology(src *safe.Mat, ops ...MorphOp) (*safe.Mat, error) {
	if err := safe.ValidateMask(src, "morphology"); err != nil {
		return nil, err
	}

	current, err := src.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to clone mask: %w", err)
	}

	for _, op := range ops {
		if op.Size < 1 {
			current.Close()
			return nil, fmt.Errorf("invalid kernel size for %s", op)
		}

		next, err := safe.NewMatWithTag(current.Rows(), current.Cols(), gocv.MatTypeCV8UC1, op.String())
		if err != nil {
			current.Close()
			return nil, fmt.Errorf("failed to create %s Mat: %w", op, err)
		}

		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: op.Size, Y: op.Size})
		if op.Type == gocv.MorphDilate {
			gocv.Dilate(current.GetMat(), next.Ptr(), kernel)
		} else {
			gocv.MorphologyEx(current.GetMat(), next.Ptr(), op.Type, kernel)
		}
		kernel.Close()

		current.Close()
		current = next
	}

	return current, nil
}
