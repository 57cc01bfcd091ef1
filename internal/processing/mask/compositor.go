package mask

import (
	"fmt"

	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/processing/filters"

	"gocv.io/x/gocv"
)

// statArea is the CC_STAT_AREA column of the connected components stats.
const statArea = 4

// Cleanup is the fixed morphology sequence applied after fusion.
var Cleanup = []filters.MorphOp{
	filters.Close(3),
	filters.Close(5),
	filters.Open(3),
}

// Composite fuses the area masks by OR, ORs the edge mask on top, cleans the
// result with Cleanup and keeps only the largest connected component. edges
// may be nil. Inputs are not modified.
func Composite(area []*safe.Mat, edges *safe.Mat) (*safe.Mat, error) {
	if len(area) == 0 {
		return nil, fmt.Errorf("no masks to composite")
	}

	all := area
	if edges != nil {
		all = append(append([]*safe.Mat{}, area...), edges)
	}

	for _, m := range all {
		if err := safe.ValidateMask(m, "mask composite"); err != nil {
			return nil, err
		}
		if err := safe.ValidateSameSize(all[0], m, "mask composite"); err != nil {
			return nil, err
		}
	}

	fused, err := Union(area...)
	if err != nil {
		return nil, err
	}
	if edges != nil {
		withEdges, err := Union(fused, edges)
		fused.Close()
		if err != nil {
			return nil, err
		}
		fused = withEdges
	}
	defer fused.Close()

	cleaned, err := filters.ApplyMorphology(fused, Cleanup...)
	if err != nil {
		return nil, fmt.Errorf("mask cleanup: %w", err)
	}
	defer cleaned.Close()

	return KeepLargestComponent(cleaned)
}

// Union returns the pixelwise OR of equally sized masks.
func Union(masks ...*safe.Mat) (*safe.Mat, error) {
	if len(masks) == 0 {
		return nil, fmt.Errorf("no masks to union")
	}

	out, err := masks[0].Clone()
	if err != nil {
		return nil, err
	}

	for _, m := range masks[1:] {
		if err := safe.ValidateSameSize(out, m, "mask union"); err != nil {
			out.Close()
			return nil, err
		}
		next, err := safe.NewMatWithTag(out.Rows(), out.Cols(), gocv.MatTypeCV8UC1, "union")
		if err != nil {
			out.Close()
			return nil, err
		}
		gocv.BitwiseOr(out.GetMat(), m.GetMat(), next.Ptr())
		out.Close()
		out = next
	}

	return out, nil
}

// KeepLargestComponent returns a mask holding only the 8-connected component
// with the largest pixel area. An empty mask comes back as an empty copy.
func KeepLargestComponent(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMask(src, "largest component"); err != nil {
		return nil, err
	}

	if src.CountNonZero() == 0 {
		return src.Clone()
	}

	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	numComponents := gocv.ConnectedComponentsWithStats(src.GetMat(), &labels, &stats, &centroids)

	best, bestArea := 0, int32(-1)
	for i := 1; i < numComponents; i++ { // label 0 is background
		if area := stats.GetIntAt(i, statArea); area > bestArea {
			best, bestArea = i, area
		}
	}
	if best == 0 {
		return src.Clone()
	}

	dst, err := safe.NewMatWithTag(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1, "largest_component")
	if err != nil {
		return nil, err
	}

	label := gocv.NewScalar(float64(best), 0, 0, 0)
	gocv.InRangeWithScalar(labels, label, label, dst.Ptr())

	return dst, nil
}

// ForegroundRatio is the fraction of non-zero pixels in a mask.
func ForegroundRatio(m *safe.Mat) float64 {
	total := m.Rows() * m.Cols()
	if total == 0 {
		return 0
	}
	return float64(m.CountNonZero()) / float64(total)
}
