package quality

import (
	"fmt"

	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/processing/colorspace"
	"sketch-sprite/internal/processing/mask"
)

// Bounds is an inclusive foreground-ratio window.
type Bounds struct {
	Min float64
	Max float64
}

func (b Bounds) Contains(ratio float64) bool {
	return ratio >= b.Min && ratio <= b.Max
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%.2f, %.2f]", b.Min, b.Max)
}

type Params struct {
	// BorderWhiteDistance is the maximum distance from pure white for a
	// border pixel to count as white.
	BorderWhiteDistance float64
	// WhiteBorderRatio is the perimeter whiteness above which the loose
	// bounds apply.
	WhiteBorderRatio float64
	Loose            Bounds
	Strict           Bounds
}

func DefaultParams() Params {
	return Params{
		BorderWhiteDistance: 30,
		WhiteBorderRatio:    0.7,
		Loose:               Bounds{Min: 0.03, Max: 0.95},
		Strict:              Bounds{Min: 0.05, Max: 0.75},
	}
}

// Decision is the outcome of a gate evaluation. Identical inputs always
// yield identical decisions.
type Decision struct {
	Accepted bool
	Reason   string
	Metrics  models.QualityMetrics
	Bounds   Bounds
}

type Gate struct {
	params Params
}

func NewGate(params Params) *Gate {
	return &Gate{params: params}
}

// Evaluate scores a candidate mask against its BGR source.
func (g *Gate) Evaluate(candidate, source *safe.Mat) (Decision, error) {
	if err := safe.ValidateMask(candidate, "quality gate"); err != nil {
		return Decision{}, err
	}
	if err := safe.ValidateBGR(source, "quality gate"); err != nil {
		return Decision{}, err
	}
	if err := safe.ValidateSameSize(candidate, source, "quality gate"); err != nil {
		return Decision{}, err
	}

	metrics := models.QualityMetrics{
		ForegroundRatio:      mask.ForegroundRatio(candidate),
		PerimeterWhiteness:   PerimeterWhiteness(source, g.params.BorderWhiteDistance),
		PerimeterWhitenessOK: true,
	}

	return g.Decide(metrics), nil
}

// Decide applies the adaptive bounds to precomputed metrics.
func (g *Gate) Decide(metrics models.QualityMetrics) Decision {
	bounds := g.params.Strict
	regime := "strict"
	if metrics.PerimeterWhiteness > g.params.WhiteBorderRatio {
		bounds = g.params.Loose
		regime = "loose"
	}

	d := Decision{
		Accepted: bounds.Contains(metrics.ForegroundRatio),
		Metrics:  metrics,
		Bounds:   bounds,
	}
	if !d.Accepted {
		d.Reason = fmt.Sprintf("foreground ratio %.3f outside %s bounds %s (border whiteness %.3f)",
			metrics.ForegroundRatio, regime, bounds, metrics.PerimeterWhiteness)
	}
	return d
}

// PerimeterWhiteness is the fraction of distinct border pixels (first and
// last rows and columns) within maxDistance of pure white.
func PerimeterWhiteness(img *safe.Mat, maxDistance float64) float64 {
	rows, cols := img.Rows(), img.Cols()
	if rows == 0 || cols == 0 {
		return 0
	}

	data := img.Bytes()
	if len(data) < rows*cols*3 {
		return 0
	}

	white, total := 0, 0
	visit := func(r, c int) {
		i := (r*cols + c) * 3
		total++
		if colorspace.WhiteDistance(data[i], data[i+1], data[i+2]) <= maxDistance {
			white++
		}
	}

	for c := 0; c < cols; c++ {
		visit(0, c)
		if rows > 1 {
			visit(rows-1, c)
		}
	}
	for r := 1; r < rows-1; r++ {
		visit(r, 0)
		if cols > 1 {
			visit(r, cols-1)
		}
	}

	return float64(white) / float64(total)
}
