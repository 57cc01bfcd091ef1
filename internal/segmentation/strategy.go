package segmentation

import (
	"sketch-sprite/internal/config"
	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/processing/colorspace"
	"sketch-sprite/internal/processing/quality"
)

// Strategy proposes a foreground mask for a BGR image. Implementations must
// not modify img and must not retain it after Extract returns.
type Strategy interface {
	Name() models.StrategyName
	Extract(img *safe.Mat) Outcome
}

// Outcome is either Accepted (Mask set) or Rejected (Mask nil, Reason set).
// The receiver of an accepted Outcome owns Mask.
type Outcome struct {
	Mask    *safe.Mat
	Metrics models.QualityMetrics
	Reason  string
}

func Accepted(mask *safe.Mat, metrics models.QualityMetrics, note string) Outcome {
	return Outcome{Mask: mask, Metrics: metrics, Reason: note}
}

func Rejected(reason string, metrics models.QualityMetrics) Outcome {
	return Outcome{Metrics: metrics, Reason: reason}
}

func (o Outcome) IsAccepted() bool {
	return o.Mask != nil
}

type GrabCutParams struct {
	Iterations   int
	RectFraction float64
	Bounds       quality.Bounds
}

type ContourParams struct {
	BlurKernel int
	CannyLow   float64
	CannyHigh  float64
	Bounds     quality.Bounds
}

type ThresholdParams struct {
	Candidates []int
	Default    int
	Kernel     int
}

// Params gathers the tunables of every strategy in the cascade.
type Params struct {
	Color     colorspace.Params
	Quality   quality.Params
	GrabCut   GrabCutParams
	Contour   ContourParams
	Threshold ThresholdParams
}

func DefaultParams() Params {
	return Params{
		Color:   colorspace.DefaultParams(),
		Quality: quality.DefaultParams(),
		GrabCut: GrabCutParams{
			Iterations:   5,
			RectFraction: 0.6,
			Bounds:       quality.Bounds{Min: 0.05, Max: 0.95},
		},
		Contour: ContourParams{
			BlurKernel: 5,
			CannyLow:   50,
			CannyHigh:  150,
			Bounds:     quality.Bounds{Min: 0.05, Max: 0.95},
		},
		Threshold: ThresholdParams{
			Candidates: []int{200, 220, 240, 260},
			Default:    220,
			Kernel:     3,
		},
	}
}

// ParamsFromConfig maps the extraction section of the configuration onto
// strategy parameters.
func ParamsFromConfig(cfg config.ExtractionConfig) Params {
	candidates := make([]int, len(cfg.ThresholdCandidates))
	copy(candidates, cfg.ThresholdCandidates)

	return Params{
		Color: colorspace.Params{
			SaturationThreshold: cfg.SaturationThreshold,
			LabLuminanceMax:     cfg.LabLuminanceMax,
			LabChromaMin:        cfg.LabChromaMin,
			CannyLow:            cfg.CannyLow,
			CannyHigh:           cfg.CannyHigh,
			EdgeDilateKernel:    cfg.EdgeDilateKernel,
		},
		Quality: quality.Params{
			BorderWhiteDistance: cfg.BorderWhiteDistance,
			WhiteBorderRatio:    cfg.WhiteBorderRatio,
			Loose:               quality.Bounds{Min: cfg.LooseMinRatio, Max: cfg.LooseMaxRatio},
			Strict:              quality.Bounds{Min: cfg.StrictMinRatio, Max: cfg.StrictMaxRatio},
		},
		GrabCut: GrabCutParams{
			Iterations:   cfg.GrabCutIterations,
			RectFraction: cfg.GrabCutRectFraction,
			Bounds:       quality.Bounds{Min: cfg.GrabCutMinRatio, Max: cfg.GrabCutMaxRatio},
		},
		Contour: ContourParams{
			BlurKernel: cfg.ContourBlurKernel,
			CannyLow:   cfg.CannyLow,
			CannyHigh:  cfg.CannyHigh,
			Bounds:     quality.Bounds{Min: cfg.ContourMinRatio, Max: cfg.ContourMaxRatio},
		},
		Threshold: ThresholdParams{
			Candidates: candidates,
			Default:    cfg.DefaultThreshold,
			Kernel:     cfg.ThresholdKernel,
		},
	}
}

func ratioOnly(ratio float64) models.QualityMetrics {
	return models.QualityMetrics{ForegroundRatio: ratio}
}
