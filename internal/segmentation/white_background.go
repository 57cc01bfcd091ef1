package segmentation

import (
	"fmt"

	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/processing/colorspace"
	"sketch-sprite/internal/processing/mask"
	"sketch-sprite/internal/processing/quality"
)

// WhiteBackground assumes a light, roughly uniform background: colour
// analysis, mask fusion and cleanup, then the adaptive quality gate.
type WhiteBackground struct {
	analyzer *colorspace.Analyzer
	gate     *quality.Gate
}

func NewWhiteBackground(color colorspace.Params, gate quality.Params) *WhiteBackground {
	return &WhiteBackground{
		analyzer: colorspace.NewAnalyzer(color),
		gate:     quality.NewGate(gate),
	}
}

func (s *WhiteBackground) Name() models.StrategyName {
	return models.StrategyWhiteBackground
}

func (s *WhiteBackground) Extract(img *safe.Mat) Outcome {
	masks, err := s.analyzer.Analyze(img)
	if err != nil {
		return Rejected(fmt.Sprintf("color analysis failed: %v", err), models.QualityMetrics{})
	}
	defer masks.Close()

	candidate, err := mask.Composite(masks.Area(), masks.Edges)
	if err != nil {
		return Rejected(fmt.Sprintf("mask composite failed: %v", err), models.QualityMetrics{})
	}

	decision, err := s.gate.Evaluate(candidate, img)
	if err != nil {
		candidate.Close()
		return Rejected(fmt.Sprintf("quality gate failed: %v", err), models.QualityMetrics{})
	}
	if !decision.Accepted {
		candidate.Close()
		return Rejected(decision.Reason, decision.Metrics)
	}

	return Accepted(candidate, decision.Metrics, "")
}
