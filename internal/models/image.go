package models

import (
	"fmt"

	"sketch-sprite/internal/opencv/safe"
)

// StrategyName identifies which segmentation strategy produced a result.
type StrategyName string

const (
	StrategyWhiteBackground   StrategyName = "white_background"
	StrategyGrabCut           StrategyName = "grabcut"
	StrategyEdgeContour       StrategyName = "edge_contour"
	StrategyAdaptiveThreshold StrategyName = "adaptive_threshold"
)

// QualityMetrics are recomputed for every candidate mask and never stored.
type QualityMetrics struct {
	ForegroundRatio      float64 `json:"foreground_ratio"`
	PerimeterWhiteness   float64 `json:"perimeter_whiteness"`
	PerimeterWhitenessOK bool    `json:"-"`
}

func (m QualityMetrics) String() string {
	if !m.PerimeterWhitenessOK {
		return fmt.Sprintf("fg=%.3f", m.ForegroundRatio)
	}
	return fmt.Sprintf("fg=%.3f border_white=%.3f", m.ForegroundRatio, m.PerimeterWhiteness)
}

// ExtractionResult is the terminal output of the segmentation cascade.
// Image is always BGRA with the mask as its alpha channel; Mask has the
// dimensions of the source image.
type ExtractionResult struct {
	Image    *safe.Mat
	Mask     *safe.Mat
	Strategy StrategyName
	Metrics  QualityMetrics
	Attempts []Attempt
}

// Attempt records one step of the cascade for diagnostics.
type Attempt struct {
	Strategy StrategyName   `json:"strategy"`
	Accepted bool           `json:"accepted"`
	Reason   string         `json:"reason,omitempty"`
	Metrics  QualityMetrics `json:"metrics"`
}

// Close releases the native buffers held by the result.
func (r *ExtractionResult) Close() {
	if r == nil {
		return
	}
	safe.CloseAll(r.Image, r.Mask)
}
