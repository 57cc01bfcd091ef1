package pipeline

import (
	"fmt"

	"sketch-sprite/internal/config"
	"sketch-sprite/internal/logger"
	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/processing/chain"
	"sketch-sprite/internal/processing/filters"
)

// PostProcessor produces the flat, canonically sized raster consumed by the
// stat-inference service. Flattening and resizing are required; contrast
// and line-art enhancement are best-effort and skipped on failure.
type PostProcessor struct {
	chain *chain.ProcessingChain
}

func NewPostProcessor(output config.OutputConfig, enhancement config.EnhancementConfig, log logger.Logger) *PostProcessor {
	pc := chain.NewProcessingChain(log).
		AddStep(filters.NewFlattenFilter()).
		AddStep(filters.NewResizeFilter(output.TargetWidth, output.TargetHeight)).
		AddBestEffortStep(filters.NewCLAHEFilter(enhancement.ClaheClipLimit, enhancement.ClaheTileSize)).
		AddBestEffortStep(filters.NewLineArtFilter(enhancement.LineArtBlockSize, enhancement.LineArtC, enhancement.LineArtWeight))

	return &PostProcessor{chain: pc}
}

// Process never modifies img and returns a new BGR Mat.
func (p *PostProcessor) Process(img *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(img, "preprocess"); err != nil {
		return nil, err
	}

	out, err := p.chain.Execute(img)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	return out, nil
}

func (p *PostProcessor) Steps() []string {
	return p.chain.GetStepNames()
}
