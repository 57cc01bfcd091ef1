package segmentation

import (
	"fmt"
	"time"

	"sketch-sprite/internal/logger"
	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Cascade tries strategies in order until one accepts. The last strategy is
// terminal: its outcome is used whether or not it accepts, and if it cannot
// produce a mask at all the whole frame becomes foreground.
type Cascade struct {
	strategies []Strategy
	logger     logger.Logger
}

// NewCascade builds the standard order: white background, GrabCut, edge
// contour, adaptive threshold.
func NewCascade(params Params, log logger.Logger) *Cascade {
	return NewCascadeWithStrategies(log,
		NewWhiteBackground(params.Color, params.Quality),
		NewGrabCut(params.GrabCut),
		NewEdgeContour(params.Contour),
		NewAdaptiveThreshold(params.Threshold),
	)
}

func NewCascadeWithStrategies(log logger.Logger, strategies ...Strategy) *Cascade {
	if log == nil {
		log = logger.Nop()
	}
	return &Cascade{strategies: strategies, logger: log}
}

func (c *Cascade) Names() []models.StrategyName {
	names := make([]models.StrategyName, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Extract segments a BGR image. For valid input the result is never nil; an
// error means the input itself was unusable or a native allocation failed.
func (c *Cascade) Extract(img *safe.Mat) (*models.ExtractionResult, error) {
	if err := safe.ValidateBGR(img, "character extraction"); err != nil {
		return nil, err
	}
	if len(c.strategies) == 0 {
		return nil, fmt.Errorf("cascade has no strategies")
	}

	attempts := make([]models.Attempt, 0, len(c.strategies))

	for i, strategy := range c.strategies {
		terminal := i == len(c.strategies)-1
		start := time.Now()
		outcome := run(strategy, img)

		attempts = append(attempts, models.Attempt{
			Strategy: strategy.Name(),
			Accepted: outcome.IsAccepted(),
			Reason:   outcome.Reason,
			Metrics:  outcome.Metrics,
		})

		fields := map[string]interface{}{
			"strategy": string(strategy.Name()),
			"metrics":  outcome.Metrics.String(),
			"elapsed":  time.Since(start).String(),
		}

		if outcome.IsAccepted() {
			c.logger.Debug("Cascade", "strategy accepted", fields)
			return c.finish(img, outcome.Mask, strategy.Name(), outcome.Metrics, attempts)
		}

		fields["reason"] = outcome.Reason
		c.logger.Info("Cascade", "strategy rejected", fields)

		if terminal {
			c.logger.Warning("Cascade", "terminal strategy produced no mask, using full frame", fields)
			full, err := safe.NewMatFromScalar(gocv.NewScalar(255, 0, 0, 0), img.Rows(), img.Cols(), gocv.MatTypeCV8UC1, "full_frame")
			if err != nil {
				return nil, fmt.Errorf("full frame mask: %w", err)
			}
			return c.finish(img, full, strategy.Name(), models.QualityMetrics{ForegroundRatio: 1}, attempts)
		}
	}

	return nil, fmt.Errorf("cascade ended without a terminal strategy")
}

func (c *Cascade) finish(img, mask *safe.Mat, name models.StrategyName, metrics models.QualityMetrics, attempts []models.Attempt) (*models.ExtractionResult, error) {
	bgra, err := conversion.AttachAlpha(img, mask)
	if err != nil {
		mask.Close()
		return nil, fmt.Errorf("attach alpha: %w", err)
	}

	return &models.ExtractionResult{
		Image:    bgra,
		Mask:     mask,
		Strategy: name,
		Metrics:  metrics,
		Attempts: attempts,
	}, nil
}

// run shields the cascade from strategy panics and from accepted outcomes
// whose mask does not match the image.
func run(strategy Strategy, img *safe.Mat) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome.Mask.Close()
			outcome = Rejected(fmt.Sprintf("panic: %v", r), models.QualityMetrics{})
		}
	}()

	outcome = strategy.Extract(img)
	if !outcome.IsAccepted() {
		return outcome
	}

	if err := safe.ValidateMask(outcome.Mask, "strategy output"); err != nil {
		outcome.Mask.Close()
		return Rejected(err.Error(), outcome.Metrics)
	}
	if err := safe.ValidateSameSize(outcome.Mask, img, "strategy output"); err != nil {
		outcome.Mask.Close()
		return Rejected(err.Error(), outcome.Metrics)
	}

	return outcome
}
