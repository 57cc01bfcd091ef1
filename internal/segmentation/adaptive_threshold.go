package segmentation

import (
	"fmt"
	"math"

	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/processing/filters"
	"sketch-sprite/internal/processing/mask"

	"gocv.io/x/gocv"
)

// nonWhiteCutoff makes every pixel darker than pure white foreground.
const nonWhiteCutoff = 254

// AdaptiveThreshold is the terminal strategy. It inverse-thresholds the
// grayscale image at each candidate cutoff and keeps the mask whose
// foreground ratio is closest to one half. It has no acceptance criterion.
type AdaptiveThreshold struct {
	params ThresholdParams
}

func NewAdaptiveThreshold(params ThresholdParams) *AdaptiveThreshold {
	return &AdaptiveThreshold{params: params}
}

func (s *AdaptiveThreshold) Name() models.StrategyName {
	return models.StrategyAdaptiveThreshold
}

// Score rates a foreground ratio; zero foreground is never scored.
func Score(ratio float64) (float64, bool) {
	if ratio <= 0 {
		return 0, false
	}
	return 1 - math.Abs(ratio-0.5), true
}

func (s *AdaptiveThreshold) Extract(img *safe.Mat) Outcome {
	gray, err := conversion.ConvertToGrayscale(img)
	if err != nil {
		return Rejected(fmt.Sprintf("grayscale: %v", err), models.QualityMetrics{})
	}
	defer gray.Close()

	var best *safe.Mat
	bestCutoff, bestScore, bestRatio := 0, -1.0, 0.0

	for _, cutoff := range s.params.Candidates {
		candidate, err := s.threshold(gray, cutoff)
		if err != nil {
			continue
		}

		ratio := mask.ForegroundRatio(candidate)
		score, ok := Score(ratio)
		if !ok || score <= bestScore {
			candidate.Close()
			continue
		}

		best.Close()
		best, bestCutoff, bestScore, bestRatio = candidate, cutoff, score, ratio
	}

	if best == nil {
		fallback, err := s.threshold(gray, s.params.Default)
		if err != nil {
			return Rejected(fmt.Sprintf("default cutoff %d: %v", s.params.Default, err), models.QualityMetrics{})
		}
		ratio := mask.ForegroundRatio(fallback)
		reason := fmt.Sprintf("no candidate scored, default cutoff %d", s.params.Default)

		// Opening erases strokes thinner than the kernel; keep any ink that
		// is there rather than return an empty mask.
		if ratio == 0 {
			if raw, err := binaryInverse(gray, nonWhiteCutoff); err == nil {
				if rawRatio := mask.ForegroundRatio(raw); rawRatio > 0 {
					fallback.Close()
					fallback, ratio = raw, rawRatio
					reason += ", unfiltered ink"
				} else {
					raw.Close()
				}
			}
		}
		return Accepted(fallback, ratioOnly(ratio), reason)
	}

	return Accepted(best, ratioOnly(bestRatio), fmt.Sprintf("cutoff %d score %.3f", bestCutoff, bestScore))
}

func (s *AdaptiveThreshold) threshold(gray *safe.Mat, cutoff int) (*safe.Mat, error) {
	binary, err := binaryInverse(gray, cutoff)
	if err != nil {
		return nil, err
	}
	defer binary.Close()

	return filters.ApplyMorphology(binary, filters.Close(s.params.Kernel), filters.Open(s.params.Kernel))
}

// binaryInverse marks every pixel at or below cutoff as foreground.
func binaryInverse(gray *safe.Mat, cutoff int) (*safe.Mat, error) {
	binary, err := safe.NewMatWithTag(gray.Rows(), gray.Cols(), gocv.MatTypeCV8UC1, "threshold")
	if err != nil {
		return nil, err
	}
	gocv.Threshold(gray.GetMat(), binary.Ptr(), float32(cutoff), 255, gocv.ThresholdBinaryInv)
	return binary, nil
}
