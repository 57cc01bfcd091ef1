package batch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sketch-sprite/internal/models"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a set of results. Foreground statistics cover
// successful results only.
type Summary struct {
	Total            int                         `json:"total"`
	Succeeded        int                         `json:"succeeded"`
	Failed           int                         `json:"failed"`
	ByStrategy       map[models.StrategyName]int `json:"by_strategy"`
	ByErrorKind      map[models.ErrorKind]int    `json:"by_error_kind"`
	ForegroundMean   float64                     `json:"foreground_mean"`
	ForegroundStdDev float64                     `json:"foreground_stddev"`
	MeanDuration     time.Duration               `json:"mean_duration"`
}

func Summarize(results []*models.ProcessResult) Summary {
	s := Summary{
		ByStrategy:  make(map[models.StrategyName]int),
		ByErrorKind: make(map[models.ErrorKind]int),
	}

	var ratios, durations []float64
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Total++
		durations = append(durations, float64(r.Duration))

		if !r.Success {
			s.Failed++
			s.ByErrorKind[r.ErrorKind]++
			continue
		}
		s.Succeeded++
		s.ByStrategy[r.Strategy]++
		ratios = append(ratios, r.Metrics.ForegroundRatio)
	}

	switch len(ratios) {
	case 0:
	case 1:
		s.ForegroundMean = ratios[0]
	default:
		s.ForegroundMean, s.ForegroundStdDev = stat.MeanStdDev(ratios, nil)
	}
	if len(durations) > 0 {
		s.MeanDuration = time.Duration(stat.Mean(durations, nil))
	}

	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d processed, %d succeeded, %d failed", s.Total, s.Succeeded, s.Failed)

	if len(s.ByStrategy) > 0 {
		names := make([]string, 0, len(s.ByStrategy))
		for name := range s.ByStrategy {
			names = append(names, string(name))
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s=%d", name, s.ByStrategy[models.StrategyName(name)])
		}
		fmt.Fprintf(&b, "; strategies: %s", strings.Join(parts, " "))
		fmt.Fprintf(&b, "; foreground %.3f±%.3f", s.ForegroundMean, s.ForegroundStdDev)
	}

	return b.String()
}
