package models

import "time"

// ProcessResult is what ProcessCharacterImage hands back to the surrounding
// application. It never carries a Go error across that boundary; failures are
// reported through Success and Message.
type ProcessResult struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	InputPath      string         `json:"input_path"`
	SpritePath     string         `json:"sprite_path,omitempty"`
	NormalizedPath string         `json:"normalized_path,omitempty"`
	ThumbnailPath  string         `json:"thumbnail_path,omitempty"`
	Strategy       StrategyName   `json:"strategy,omitempty"`
	Metrics        QualityMetrics `json:"metrics"`
	Attempts       []Attempt      `json:"attempts,omitempty"`
	Duration       time.Duration  `json:"duration"`
	// Stages maps pipeline stage names (validate, load, extract, save,
	// preprocess, thumbnail) to time spent; stages never reached are absent.
	Stages    map[string]time.Duration `json:"stages,omitempty"`
	ErrorKind ErrorKind                `json:"error_kind,omitempty"`
}

// Failed builds an unsuccessful result from err.
func Failed(inputPath string, err error, elapsed time.Duration) *ProcessResult {
	return &ProcessResult{
		Success:   false,
		Message:   err.Error(),
		InputPath: inputPath,
		Duration:  elapsed,
		ErrorKind: KindOf(err),
	}
}
