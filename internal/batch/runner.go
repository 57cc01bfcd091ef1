package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"sketch-sprite/internal/config"
	"sketch-sprite/internal/logger"
	"sketch-sprite/internal/models"
	"sketch-sprite/internal/pipeline"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Processor is the single-image entry point a batch drives.
type Processor interface {
	ProcessCharacterImage(inputPath, outputDir, name string) *models.ProcessResult
}

// Report is the outcome of one batch run. Results keep directory order and
// omit files that were never started because the run was cancelled.
type Report struct {
	RunID    string                  `json:"run_id"`
	Results  []*models.ProcessResult `json:"results"`
	Summary  Summary                 `json:"summary"`
	Started  time.Time               `json:"started"`
	Duration time.Duration           `json:"duration"`
}

type Runner struct {
	proc    Processor
	input   config.InputConfig
	workers int
	logger  logger.Logger
}

func NewRunner(proc Processor, input config.InputConfig, workers int, log logger.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{proc: proc, input: input, workers: workers, logger: log}
}

// Run processes every supported file directly inside inputDir with up to
// workers images in flight. A failed image never stops the batch; only
// cancelling ctx does, in which case the partial report is returned along
// with ctx.Err().
func (r *Runner) Run(ctx context.Context, inputDir, outputDir string) (*Report, error) {
	files, err := r.Collect(inputDir)
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString(), Started: time.Now()}
	fields := map[string]interface{}{
		"run_id":  report.RunID,
		"input":   inputDir,
		"output":  outputDir,
		"files":   len(files),
		"workers": r.workers,
	}
	r.logger.Info("BatchRunner", "batch started", fields)

	results := make([]*models.ProcessResult, len(files))
	names := pipeline.NewNamer().Assign(files)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.proc.ProcessCharacterImage(path, outputDir, names[i])
			return nil
		})
	}

	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	for _, res := range results {
		if res != nil {
			report.Results = append(report.Results, res)
		}
	}
	report.Summary = Summarize(report.Results)
	report.Duration = time.Since(report.Started)

	fields["succeeded"] = report.Summary.Succeeded
	fields["failed"] = report.Summary.Failed
	fields["duration"] = report.Duration.String()
	if runErr != nil {
		fields["error"] = runErr.Error()
		r.logger.Warning("BatchRunner", "batch interrupted", fields)
		return report, runErr
	}
	r.logger.Info("BatchRunner", "batch finished", fields)

	return report, nil
}

// Collect lists supported image files directly inside dir, sorted by name.
func (r *Runner) Collect(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !r.input.IsSupportedExtension(filepath.Ext(e.Name())) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	return files, nil
}
