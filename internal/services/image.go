package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sketch-sprite/internal/config"
	"sketch-sprite/internal/logger"
	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/pipeline"
	"sketch-sprite/internal/segmentation"
	"sketch-sprite/internal/timing"
)

const component = "ImageProcessor"

// ImageProcessor turns a character drawing into a transparent sprite and a
// normalised raster. Each instance owns its configuration; instances share
// nothing and may run concurrently on different images.
type ImageProcessor struct {
	cfg       *config.Config
	logger    logger.Logger
	validator *pipeline.Validator
	loader    *pipeline.Loader
	cascade   *segmentation.Cascade
	post      *pipeline.PostProcessor
	saver     *pipeline.Saver
	timings   *timing.Tracker
}

// NewImageProcessor validates cfg and wires the pipeline stages. A nil cfg
// means defaults; a nil log discards output.
func NewImageProcessor(cfg *config.Config, log logger.Logger) (*ImageProcessor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	p := &ImageProcessor{
		cfg:       cfg,
		logger:    log,
		validator: pipeline.NewValidator(cfg.Input),
		loader:    pipeline.NewLoader(log),
		cascade:   segmentation.NewCascade(segmentation.ParamsFromConfig(cfg.Extraction), log),
		post:      pipeline.NewPostProcessor(cfg.Output, cfg.Enhancement, log),
		saver:     pipeline.NewSaver(log),
		timings:   timing.NewTracker(),
	}

	log.Debug(component, "processor ready", map[string]interface{}{
		"strategies": p.cascade.Names(),
		"post_steps": p.post.Steps(),
	})
	return p, nil
}

// Timings holds per-stage durations of every ProcessCharacterImage call made
// through this processor.
func (p *ImageProcessor) Timings() *timing.Tracker {
	return p.timings
}

// Validate reports whether path can enter the pipeline and, if not, why.
func (p *ImageProcessor) Validate(path string) (bool, string) {
	if err := p.validator.Validate(path); err != nil {
		return false, reasonOf(err)
	}
	return true, "ok"
}

// Load decodes path into a BGR raster. On failure it logs and returns nil
// together with a decode error.
func (p *ImageProcessor) Load(path string) (*safe.Mat, error) {
	loaded, err := p.loader.Load(path)
	if err != nil {
		return nil, err
	}
	return loaded.Mat, nil
}

// ExtractCharacter runs the strategy cascade. For a valid BGR raster the
// result is never nil.
func (p *ImageProcessor) ExtractCharacter(img *safe.Mat) (*models.ExtractionResult, error) {
	result, err := p.cascade.Extract(img)
	if err != nil {
		return nil, &models.ProcessingError{Kind: models.ErrorKindSegmentation, Op: "extract", Reason: "segmentation failed", Err: err}
	}

	p.logger.Info(component, "character extracted", map[string]interface{}{
		"strategy": string(result.Strategy),
		"metrics":  result.Metrics.String(),
		"attempts": len(result.Attempts),
	})

	return result, nil
}

// Preprocess flattens, resizes and enhances img for the stat-inference
// service.
func (p *ImageProcessor) Preprocess(img *safe.Mat) (*safe.Mat, error) {
	out, err := p.post.Process(img)
	if err != nil {
		return nil, &models.ProcessingError{Kind: models.ErrorKindEnhancement, Op: "preprocess", Reason: "normalisation failed", Err: err}
	}
	return out, nil
}

// Save writes img to path and returns the path actually written, which
// differs from path only when transparency forces PNG.
func (p *ImageProcessor) Save(img *safe.Mat, path string) (string, error) {
	return p.saver.Save(img, path)
}

// ProcessCharacterImage is the single entry point for the surrounding
// application: validate, load, extract, save the sprite, then write the
// normalised raster and optional thumbnail. It never panics or returns an
// error; failures are described by the result.
func (p *ImageProcessor) ProcessCharacterImage(inputPath, outputDir, name string) (result *models.ProcessResult) {
	start := time.Now()
	fields := map[string]interface{}{"input": inputPath}
	sw := p.timings.Stopwatch()

	defer func() {
		if r := recover(); r != nil {
			err := &models.ProcessingError{Kind: models.ErrorKindUnknown, Op: "process", Path: inputPath, Reason: fmt.Sprintf("internal failure: %v", r)}
			p.logger.Error(component, err, fields)
			result = models.Failed(inputPath, err, time.Since(start))
		}
	}()

	fail := func(err error) *models.ProcessResult {
		fields := map[string]interface{}{
			"input": inputPath,
			"kind":  string(models.KindOf(err)),
			"error": err.Error(),
		}
		if models.IsKind(err, models.ErrorKindValidation) {
			p.logger.Info(component, "character image rejected", fields)
		} else {
			p.logger.Warning(component, "character processing failed", fields)
		}
		res := models.Failed(inputPath, err, time.Since(start))
		res.Message = reasonOf(err)
		res.Stages = sw.Stages()
		return res
	}

	stop := sw.Start("validate")
	err := p.validator.Validate(inputPath)
	stop()
	if err != nil {
		return fail(err)
	}

	stop = sw.Start("load")
	loaded, err := p.loader.Load(inputPath)
	stop()
	if err != nil {
		return fail(err)
	}
	defer loaded.Close()

	stop = sw.Start("extract")
	extraction, err := p.ExtractCharacter(loaded.Mat)
	stop()
	if err != nil {
		return fail(err)
	}
	defer extraction.Close()

	stem := pipeline.OutputName(name, inputPath)
	out := p.cfg.Output

	stop = sw.Start("save")
	spritePath, err := p.saver.Save(extraction.Image, filepath.Join(outputDir, stem+out.SpriteSuffix+".png"))
	stop()
	if err != nil {
		return fail(err)
	}

	res := &models.ProcessResult{
		Success:    true,
		InputPath:  inputPath,
		SpritePath: spritePath,
		Strategy:   extraction.Strategy,
		Metrics:    extraction.Metrics,
		Attempts:   extraction.Attempts,
	}

	if out.WriteNormalized {
		stop = sw.Start("preprocess")
		normalizedPath, err := p.writeNormalized(loaded.Mat, filepath.Join(outputDir, stem+out.NormalizedSuffix+".png"))
		stop()
		if err != nil {
			p.discard(spritePath)
			return fail(err)
		}
		res.NormalizedPath = normalizedPath
	}

	if out.ThumbnailSize > 0 {
		stop = sw.Start("thumbnail")
		thumbPath, err := p.writeThumbnail(extraction.Image, filepath.Join(outputDir, stem+out.ThumbnailSuffix+".png"))
		stop()
		if err != nil {
			p.logger.Warning(component, "thumbnail skipped", map[string]interface{}{
				"input": inputPath,
				"error": err.Error(),
			})
		} else {
			res.ThumbnailPath = thumbPath
		}
	}

	res.Duration = time.Since(start)
	res.Stages = sw.Stages()
	res.Message = fmt.Sprintf("character extracted with %s strategy", extraction.Strategy)

	p.logger.Info(component, "character processed", map[string]interface{}{
		"input":    inputPath,
		"sprite":   spritePath,
		"strategy": string(extraction.Strategy),
		"duration": res.Duration.String(),
	})

	return res
}

func (p *ImageProcessor) writeNormalized(img *safe.Mat, path string) (string, error) {
	normalized, err := p.Preprocess(img)
	if err != nil {
		return "", err
	}
	defer normalized.Close()

	return p.saver.Save(normalized, path)
}

// discard removes an output of a run that failed later on, so a failed
// result never leaves a partial set of files behind.
func (p *ImageProcessor) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warning(component, "failed to remove partial output", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

func reasonOf(err error) string {
	var pe *models.ProcessingError
	if errors.As(err, &pe) && pe.Reason != "" {
		if pe.Err != nil {
			return fmt.Sprintf("%s: %v", pe.Reason, pe.Err)
		}
		return pe.Reason
	}
	return err.Error()
}
