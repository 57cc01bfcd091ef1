package pipeline

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"sketch-sprite/internal/logger"
	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const jpegQuality = 95

type Saver struct {
	logger logger.Logger
}

func NewSaver(log logger.Logger) *Saver {
	if log == nil {
		log = logger.Nop()
	}
	return &Saver{logger: log}
}

// Save writes img to path and returns the path actually written. Images
// with an alpha channel are always PNG; the extension is rewritten when it
// says otherwise. Without alpha the format follows the extension, and
// unknown extensions fall back to PNG.
func (s *Saver) Save(img *safe.Mat, path string) (string, error) {
	if err := safe.ValidateMatForOperation(img, "save"); err != nil {
		return "", models.NewPersistenceError(path, err)
	}

	target, format := resolveTarget(path, img.Channels() == 4)
	if target != path {
		s.logger.Warning("ImageSaver", "extension adjusted to match output format", map[string]interface{}{
			"requested": path,
			"written":   target,
			"format":    format,
		})
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", s.fail(target, err)
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return "", s.fail(target, fmt.Errorf("target is a directory"))
	}

	s.logger.Debug("ImageSaver", "saving image", map[string]interface{}{
		"path":     target,
		"format":   format,
		"width":    img.Cols(),
		"height":   img.Rows(),
		"channels": img.Channels(),
	})

	var ok bool
	if format == "jpeg" {
		ok = gocv.IMWriteWithParams(target, img.GetMat(), []int{int(gocv.IMWriteJpegQuality), jpegQuality})
	} else {
		ok = gocv.IMWrite(target, img.GetMat())
	}
	if !ok {
		return "", s.fail(target, fmt.Errorf("encoder rejected %s output", format))
	}

	s.logger.Info("ImageSaver", "image saved", map[string]interface{}{
		"path":   target,
		"format": format,
	})

	return target, nil
}

// SaveImage writes a Go image through the same rules as Save.
func (s *Saver) SaveImage(img image.Image, path string) (string, error) {
	mat, err := conversion.ImageToMat(img)
	if err != nil {
		return "", models.NewPersistenceError(path, err)
	}
	defer mat.Close()

	return s.Save(mat, path)
}

func (s *Saver) fail(path string, err error) error {
	persistErr := models.NewPersistenceError(path, err)
	s.logger.Error("ImageSaver", persistErr, map[string]interface{}{
		"path": path,
	})
	return persistErr
}

func resolveTarget(path string, hasAlpha bool) (string, string) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	if hasAlpha {
		if strings.EqualFold(ext, ".png") {
			return path, "png"
		}
		return base + ".png", "png"
	}

	switch strings.ToLower(ext) {
	case ".png":
		return path, "png"
	case ".jpg", ".jpeg":
		return path, "jpeg"
	case ".bmp":
		return path, "bmp"
	default:
		return base + ".png", "png"
	}
}
