package pipeline

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"sketch-sprite/internal/config"
	"sketch-sprite/internal/models"

	_ "golang.org/x/image/bmp"
)

// Validator performs the cheap checks that must pass before any pixel data
// is decoded: existence, extension allow-list and minimum resolution.
type Validator struct {
	input config.InputConfig
}

func NewValidator(input config.InputConfig) *Validator {
	return &Validator{input: input}
}

// Validate returns nil or a *models.ProcessingError whose Reason is suitable
// for showing to a user.
func (v *Validator) Validate(path string) error {
	if strings.TrimSpace(path) == "" {
		return models.NewValidationError(path, "no file given")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewValidationError(path, "file does not exist")
		}
		return &models.ProcessingError{Kind: models.ErrorKindValidation, Op: "validate", Path: path, Reason: "cannot stat file", Err: err}
	}
	if info.IsDir() {
		return models.NewValidationError(path, "path is a directory")
	}

	ext := filepath.Ext(path)
	if !v.input.IsSupportedExtension(ext) {
		return models.NewValidationError(path, fmt.Sprintf("unsupported file extension %q (supported: %s)",
			ext, strings.Join(v.input.SupportedFormats, ", ")))
	}

	width, height, err := Dimensions(path)
	if err != nil {
		return &models.ProcessingError{Kind: models.ErrorKindDecode, Op: "validate", Path: path, Reason: "cannot read image header", Err: err}
	}

	if width < v.input.MinWidth || height < v.input.MinHeight {
		return models.NewValidationError(path, fmt.Sprintf("image too small: %dx%d (minimum %dx%d)",
			width, height, v.input.MinWidth, v.input.MinHeight))
	}

	return nil
}

// Dimensions reads only the image header.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
