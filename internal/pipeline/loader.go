package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sketch-sprite/internal/logger"
	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"
	"sketch-sprite/internal/processing/filters"

	"gocv.io/x/gocv"
)

// LoadedImage is a decoded input normalised to 8-bit BGR.
type LoadedImage struct {
	Mat            *safe.Mat
	Path           string
	Format         string
	Width          int
	Height         int
	SourceChannels int
	SizeBytes      int
}

func (li *LoadedImage) Close() {
	if li != nil {
		li.Mat.Close()
	}
}

type Loader struct {
	logger logger.Logger
}

func NewLoader(log logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{logger: log}
}

// Load decodes path into BGR. Transparent pixels are composited onto white
// and grayscale inputs are expanded. Corrupt or unsupported data yields a
// decode error and nil.
func (l *Loader) Load(path string) (*LoadedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, l.fail(path, err)
	}

	return l.LoadFromBytes(data, path)
}

// LoadFromBytes decodes an in-memory file; path is used for the format
// label and for error reporting.
func (l *Loader) LoadFromBytes(data []byte, path string) (*LoadedImage, error) {
	l.logger.Debug("ImageLoader", "decoding image", map[string]interface{}{
		"path":       path,
		"size_bytes": len(data),
	})

	if len(data) == 0 {
		return nil, l.fail(path, fmt.Errorf("file is empty"))
	}

	decoded, err := l.decode(data)
	if err != nil {
		return nil, l.fail(path, err)
	}
	defer decoded.Close()

	sourceChannels := decoded.Channels()

	var bgr *safe.Mat
	switch sourceChannels {
	case 4:
		bgr, err = filters.FlattenOnWhite(decoded)
	default:
		bgr, err = conversion.ToBGR(decoded)
	}
	if err != nil {
		return nil, l.fail(path, fmt.Errorf("normalise to BGR: %w", err))
	}

	loaded := &LoadedImage{
		Mat:            bgr,
		Path:           path,
		Format:         formatFromExtension(filepath.Ext(path)),
		Width:          bgr.Cols(),
		Height:         bgr.Rows(),
		SourceChannels: sourceChannels,
		SizeBytes:      len(data),
	}

	l.logger.Info("ImageLoader", "image loaded", map[string]interface{}{
		"path":     path,
		"width":    loaded.Width,
		"height":   loaded.Height,
		"channels": sourceChannels,
		"format":   loaded.Format,
	})

	return loaded, nil
}

// decode keeps an alpha channel when present. Deeper inputs are scaled down
// to 8 bits with their channels intact, so 16-bit RGBA keeps transparency.
func (l *Loader) decode(data []byte) (*safe.Mat, error) {
	raw, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, err
	}
	if raw.Empty() {
		raw.Close()
		return nil, fmt.Errorf("unrecognised or corrupt image data")
	}

	switch raw.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return safe.Adopt(raw, "decoded")
	}

	if target, scale, ok := eightBitEquivalent(raw.Type()); ok {
		defer raw.Close()
		scaled := gocv.NewMat()
		if err := raw.ConvertToWithParams(&scaled, target, scale, 0); err != nil {
			scaled.Close()
			return nil, fmt.Errorf("scale to 8 bits: %w", err)
		}
		return safe.Adopt(scaled, "decoded_8bit")
	}
	raw.Close()

	color, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, err
	}
	return safe.Adopt(color, "decoded_color")
}

// eightBitEquivalent maps 16-bit and float rasters onto 8-bit types with the
// same channel count.
func eightBitEquivalent(t gocv.MatType) (gocv.MatType, float32, bool) {
	switch t {
	case gocv.MatTypeCV16UC1:
		return gocv.MatTypeCV8UC1, 1.0 / 257, true
	case gocv.MatTypeCV16UC3:
		return gocv.MatTypeCV8UC3, 1.0 / 257, true
	case gocv.MatTypeCV16UC4:
		return gocv.MatTypeCV8UC4, 1.0 / 257, true
	case gocv.MatTypeCV32FC1:
		return gocv.MatTypeCV8UC1, 255, true
	case gocv.MatTypeCV32FC3:
		return gocv.MatTypeCV8UC3, 255, true
	case gocv.MatTypeCV32FC4:
		return gocv.MatTypeCV8UC4, 255, true
	default:
		return 0, 0, false
	}
}

func (l *Loader) fail(path string, err error) error {
	decodeErr := models.NewDecodeError(path, err)
	l.logger.Error("ImageLoader", decodeErr, map[string]interface{}{
		"path": path,
	})
	return decodeErr
}

func formatFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	default:
		return "unknown"
	}
}
