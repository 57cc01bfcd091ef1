package services

import (
	"fmt"

	"sketch-sprite/internal/opencv/conversion"
	"sketch-sprite/internal/opencv/safe"

	"github.com/nfnt/resize"
)

// writeThumbnail scales the sprite to fit ThumbnailSize on its longer side,
// keeping aspect ratio and transparency.
func (p *ImageProcessor) writeThumbnail(sprite *safe.Mat, path string) (string, error) {
	if err := safe.ValidateColorImage(sprite, "thumbnail"); err != nil {
		return "", err
	}

	img, err := conversion.MatToImage(sprite)
	if err != nil {
		return "", fmt.Errorf("thumbnail source: %w", err)
	}

	size := p.cfg.Output.ThumbnailSize
	thumb := resize.Thumbnail(size, size, img, resize.Lanczos3)

	return p.saver.SaveImage(thumb, path)
}
