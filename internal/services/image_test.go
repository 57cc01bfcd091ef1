package services

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sketch-sprite/internal/config"
	"sketch-sprite/internal/logger"
	"sketch-sprite/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var pencil = color.RGBA{R: 60, G: 60, B: 60, A: 255}

// drawSketch writes a 300x300 pencil character on white paper.
func drawSketch(t *testing.T, dir string) string {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(250, 250, 250, 0), 300, 300, gocv.MatTypeCV8UC3)
	defer img.Close()

	gocv.Circle(&img, image.Pt(150, 80), 30, pencil, -1)
	gocv.Rectangle(&img, image.Rect(125, 110, 175, 200), pencil, -1)
	gocv.Line(&img, image.Pt(125, 125), image.Pt(85, 175), pencil, 5)
	gocv.Line(&img, image.Pt(175, 125), image.Pt(215, 175), pencil, 5)
	gocv.Line(&img, image.Pt(140, 200), image.Pt(125, 265), pencil, 5)
	gocv.Line(&img, image.Pt(160, 200), image.Pt(175, 265), pencil, 5)

	path := filepath.Join(dir, "hero drawing.png")
	require.True(t, gocv.IMWrite(path, img))
	return path
}

func writeSolid(t *testing.T, dir, name string, size int, v float64) string {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), size, size, gocv.MatTypeCV8UC3)
	defer img.Close()
	path := filepath.Join(dir, name)
	require.True(t, gocv.IMWrite(path, img))
	return path
}

func newProcessor(t *testing.T, mutate func(*config.Config)) *ImageProcessor {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	p, err := NewImageProcessor(cfg, nil)
	require.NoError(t, err)
	return p
}

func TestProcessCharacterImage_WhiteBackgroundSketch(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	input := drawSketch(t, in)

	res := newProcessor(t, nil).ProcessCharacterImage(input, out, "hero")

	require.True(t, res.Success, res.Message)
	assert.True(t, strings.HasSuffix(res.SpritePath, "_sprite.png"))
	assert.Equal(t, filepath.Join(out, "hero_sprite.png"), res.SpritePath)
	assert.Contains(t, res.Message, "white_background")
	assert.Equal(t, models.StrategyWhiteBackground, res.Strategy)

	sprite := gocv.IMRead(res.SpritePath, gocv.IMReadUnchanged)
	defer sprite.Close()
	require.False(t, sprite.Empty())
	assert.Equal(t, 4, sprite.Channels(), "sprite keeps an alpha channel")
	assert.Equal(t, 300, sprite.Rows())
	assert.Equal(t, uint8(0), sprite.GetVecbAt(5, 5)[3], "background is transparent")
	assert.Equal(t, uint8(255), sprite.GetVecbAt(80, 150)[3], "head is opaque")

	require.NotEmpty(t, res.NormalizedPath)
	normalized := gocv.IMRead(res.NormalizedPath, gocv.IMReadUnchanged)
	defer normalized.Close()
	assert.Equal(t, 512, normalized.Rows())
	assert.Equal(t, 512, normalized.Cols())
	assert.Equal(t, 3, normalized.Channels())

	assert.Empty(t, res.ThumbnailPath)

	for _, stage := range []string{"validate", "load", "extract", "save", "preprocess"} {
		assert.Contains(t, res.Stages, stage)
	}
}

func TestProcessCharacterImage_TooSmallShortCircuits(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	input := writeSolid(t, in, "tiny.png", 50, 255)

	p := newProcessor(t, nil)

	ok, reason := p.Validate(input)
	assert.False(t, ok)
	assert.Contains(t, reason, "too small")

	res := p.ProcessCharacterImage(input, out, "tiny")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "too small")
	assert.Empty(t, res.SpritePath)
	assert.Equal(t, models.ErrorKindValidation, res.ErrorKind)
	assert.Empty(t, res.Attempts, "extraction never ran")
	assert.Contains(t, res.Stages, "validate")
	assert.NotContains(t, res.Stages, "extract")
	assert.Len(t, p.Timings().Timings("validate"), 1, "only the pipeline run is timed")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessCharacterImage_BlackImageStillSucceeds(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	input := writeSolid(t, in, "night.png", 300, 0)

	res := newProcessor(t, func(c *config.Config) { c.Output.WriteNormalized = false }).
		ProcessCharacterImage(input, out, "night")

	require.True(t, res.Success, res.Message)
	assert.NotEqual(t, models.StrategyWhiteBackground, res.Strategy)
	require.NotEmpty(t, res.Attempts)
	assert.False(t, res.Attempts[0].Accepted)
	assert.Empty(t, res.NormalizedPath)
}

func TestProcessCharacterImage_Thumbnail(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	input := drawSketch(t, in)

	res := newProcessor(t, func(c *config.Config) { c.Output.ThumbnailSize = 64 }).
		ProcessCharacterImage(input, out, "")

	require.True(t, res.Success, res.Message)
	assert.Equal(t, filepath.Join(out, "hero_drawing_sprite.png"), res.SpritePath)
	require.NotEmpty(t, res.ThumbnailPath)

	thumb := gocv.IMRead(res.ThumbnailPath, gocv.IMReadUnchanged)
	defer thumb.Close()
	assert.LessOrEqual(t, thumb.Rows(), 64)
	assert.LessOrEqual(t, thumb.Cols(), 64)
}

func TestProcessCharacterImage_MissingFile(t *testing.T) {
	res := newProcessor(t, nil).ProcessCharacterImage(filepath.Join(t.TempDir(), "ghost.png"), t.TempDir(), "ghost")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "does not exist")
}

func TestProcessCharacterImage_UnwritableOutput(t *testing.T) {
	in := t.TempDir()
	input := drawSketch(t, in)
	blocker := filepath.Join(in, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	res := newProcessor(t, nil).ProcessCharacterImage(input, blocker, "hero")
	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorKindPersistence, res.ErrorKind)
	assert.Empty(t, res.SpritePath)
}

func TestProcessCharacterImage_NormalizedFailureLeavesNoSprite(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	input := drawSketch(t, in)
	require.NoError(t, os.Mkdir(filepath.Join(out, "hero_normalized.png"), 0o755))

	res := newProcessor(t, nil).ProcessCharacterImage(input, out, "hero")

	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorKindPersistence, res.ErrorKind)
	assert.Empty(t, res.SpritePath)
	assert.NoFileExists(t, filepath.Join(out, "hero_sprite.png"))
}

func TestLoad_CorruptReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	img, err := newProcessor(t, nil).Load(path)
	assert.Nil(t, img)
	assert.True(t, models.IsKind(err, models.ErrorKindDecode))
}

func TestExtractAndPreprocess(t *testing.T) {
	p := newProcessor(t, nil)
	img, err := p.Load(drawSketch(t, t.TempDir()))
	require.NoError(t, err)
	defer img.Close()

	result, err := p.ExtractCharacter(img)
	require.NoError(t, err)
	defer result.Close()
	assert.Equal(t, img.Size(), result.Mask.Size())
	assert.Equal(t, 4, result.Image.Channels())

	normalized, err := p.Preprocess(result.Image)
	require.NoError(t, err)
	defer normalized.Close()
	assert.Equal(t, image.Point{X: 512, Y: 512}, normalized.Size())

	again, err := p.Preprocess(normalized)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, normalized.Size(), again.Size())
}

func TestNewImageProcessor_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.TargetWidth = 0

	_, err := NewImageProcessor(cfg, nil)
	assert.Error(t, err)
}

func TestImageProcessor_LogsStagesAndRejections(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewImageProcessor(config.Default(), logger.NewZerolog(&buf, zerolog.DebugLevel))
	require.NoError(t, err)

	ready := buf.String()
	assert.Contains(t, ready, `"message":"processor ready"`)
	assert.Contains(t, ready, `"strategies":["white_background"`)
	assert.Contains(t, ready, `"post_steps":["flatten_filter"`)

	buf.Reset()
	res := p.ProcessCharacterImage(writeSolid(t, t.TempDir(), "tiny.png", 50, 255), t.TempDir(), "tiny")
	require.False(t, res.Success)
	assert.Contains(t, buf.String(), `"level":"info"`)
	assert.Contains(t, buf.String(), "character image rejected")
	assert.NotContains(t, buf.String(), "character processing failed")

	buf.Reset()
	res = p.ProcessCharacterImage(drawSketch(t, t.TempDir()), t.TempDir(), "hero")
	require.True(t, res.Success, res.Message)
	assert.Contains(t, buf.String(), `"message":"step applied"`)
	assert.Contains(t, buf.String(), `"mat_id"`)
}
