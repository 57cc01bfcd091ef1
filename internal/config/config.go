package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix namespaces environment overrides, e.g.
	// SKETCH_SPRITE_OUTPUT_TARGET_WIDTH=256.
	EnvPrefix = "SKETCH_SPRITE"

	defaultFileName = "sketch-sprite"
)

// Config is owned by a single ImageProcessor; nothing in the module keeps a
// package level copy.
type Config struct {
	Input       InputConfig       `mapstructure:"input"`
	Output      OutputConfig      `mapstructure:"output"`
	Extraction  ExtractionConfig  `mapstructure:"extraction"`
	Enhancement EnhancementConfig `mapstructure:"enhancement"`
	Log         LogConfig         `mapstructure:"log"`
	Batch       BatchConfig       `mapstructure:"batch"`
}

type InputConfig struct {
	SupportedFormats []string `mapstructure:"supported_formats" default:"[\".png\",\".jpg\",\".jpeg\",\".bmp\"]" validate:"min=1,dive,startswith=."`
	MinWidth         int      `mapstructure:"min_width" default:"100" validate:"min=1"`
	MinHeight        int      `mapstructure:"min_height" default:"100" validate:"min=1"`
}

type OutputConfig struct {
	TargetWidth      int    `mapstructure:"target_width" default:"512" validate:"min=16,max=4096"`
	TargetHeight     int    `mapstructure:"target_height" default:"512" validate:"min=16,max=4096"`
	SpriteSuffix     string `mapstructure:"sprite_suffix" default:"_sprite" validate:"required,excludesall=/\\"`
	WriteNormalized  bool   `mapstructure:"write_normalized" default:"true"`
	NormalizedSuffix string `mapstructure:"normalized_suffix" default:"_normalized" validate:"required,excludesall=/\\"`
	ThumbnailSize    uint   `mapstructure:"thumbnail_size" default:"0" validate:"max=1024"`
	ThumbnailSuffix  string `mapstructure:"thumbnail_suffix" default:"_thumb" validate:"required,excludesall=/\\"`
}

// ExtractionConfig carries the empirically chosen constants of the
// segmentation cascade.
type ExtractionConfig struct {
	SaturationThreshold float64 `mapstructure:"saturation_threshold" default:"30" validate:"min=0,max=255"`
	LabLuminanceMax     float64 `mapstructure:"lab_luminance_max" default:"200" validate:"min=0,max=255"`
	LabChromaMin        float64 `mapstructure:"lab_chroma_min" default:"12" validate:"min=0"`
	CannyLow            float64 `mapstructure:"canny_low" default:"50" validate:"min=0"`
	CannyHigh           float64 `mapstructure:"canny_high" default:"150" validate:"gtefield=CannyLow"`
	EdgeDilateKernel    int     `mapstructure:"edge_dilate_kernel" default:"3" validate:"min=1"`

	BorderWhiteDistance float64 `mapstructure:"border_white_distance" default:"30" validate:"min=0"`
	WhiteBorderRatio    float64 `mapstructure:"white_border_ratio" default:"0.7" validate:"min=0,max=1"`
	LooseMinRatio       float64 `mapstructure:"loose_min_ratio" default:"0.03" validate:"min=0,max=1"`
	LooseMaxRatio       float64 `mapstructure:"loose_max_ratio" default:"0.95" validate:"min=0,max=1,gtefield=LooseMinRatio"`
	StrictMinRatio      float64 `mapstructure:"strict_min_ratio" default:"0.05" validate:"min=0,max=1"`
	StrictMaxRatio      float64 `mapstructure:"strict_max_ratio" default:"0.75" validate:"min=0,max=1,gtefield=StrictMinRatio"`

	GrabCutIterations   int     `mapstructure:"grabcut_iterations" default:"5" validate:"min=1,max=50"`
	GrabCutRectFraction float64 `mapstructure:"grabcut_rect_fraction" default:"0.6" validate:"gt=0,lt=1"`
	GrabCutMinRatio     float64 `mapstructure:"grabcut_min_ratio" default:"0.05" validate:"min=0,max=1"`
	GrabCutMaxRatio     float64 `mapstructure:"grabcut_max_ratio" default:"0.95" validate:"min=0,max=1,gtefield=GrabCutMinRatio"`

	ContourBlurKernel int     `mapstructure:"contour_blur_kernel" default:"5" validate:"min=1"`
	ContourMinRatio   float64 `mapstructure:"contour_min_ratio" default:"0.05" validate:"min=0,max=1"`
	ContourMaxRatio   float64 `mapstructure:"contour_max_ratio" default:"0.95" validate:"min=0,max=1,gtefield=ContourMinRatio"`

	ThresholdCandidates []int `mapstructure:"threshold_candidates" default:"[200,220,240,260]" validate:"min=1,dive,min=0"`
	DefaultThreshold    int   `mapstructure:"default_threshold" default:"220" validate:"min=0"`
	ThresholdKernel     int   `mapstructure:"threshold_kernel" default:"3" validate:"min=1"`
}

type EnhancementConfig struct {
	ClaheClipLimit   float64 `mapstructure:"clahe_clip_limit" default:"2.0" validate:"gt=0"`
	ClaheTileSize    int     `mapstructure:"clahe_tile_size" default:"8" validate:"min=1,max=64"`
	LineArtBlockSize int     `mapstructure:"lineart_block_size" default:"11" validate:"min=3"`
	LineArtC         float64 `mapstructure:"lineart_c" default:"2"`
	LineArtWeight    float64 `mapstructure:"lineart_weight" default:"0.2" validate:"min=0,max=1"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" default:"info" validate:"oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" default:"console" validate:"oneof=console json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" default:"10" validate:"min=1"`
	MaxBackups int    `mapstructure:"max_backups" default:"3" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" default:"28" validate:"min=0"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers" default:"4" validate:"min=1,max=64"`
}

// Default returns a Config populated only from struct tag defaults.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults are malformed: %v", err))
	}
	return cfg
}

// Load reads configuration from path (or sketch-sprite.yaml in the working
// directory and ./config when path is empty), applies SKETCH_SPRITE_*
// environment overrides and validates the result. A missing default file is
// not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	registerDefaults(v, "", reflect.ValueOf(cfg).Elem())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(defaultFileName)
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges declared in struct tags plus the cross-field rules
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	odd := map[string]int{
		"extraction.edge_dilate_kernel":  c.Extraction.EdgeDilateKernel,
		"extraction.contour_blur_kernel": c.Extraction.ContourBlurKernel,
		"extraction.threshold_kernel":    c.Extraction.ThresholdKernel,
		"enhancement.lineart_block_size": c.Enhancement.LineArtBlockSize,
	}
	for key, value := range odd {
		if value%2 == 0 {
			return fmt.Errorf("config validation failed: %s must be odd, got %d", key, value)
		}
	}

	return nil
}

// IsSupportedExtension reports whether ext (with leading dot, any case) is
// on the input allow-list.
func (c InputConfig) IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, f := range c.SupportedFormats {
		if strings.ToLower(f) == ext {
			return true
		}
	}
	return false
}

// registerDefaults mirrors every leaf of the defaulted struct into viper so
// AutomaticEnv can see keys that no config file mentions.
func registerDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		fv := val.Field(i)
		if fv.Kind() == reflect.Struct {
			registerDefaults(v, key, fv)
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}
