// Package config loads the lithics configuration from YAML files and
// LITHICS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/ironsheep/lithic-tools-mcp/internal/imaging"
	"github.com/ironsheep/lithic-tools-mcp/internal/logging"
	"github.com/ironsheep/lithic-tools-mcp/internal/surface"
)

// EnvPrefix prefixes every environment override, e.g. LITHICS_SURFACES_TOLERANCE.
const EnvPrefix = "LITHICS"

// EnvConfigFile names the config file when no path is given explicitly.
const EnvConfigFile = "LITHICS_CONFIG"

// Config is the full lithics configuration.
type Config struct {
	Grayscale     GrayscaleConfig     `mapstructure:"grayscale_conversion" yaml:"grayscale_conversion"`
	Normalization NormalizationConfig `mapstructure:"normalization" yaml:"normalization"`
	Thresholding  ThresholdingConfig  `mapstructure:"thresholding" yaml:"thresholding"`
	Surfaces      SurfacesConfig      `mapstructure:"surfaces" yaml:"surfaces"`
	Batch         BatchConfig         `mapstructure:"batch" yaml:"batch"`
	Output        OutputConfig        `mapstructure:"output" yaml:"output"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Annotation    AnnotationConfig    `mapstructure:"annotation" yaml:"annotation"`
}

type GrayscaleConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	Method         string  `mapstructure:"method" yaml:"method"`
	CLAHEClipLimit float64 `mapstructure:"clahe_clip_limit" yaml:"clahe_clip_limit"`
	CLAHETiles     int     `mapstructure:"clahe_tiles" yaml:"clahe_tiles"`
}

type NormalizationConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Method     string `mapstructure:"method" yaml:"method"`
	ClipValues []int  `mapstructure:"clip_values" yaml:"clip_values"`
}

type ThresholdingConfig struct {
	Method         string  `mapstructure:"method" yaml:"method"`
	ThresholdValue int     `mapstructure:"threshold_value" yaml:"threshold_value"`
	BlurSigma      float64 `mapstructure:"blur_sigma" yaml:"blur_sigma"`
	Invert         bool    `mapstructure:"invert" yaml:"invert"`
}

type SurfacesConfig struct {
	Tolerance      float64 `mapstructure:"tolerance" yaml:"tolerance"`
	MinArea        float64 `mapstructure:"min_area" yaml:"min_area"`
	Mode           string  `mapstructure:"mode" yaml:"mode"`
	Approximation  string  `mapstructure:"approximation" yaml:"approximation"`
	IntensityCheck bool    `mapstructure:"intensity_check" yaml:"intensity_check"`
}

type BatchConfig struct {
	// Workers is the number of images analyzed concurrently; 0 uses one per CPU.
	Workers   int    `mapstructure:"workers" yaml:"workers"`
	ImagesDir string `mapstructure:"images_dir" yaml:"images_dir"`
}

type OutputConfig struct {
	Dir               string  `mapstructure:"dir" yaml:"dir"`
	Annotate          bool    `mapstructure:"annotate" yaml:"annotate"`
	Database          string  `mapstructure:"database" yaml:"database"`
	Format            string  `mapstructure:"format" yaml:"format"`
	SimplifyTolerance float64 `mapstructure:"simplify_tolerance" yaml:"simplify_tolerance"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type AnnotationConfig struct {
	// Colors maps lower-case label names to hex colours.
	Colors       map[string]string `mapstructure:"colors" yaml:"colors"`
	LineWidth    int               `mapstructure:"line_width" yaml:"line_width"`
	ShowOutlines bool              `mapstructure:"show_outlines" yaml:"show_outlines"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grayscale_conversion.enabled", true)
	v.SetDefault("grayscale_conversion.method", imaging.GrayscaleStandard)
	v.SetDefault("grayscale_conversion.clahe_clip_limit", 2.0)
	v.SetDefault("grayscale_conversion.clahe_tiles", 8)

	v.SetDefault("normalization.enabled", true)
	v.SetDefault("normalization.method", imaging.NormalizeMinMax)
	v.SetDefault("normalization.clip_values", []int{0, 255})

	v.SetDefault("thresholding.method", imaging.ThresholdDefault)
	v.SetDefault("thresholding.threshold_value", 127)
	v.SetDefault("thresholding.blur_sigma", 1.1)
	v.SetDefault("thresholding.invert", true)

	v.SetDefault("surfaces.tolerance", surface.DefaultTolerance)
	v.SetDefault("surfaces.min_area", surface.DefaultMinArea)
	v.SetDefault("surfaces.mode", "external")
	v.SetDefault("surfaces.approximation", "simple")
	v.SetDefault("surfaces.intensity_check", true)

	v.SetDefault("batch.workers", 0)
	v.SetDefault("batch.images_dir", "images")

	v.SetDefault("output.dir", "processed")
	v.SetDefault("output.annotate", true)
	v.SetDefault("output.database", "")
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.simplify_tolerance", 0.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", logging.FormatConsole)

	v.SetDefault("annotation.colors", map[string]any{
		"dorsal":       "#00c853",
		"ventral":      "#2962ff",
		"platform":     "#ffab00",
		"lateral":      "#aa00ff",
		"unclassified": "#ff0000",
	})
	v.SetDefault("annotation.line_width", 2)
	v.SetDefault("annotation.show_outlines", false)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("logging.level", "LITHICS_LOG_LEVEL", "LITHICS_LOGGING_LEVEL")
	return v
}

// Default returns the built-in configuration with environment overrides applied.
func Default() (*Config, error) {
	return decode(newViper())
}

// Load reads the configuration.
//
// The file is path when given, otherwise $LITHICS_CONFIG, otherwise
// lithics.yaml in the working directory or ~/.config/lithics. A missing file
// is only an error when it was named explicitly. Environment variables
// override file values.
func Load(path string) (*Config, error) {
	v := newViper()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return decode(v)
	}

	v.SetConfigName("lithics")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "lithics"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteDefault writes the built-in configuration as YAML to path. Existing
// files are not overwritten.
func WriteDefault(path string) error {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to build default config: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return f.Close()
}
