package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ironsheep/lithic-tools-mcp/internal/imaging"
	"github.com/ironsheep/lithic-tools-mcp/internal/logging"
	"github.com/ironsheep/lithic-tools-mcp/internal/render"
	"github.com/ironsheep/lithic-tools-mcp/internal/surface"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Export formats accepted by output.format.
var exportFormats = []string{"csv", "json", "yaml"}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

// Validate checks method names and numeric ranges.
func (c *Config) Validate() error {
	if !slices.Contains([]string{imaging.GrayscaleStandard, imaging.GrayscaleCLAHE}, c.Grayscale.Method) {
		return invalid("grayscale_conversion.method %q", c.Grayscale.Method)
	}
	if !slices.Contains([]string{imaging.NormalizeMinMax, imaging.NormalizeZScore}, c.Normalization.Method) {
		return invalid("normalization.method %q", c.Normalization.Method)
	}
	if cv := c.Normalization.ClipValues; len(cv) != 2 || cv[0] < 0 || cv[1] > 255 || cv[0] >= cv[1] {
		return invalid("normalization.clip_values %v must be two increasing values in [0,255]", cv)
	}
	thresholds := []string{imaging.ThresholdDefault, imaging.ThresholdAdaptive, imaging.ThresholdSimple, imaging.ThresholdOtsu}
	if !slices.Contains(thresholds, c.Thresholding.Method) {
		return invalid("thresholding.method %q", c.Thresholding.Method)
	}
	if v := c.Thresholding.ThresholdValue; v < 0 || v > 255 {
		return invalid("thresholding.threshold_value %d outside [0,255]", v)
	}
	if c.Thresholding.BlurSigma < 0 {
		return invalid("thresholding.blur_sigma %v is negative", c.Thresholding.BlurSigma)
	}

	if t := c.Surfaces.Tolerance; t <= 0 || t >= 1 {
		return invalid("surfaces.tolerance %v outside (0,1)", t)
	}
	if c.Surfaces.MinArea < 0 {
		return invalid("surfaces.min_area %v is negative", c.Surfaces.MinArea)
	}
	if _, err := c.retrievalMode(); err != nil {
		return err
	}
	if _, err := c.approximation(); err != nil {
		return err
	}

	if c.Batch.Workers < 0 {
		return invalid("batch.workers %d is negative", c.Batch.Workers)
	}
	if !slices.Contains(exportFormats, c.Output.Format) {
		return invalid("output.format %q", c.Output.Format)
	}
	if c.Output.SimplifyTolerance < 0 {
		return invalid("output.simplify_tolerance %v is negative", c.Output.SimplifyTolerance)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level: %v", err)
	}
	if c.Annotation.LineWidth < 1 {
		return invalid("annotation.line_width %d must be at least 1", c.Annotation.LineWidth)
	}
	if _, err := render.NewPalette(c.Annotation.Colors); err != nil {
		return invalid("annotation.colors: %v", err)
	}
	return nil
}

func (c *Config) retrievalMode() (surface.RetrievalMode, error) {
	switch c.Surfaces.Mode {
	case "external":
		return surface.RetrieveExternal, nil
	case "tree":
		return surface.RetrieveTree, nil
	}
	return 0, invalid("surfaces.mode %q", c.Surfaces.Mode)
}

func (c *Config) approximation() (surface.Approximation, error) {
	switch c.Surfaces.Approximation {
	case "simple":
		return surface.ApproxSimple, nil
	case "none":
		return surface.ApproxNone, nil
	}
	return 0, invalid("surfaces.approximation %q", c.Surfaces.Approximation)
}

// PreprocessOptions converts the preprocessing sections into imaging options.
func (c *Config) PreprocessOptions() imaging.PreprocessOptions {
	opts := imaging.PreprocessOptions{
		Grayscale:       c.Grayscale.Enabled,
		GrayscaleMethod: c.Grayscale.Method,
		CLAHEClipLimit:  c.Grayscale.CLAHEClipLimit,
		CLAHETiles:      c.Grayscale.CLAHETiles,
		Normalize:       c.Normalization.Enabled,
		NormalizeMethod: c.Normalization.Method,
		ClipMin:         0,
		ClipMax:         255,
		BlurSigma:       c.Thresholding.BlurSigma,
		ThresholdMethod: c.Thresholding.Method,
		ThresholdValue:  uint8(c.Thresholding.ThresholdValue),
		Invert:          c.Thresholding.Invert,
	}
	if cv := c.Normalization.ClipValues; len(cv) == 2 {
		opts.ClipMin, opts.ClipMax = uint8(cv[0]), uint8(cv[1])
	}
	return opts
}

// SurfaceOptions converts the surfaces section into analyzer options.
// Invalid names fall back to the analyzer defaults; Validate reports them.
func (c *Config) SurfaceOptions() surface.Options {
	opts := surface.Options{
		MinArea:   c.Surfaces.MinArea,
		Tolerance: c.Surfaces.Tolerance,
	}
	opts.Mode, _ = c.retrievalMode()
	opts.Approximation, _ = c.approximation()
	return opts
}

// LoggingOptions converts the logging section.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.Logging.Level, Format: c.Logging.Format}
}

// RenderOptions converts the annotation section.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Colors:       c.Annotation.Colors,
		LineWidth:    c.Annotation.LineWidth,
		ShowOutlines: c.Annotation.ShowOutlines,
	}
}
