package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// ErrUnsupportedMethod is returned for an unknown grayscale, normalization or
// threshold method name.
var ErrUnsupportedMethod = errors.New("unsupported method")

// Grayscale conversion methods.
const (
	GrayscaleStandard = "standard"
	GrayscaleCLAHE    = "clahe"
)

// Contrast normalization methods.
const (
	NormalizeMinMax = "minmax"
	NormalizeZScore = "zscore"
)

// Threshold methods. ThresholdDefault is an alias for ThresholdAdaptive.
const (
	ThresholdDefault  = "default"
	ThresholdAdaptive = "adaptive"
	ThresholdSimple   = "simple"
	ThresholdOtsu     = "otsu"
)

const (
	// defaultBlurSigma matches a 5x5 Gaussian kernel.
	defaultBlurSigma = 1.1

	// Adaptive thresholding compares each pixel with the Gaussian weighted
	// mean of its 11x11 neighbourhood minus adaptiveOffset.
	adaptiveSigma  = 2.0
	adaptiveOffset = 2.0
)

// PreprocessOptions selects the steps of the preprocessing pipeline.
type PreprocessOptions struct {
	// Grayscale enables grayscale conversion with GrayscaleMethod. When
	// disabled the image is still reduced to luminance, without CLAHE.
	Grayscale       bool
	GrayscaleMethod string

	// CLAHEClipLimit and CLAHETiles tune the "clahe" method.
	CLAHEClipLimit float64
	CLAHETiles     int

	// Normalize enables contrast normalization with NormalizeMethod.
	Normalize       bool
	NormalizeMethod string

	// ClipMin and ClipMax are the output range of "minmax" normalization.
	ClipMin uint8
	ClipMax uint8

	// BlurSigma is the Gaussian blur applied before thresholding; 0 disables it.
	BlurSigma float64

	// ThresholdMethod picks the binarization method.
	ThresholdMethod string

	// ThresholdValue is the fixed level of the "simple" method. Pixels
	// strictly above it become foreground.
	ThresholdValue uint8

	// Invert swaps foreground and background after thresholding.
	Invert bool
}

// DefaultPreprocessOptions returns the pipeline used for scanned artifact
// drawings: standard grayscale, min-max normalization to [0,255], σ 1.1 blur,
// adaptive threshold and inversion.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		Grayscale:       true,
		GrayscaleMethod: GrayscaleStandard,
		CLAHEClipLimit:  2.0,
		CLAHETiles:      8,
		Normalize:       true,
		NormalizeMethod: NormalizeMinMax,
		ClipMin:         0,
		ClipMax:         255,
		BlurSigma:       defaultBlurSigma,
		ThresholdMethod: ThresholdDefault,
		ThresholdValue:  127,
		Invert:          true,
	}
}

// Preprocess converts an artifact photograph into a binary mask.
//
// Parameters:
//   - img: Source image (color or grayscale).
//   - opts: Pipeline configuration, see DefaultPreprocessOptions.
//
// Returns:
//   - *image.Gray: Binary image with foreground 255 and background 0, with
//     the same dimensions as img and bounds starting at (0,0).
//   - error: Wraps ErrUnsupportedMethod for unknown method names.
func Preprocess(img image.Image, opts PreprocessOptions) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("preprocess: empty image")
	}

	gray, err := ToGrayscale(img, opts)
	if err != nil {
		return nil, err
	}
	if opts.Normalize {
		if gray, err = NormalizeContrast(gray, opts); err != nil {
			return nil, err
		}
	}
	if opts.BlurSigma > 0 {
		gray = toGray(imaging.Blur(gray, opts.BlurSigma))
	}

	binary, err := Threshold(gray, opts)
	if err != nil {
		return nil, err
	}
	if opts.Invert {
		binary = toGray(effect.Invert(binary))
	}
	return binary, nil
}

// ToGrayscale reduces img to a single luminance channel.
func ToGrayscale(img image.Image, opts PreprocessOptions) (*image.Gray, error) {
	gray := toGray(imaging.Grayscale(img))
	if !opts.Grayscale {
		return gray, nil
	}

	switch opts.GrayscaleMethod {
	case "", GrayscaleStandard:
		return gray, nil
	case GrayscaleCLAHE:
		return CLAHE(gray, opts.CLAHEClipLimit, opts.CLAHETiles), nil
	default:
		return nil, fmt.Errorf("%w: grayscale %q", ErrUnsupportedMethod, opts.GrayscaleMethod)
	}
}

// NormalizeContrast stretches the intensity range of gray.
//
// "minmax" maps the darkest pixel to ClipMin and the brightest to ClipMax.
// "zscore" standardizes intensities and maps ±3 standard deviations onto
// [0,255], clamping the tails. A flat image is returned unchanged.
func NormalizeContrast(gray *image.Gray, opts PreprocessOptions) (*image.Gray, error) {
	switch opts.NormalizeMethod {
	case "", NormalizeMinMax:
		return normalizeMinMax(gray, opts.ClipMin, opts.ClipMax), nil
	case NormalizeZScore:
		return normalizeZScore(gray), nil
	default:
		return nil, fmt.Errorf("%w: normalization %q", ErrUnsupportedMethod, opts.NormalizeMethod)
	}
}

func normalizeMinMax(gray *image.Gray, lo, hi uint8) *image.Gray {
	out := image.NewGray(gray.Rect)
	minV, maxV := uint8(255), uint8(0)
	for _, v := range gray.Pix {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if maxV == minV {
		copy(out.Pix, gray.Pix)
		return out
	}

	scale := float64(int(hi)-int(lo)) / float64(maxV-minV)
	for i, v := range gray.Pix {
		out.Pix[i] = clampUint8(float64(lo) + float64(v-minV)*scale)
	}
	return out
}

func normalizeZScore(gray *image.Gray) *image.Gray {
	out := image.NewGray(gray.Rect)
	n := float64(len(gray.Pix))
	if n == 0 {
		return out
	}

	var sum float64
	for _, v := range gray.Pix {
		sum += float64(v)
	}
	mean := sum / n
	var sq float64
	for _, v := range gray.Pix {
		d := float64(v) - mean
		sq += d * d
	}
	std := math.Sqrt(sq / n)
	if std == 0 {
		copy(out.Pix, gray.Pix)
		return out
	}

	for i, v := range gray.Pix {
		z := (float64(v) - mean) / std
		out.Pix[i] = clampUint8(127.5 + z*127.5/3)
	}
	return out
}

// Threshold binarizes gray with opts.ThresholdMethod. Pixels strictly above
// the threshold become 255, all others 0.
func Threshold(gray *image.Gray, opts PreprocessOptions) (*image.Gray, error) {
	switch opts.ThresholdMethod {
	case "", ThresholdDefault, ThresholdAdaptive:
		return AdaptiveThreshold(gray, adaptiveSigma, adaptiveOffset), nil
	case ThresholdSimple:
		return thresholdAbove(gray, opts.ThresholdValue), nil
	case ThresholdOtsu:
		return thresholdAbove(gray, OtsuLevel(gray)), nil
	default:
		return nil, fmt.Errorf("%w: threshold %q", ErrUnsupportedMethod, opts.ThresholdMethod)
	}
}

// thresholdAbove keeps pixels strictly greater than level.
func thresholdAbove(gray *image.Gray, level uint8) *image.Gray {
	if level == 255 {
		return image.NewGray(gray.Rect)
	}
	return toGray(segment.Threshold(gray, level+1))
}

// toGray returns img as an *image.Gray with bounds starting at (0,0).
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func clampUint8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
