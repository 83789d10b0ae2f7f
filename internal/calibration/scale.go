package calibration

import (
	"errors"
	"fmt"
	"math"
)

const mmPerInch = 25.4

// ErrInvalidScale is returned for non-positive or non-finite scale inputs.
var ErrInvalidScale = errors.New("invalid scale")

// Scale is the linear resolution of an image.
type Scale struct {
	// PixelsPerMM is the number of pixels spanning one millimetre.
	PixelsPerMM float64 `json:"pixels_per_mm"`

	// Source describes where the scale came from: "dpi", "scale_bar" or "manual".
	Source string `json:"source"`
}

// FromDPI converts a dots-per-inch resolution into a Scale.
func FromDPI(dpi float64) (Scale, error) {
	if !positive(dpi) {
		return Scale{}, fmt.Errorf("%w: dpi %v", ErrInvalidScale, dpi)
	}
	return Scale{PixelsPerMM: dpi / mmPerInch, Source: "dpi"}, nil
}

// FromScaleBar calibrates from an image of a scale bar whose longest side is
// lengthMM millimetres long.
func FromScaleBar(width, height int, lengthMM float64) (Scale, error) {
	if !positive(lengthMM) {
		return Scale{}, fmt.Errorf("%w: scale bar length %v mm", ErrInvalidScale, lengthMM)
	}
	longest := max(width, height)
	if longest <= 0 {
		return Scale{}, fmt.Errorf("%w: empty scale bar image", ErrInvalidScale)
	}
	return Scale{PixelsPerMM: float64(longest) / lengthMM, Source: "scale_bar"}, nil
}

// FromPixelsPerMM wraps a known linear resolution.
func FromPixelsPerMM(ppmm float64) (Scale, error) {
	if !positive(ppmm) {
		return Scale{}, fmt.Errorf("%w: %v pixels per mm", ErrInvalidScale, ppmm)
	}
	return Scale{PixelsPerMM: ppmm, Source: "manual"}, nil
}

// AreaFactor returns pixels² per mm², the conversion factor the surface
// analyzer divides pixel areas by.
func (s Scale) AreaFactor() float64 {
	return s.PixelsPerMM * s.PixelsPerMM
}

// ToMM converts a pixel length into millimetres.
func (s Scale) ToMM(px float64) float64 {
	return px / s.PixelsPerMM
}

// ScaleBarLength returns how many pixels a scale bar of lengthMM millimetres
// spans at the given resolution.
func ScaleBarLength(dpi, lengthMM float64) float64 {
	return lengthMM * dpi / mmPerInch
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
