package imaging

import (
	"fmt"
	"image"

	"github.com/ironsheep/lithic-tools-mcp/internal/surface"
)

// SurfaceIntensities returns the normalized [0,1] intensities of img inside a
// surface outline.
//
// The outline is filled (boundary and interior) on a mask the size of img and
// the luminance of every covered pixel is reported, row by row. Pixels outside
// the outline are not included. The result feeds surface.ProfileIntensity.
//
// Parameters:
//   - img: The image to sample, usually the grayscale or thresholded image
//     the outline was extracted from. Outline coordinates are relative to
//     img.Bounds().Min.
//   - outline: Closed outline in pixel coordinates.
//
// Returns:
//   - []float64: One value per covered pixel.
//   - error: Non-nil for an empty image.
func SurfaceIntensities(img image.Image, outline []image.Point) ([]float64, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", surface.ErrInvalidImage)
	}
	gray := toGray(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	mask, err := surface.FillOutline(outline, w, h)
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, mask.Count())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.At(x, y) {
				values = append(values, float64(gray.Pix[y*gray.Stride+x])/255)
			}
		}
	}
	return values, nil
}

// ProfileSurface runs the intensity profile check on one surface of img.
func ProfileSurface(img image.Image, s surface.Shape) (surface.IntensityProfile, error) {
	values, err := SurfaceIntensities(img, s.Outline)
	if err != nil {
		return surface.IntensityProfile{}, err
	}
	return surface.ProfileIntensity(values), nil
}
