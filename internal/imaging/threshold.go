package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// OtsuLevel returns the threshold that maximizes the between-class variance
// of the intensity histogram of gray. Pixels strictly above the level form the
// bright class.
//
// # Algorithm
//
// For every candidate level t the histogram splits into a dark class [0,t]
// and a bright class (t,255]. With class weights w0, w1 and means μ0, μ1 the
// between-class variance is w0·w1·(μ0-μ1)². The first level reaching the
// maximum is returned. A flat image returns its only intensity.
func OtsuLevel(gray *image.Gray) uint8 {
	var hist [256]int
	for _, v := range gray.Pix {
		hist[v]++
	}
	total := len(gray.Pix)
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i * c)
	}

	var (
		sumDark  float64
		wDark    int
		best     float64
		level    uint8
		hasSplit bool
	)
	for t := 0; t < 256; t++ {
		wDark += hist[t]
		if wDark == 0 {
			continue
		}
		wBright := total - wDark
		if wBright == 0 {
			break
		}
		sumDark += float64(t * hist[t])

		muDark := sumDark / float64(wDark)
		muBright := (sumAll - sumDark) / float64(wBright)
		d := muDark - muBright
		between := float64(wDark) * float64(wBright) * d * d
		if !hasSplit || between > best {
			best = between
			level = uint8(t)
			hasSplit = true
		}
	}

	if !hasSplit {
		// Single intensity: nothing lies strictly above it.
		return gray.Pix[0]
	}
	return level
}

// AdaptiveThreshold marks a pixel as foreground when it is brighter than the
// Gaussian weighted mean of its neighbourhood minus offset. A sigma of 2
// corresponds to an 11x11 window.
//
// Uniform regions come out as foreground because every pixel exceeds its
// local mean minus the offset; edges between dark strokes and paper are what
// the method isolates.
func AdaptiveThreshold(gray *image.Gray, sigma, offset float64) *image.Gray {
	local := toGray(imaging.Blur(gray, sigma))
	out := image.NewGray(image.Rect(0, 0, gray.Rect.Dx(), gray.Rect.Dy()))

	w, h := out.Rect.Dx(), out.Rect.Dy()
	for y := 0; y < h; y++ {
		src := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		mean := local.Pix[y*local.Stride : y*local.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := range dst {
			if float64(src[x]) > float64(mean[x])-offset {
				dst[x] = 255
			}
		}
	}
	return out
}
