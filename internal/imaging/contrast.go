package imaging

import (
	"image"
	"math"
)

// CLAHE applies contrast limited adaptive histogram equalization.
//
// The image is split into tiles x tiles regions. Each region gets its own
// equalization table built from a histogram whose bins are capped at
// clipLimit times the mean bin height; the clipped excess is spread evenly
// over all bins. Output pixels interpolate bilinearly between the tables of
// the four nearest tile centres so tile seams do not show.
//
// Non-positive arguments fall back to a clip limit of 2 and 8 tiles.
func CLAHE(gray *image.Gray, clipLimit float64, tiles int) *image.Gray {
	if clipLimit <= 0 {
		clipLimit = 2
	}
	if tiles <= 0 {
		tiles = 8
	}

	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	tileW := int(math.Ceil(float64(w) / float64(tiles)))
	tileH := int(math.Ceil(float64(h) / float64(tiles)))
	tilesX := (w + tileW - 1) / tileW
	tilesY := (h + tileH - 1) / tileH

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			r := image.Rect(tx*tileW, ty*tileH, min(tx*tileW+tileW, w), min(ty*tileH+tileH, h))
			luts[ty*tilesX+tx] = equalizationTable(gray, r, clipLimit)
		}
	}

	for y := 0; y < h; y++ {
		ty0, ty1, ay := tileNeighbours(y, tileH, tilesY)
		for x := 0; x < w; x++ {
			tx0, tx1, ax := tileNeighbours(x, tileW, tilesX)
			v := gray.Pix[y*gray.Stride+x]

			top := (1-ax)*float64(luts[ty0*tilesX+tx0][v]) + ax*float64(luts[ty0*tilesX+tx1][v])
			bottom := (1-ax)*float64(luts[ty1*tilesX+tx0][v]) + ax*float64(luts[ty1*tilesX+tx1][v])
			out.Pix[y*out.Stride+x] = clampUint8((1-ay)*top + ay*bottom)
		}
	}
	return out
}

// equalizationTable builds the clipped histogram equalization table of r.
func equalizationTable(gray *image.Gray, r image.Rectangle, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := r.Min.X; x < r.Max.X; x++ {
			hist[row[x]]++
		}
	}
	area := r.Dx() * r.Dy()

	limit := int(clipLimit * float64(area) / 256)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for i, c := range hist {
		if c > limit {
			excess += c - limit
			hist[i] = limit
		}
	}
	share, rest := excess/256, excess%256
	for i := range hist {
		hist[i] += share
		if i < rest {
			hist[i]++
		}
	}

	var lut [256]uint8
	cdf := 0
	for i, c := range hist {
		cdf += c
		lut[i] = clampUint8(float64(cdf) * 255 / float64(area))
	}
	return lut
}

// tileNeighbours returns the two tiles whose centres bracket coordinate p
// and the interpolation weight of the second.
func tileNeighbours(p, size, count int) (int, int, float64) {
	f := (float64(p)+0.5)/float64(size) - 0.5
	t0 := int(math.Floor(f))
	if t0 < 0 {
		return 0, 0, 0
	}
	if t0 >= count-1 {
		return count - 1, count - 1, 0
	}
	return t0, t0 + 1, f - float64(t0)
}
