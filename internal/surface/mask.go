package surface

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
)

// Mask is a binary image. Pixels set to true are foreground.
//
// Coordinates are 0-based regardless of the bounds of the image the mask was
// built from.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask converts an image into a Mask. Any pixel whose grayscale value is
// non-zero is foreground.
//
// Returns ErrInvalidImage when img is nil or has an empty bounds rectangle.
func NewMask(img image.Image) (*Mask, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if g, ok := img.(*image.Gray); ok && g == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrInvalidImage, bounds)
	}

	m := &Mask{Width: width, Height: height, Pix: make([]bool, width*height)}

	// Fast path for the thresholded images produced by preprocessing.
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < height; y++ {
			row := g.Pix[(y+bounds.Min.Y-g.Rect.Min.Y)*g.Stride+(bounds.Min.X-g.Rect.Min.X):]
			for x := 0; x < width; x++ {
				m.Pix[y*width+x] = row[x] > 0
			}
		}
		return m, nil
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := color.GrayModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray)
			m.Pix[y*width+x] = gray.Y > 0
		}
	}
	return m, nil
}

// NewEmptyMask returns an all-background mask of the given size.
func NewEmptyMask(width, height int) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidImage, width, height)
	}
	return &Mask{Width: width, Height: height, Pix: make([]bool, width*height)}, nil
}

// At reports whether (x, y) is foreground. Out-of-range coordinates are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y) as foreground or background. Out-of-range writes are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// FillRect sets every pixel of r (clipped to the mask) to v.
func (m *Mask) FillRect(r image.Rectangle, v bool) {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[y*m.Width+x] = v
		}
	}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Gray renders the mask as a grayscale image with foreground at 255.
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v {
			img.Pix[i] = 255
		}
	}
	return img
}

// FillOutline rasterizes a closed outline into a mask of the given size.
// Boundary pixels and the enclosed interior are foreground, which is the
// region a surface covers in the source image.
func FillOutline(outline []image.Point, width, height int) (*Mask, error) {
	m, err := NewEmptyMask(width, height)
	if err != nil {
		return nil, err
	}
	n := len(outline)
	if n == 0 {
		return m, nil
	}

	// Boundary: outlines are chains of 8-connected runs, so straight
	// segments between consecutive points cover every boundary pixel.
	for i := 0; i < n; i++ {
		drawSegment(m, outline[i], outline[(i+1)%n])
	}

	// Interior: even-odd scanline fill at pixel centres. An edge contributes
	// to rows in [minY, maxY) so shared vertices are counted once.
	xs := make([]float64, 0, 16)
	for y := 0; y < height; y++ {
		xs = xs[:0]
		for i := 0; i < n; i++ {
			a, b := outline[i], outline[(i+1)%n]
			if a.Y == b.Y {
				continue
			}
			if (a.Y <= y && y < b.Y) || (b.Y <= y && y < a.Y) {
				t := float64(y-a.Y) / float64(b.Y-a.Y)
				xs = append(xs, float64(a.X)+t*float64(b.X-a.X))
			}
		}
		slices.Sort(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := int(math.Ceil(xs[i])); x <= int(math.Floor(xs[i+1])); x++ {
				m.Set(x, y, true)
			}
		}
	}
	return m, nil
}

// drawSegment marks the pixels of the line from a to b (Bresenham).
func drawSegment(m *Mask, a, b image.Point) {
	dx := absInt(b.X - a.X)
	dy := -absInt(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	x, y := a.X, a.Y
	for {
		m.Set(x, y, true)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
