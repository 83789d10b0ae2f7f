package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// paperImage returns a white sheet with dark artifact silhouettes drawn on it.
func paperImage(width, height int, silhouettes ...image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for _, r := range silhouettes {
		draw.Draw(img, r, image.NewUniform(color.RGBA{20, 20, 20, 255}), image.Point{}, draw.Src)
	}
	return img
}

// grayFill returns a gray image with every pixel set to v.
func grayFill(width, height int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// writePNG encodes img into dir and returns the file path.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// writeJPEG encodes img as JPEG into dir and returns the file path.
func writeJPEG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
	return path
}

// countAbove counts pixels of gray with a value strictly above v.
func countAbove(gray *image.Gray, v uint8) int {
	n := 0
	for _, p := range gray.Pix {
		if p > v {
			n++
		}
	}
	return n
}
