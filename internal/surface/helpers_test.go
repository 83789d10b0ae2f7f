package surface

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

// newMask returns a background mask with the given rectangles filled.
// Rectangles use exclusive max corners, so image.Rect(0, 0, 10, 5) fills a
// 10x5 block whose traced outline encloses an area of 9*4 px².
func newMask(t *testing.T, width, height int, rects ...image.Rectangle) *Mask {
	t.Helper()
	m, err := NewEmptyMask(width, height)
	require.NoError(t, err)
	for _, r := range rects {
		m.FillRect(r, true)
	}
	return m
}

// rectShape builds a measured top-level shape without going through extraction.
func rectShape(id int, area float64, width, height int, cx, cy float64) Shape {
	return Shape{
		ID:            id,
		BoundingBox:   Box{X: int(cx) - width/2, Y: int(cy) - height/2, Width: width, Height: height},
		AreaPx:        area,
		Centroid:      Centroid{X: cx, Y: cy},
		ParentID:      NoParent,
		TopAncestorID: id,
	}
}
