package surface

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasure_Rectangle(t *testing.T) {
	m := newMask(t, 50, 40, image.Rect(5, 5, 25, 15))
	shapes := Extract(m, DefaultOptions())
	require.Len(t, shapes, 1)

	require.NoError(t, Measure(shapes, 4))

	s := shapes[0]
	assert.InDelta(t, 171.0, s.AreaPx, 1e-9) // 19 * 9
	assert.InDelta(t, 171.0/4, s.AreaPhysical, 1e-9)
	assert.Equal(t, Box{X: 5, Y: 5, Width: 20, Height: 10}, s.BoundingBox)
	assert.InDelta(t, 14.5, s.Centroid.X, 1e-9)
	assert.InDelta(t, 9.5, s.Centroid.Y, 1e-9)
	assert.Equal(t, 4, s.Length)
}

func TestMeasure_AreaIndependentOfApproximation(t *testing.T) {
	m := newMask(t, 60, 60, image.Rect(10, 10, 20, 50), image.Rect(20, 40, 50, 50))

	simple := Extract(m, Options{Approximation: ApproxSimple})
	full := Extract(m, Options{Approximation: ApproxNone})
	require.Len(t, simple, 1)
	require.Len(t, full, 1)
	require.NoError(t, Measure(simple, 1))
	require.NoError(t, Measure(full, 1))

	assert.InDelta(t, simple[0].AreaPx, full[0].AreaPx, 1e-9)
	assert.Equal(t, simple[0].BoundingBox, full[0].BoundingBox)
	assert.Less(t, simple[0].Length, full[0].Length)
}

func TestMeasure_InvalidConversionFactor(t *testing.T) {
	tests := []struct {
		name   string
		factor float64
	}{
		{"zero", 0},
		{"negative", -2},
		{"nan", math.NaN()},
		{"infinite", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shapes := []Shape{{Outline: []image.Point{{0, 0}, {0, 10}, {10, 10}}}}
			err := Measure(shapes, tt.factor)
			assert.ErrorIs(t, err, ErrInvalidConversionFactor)
			assert.Zero(t, shapes[0].AreaPx, "shapes must not be touched on error")
		})
	}
}

func TestPolygonArea_Degenerate(t *testing.T) {
	assert.Zero(t, polygonArea(nil))
	assert.Zero(t, polygonArea([]image.Point{{1, 1}, {5, 1}}))
	assert.Zero(t, polygonArea([]image.Point{{0, 0}, {5, 0}, {10, 0}}))
}

func TestCentroidDistance(t *testing.T) {
	a := Shape{Centroid: Centroid{X: 0, Y: 0}}
	b := Shape{Centroid: Centroid{X: 3, Y: 4}}
	assert.InDelta(t, 5.0, centroidDistance(a, b), 1e-9)
}
