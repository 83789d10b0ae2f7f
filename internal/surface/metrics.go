package surface

import (
	"fmt"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Measure computes the geometric descriptors of every shape in place.
//
// Parameters:
//   - shapes: Shapes produced by Extract.
//   - conversionFactor: pixels² per physical unit². AreaPhysical is
//     AreaPx / conversionFactor.
//
// Returns ErrInvalidConversionFactor when conversionFactor is not a positive
// finite number; shapes are left untouched in that case.
//
// # Metrics
//
//   - AreaPx: shoelace area of the closed outline. Polygon area rather than
//     pixel counting keeps the value stable against boundary noise.
//   - Centroid: arithmetic mean of outline points. Surfaces are near-convex
//     blobs, so the vertex mean is an adequate centre.
//   - BoundingBox: integer extent of the outline points.
//   - Length: number of outline points.
func Measure(shapes []Shape, conversionFactor float64) error {
	if err := validateConversionFactor(conversionFactor); err != nil {
		return err
	}
	for i := range shapes {
		s := &shapes[i]
		s.AreaPx = polygonArea(s.Outline)
		s.AreaPhysical = s.AreaPx / conversionFactor
		s.Centroid = outlineCentroid(s.Outline)
		s.BoundingBox = outlineBounds(s.Outline)
		s.Length = len(s.Outline)
	}
	return nil
}

func validateConversionFactor(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConversionFactor, f)
	}
	return nil
}

// toRing converts an outline into a closed orb.Ring.
func toRing(outline []image.Point) orb.Ring {
	r := make(orb.Ring, 0, len(outline)+1)
	for _, p := range outline {
		r = append(r, orb.Point{float64(p.X), float64(p.Y)})
	}
	if len(r) > 0 {
		r = append(r, r[0])
	}
	return r
}

// polygonArea returns the unsigned shoelace area of a closed outline.
func polygonArea(outline []image.Point) float64 {
	if len(outline) < 3 {
		return 0
	}
	return math.Abs(planar.Area(toRing(outline)))
}

func outlineCentroid(outline []image.Point) Centroid {
	if len(outline) == 0 {
		return Centroid{}
	}
	var sx, sy float64
	for _, p := range outline {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	n := float64(len(outline))
	return Centroid{X: sx / n, Y: sy / n}
}

func outlineBounds(outline []image.Point) Box {
	if len(outline) == 0 {
		return Box{}
	}
	b := toRing(outline).Bound()
	return Box{
		X:      int(b.Min.X()),
		Y:      int(b.Min.Y()),
		Width:  int(b.Max.X()-b.Min.X()) + 1,
		Height: int(b.Max.Y()-b.Min.Y()) + 1,
	}
}

// centroidDistance is the Euclidean distance between two shapes' centroids.
func centroidDistance(a, b Shape) float64 {
	return planar.Distance(
		orb.Point{a.Centroid.X, a.Centroid.Y},
		orb.Point{b.Centroid.X, b.Centroid.Y},
	)
}
