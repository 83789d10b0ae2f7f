package surface

import (
	"math"
	"sort"
)

// Duplicate filter constants. They are tied to the pixel scale of the
// photographs the rules were tuned on; callers working at another scale
// should rescale centroids and areas rather than change them.
const (
	areaFloorPercent    = 1.0
	duplicateCentroidPx = 300.0
	duplicateAreaRatio  = 0.1
)

// FindDuplicates returns the IDs of shapes to discard as noise or duplicates,
// in ascending order.
//
// Two passes are unioned:
//
//  1. Area floor: a shape whose area is below 1% of the largest area is
//     discarded.
//  2. Pairwise duplicates: for every unordered pair of shapes that survived
//     the area floor, if their centroids are closer than 300 px and their
//     area difference is below 10% of the largest area, the smaller shape is
//     discarded. Exactly equal areas discard the lower ID.
//
// Every pair is judged on its own, so the discard set does not depend on the
// order of shapes in the input. Chained duplicates all fall: when A~B and
// B~C but not A~C, both B and C are discarded. Shapes must already be measured. If the
// largest area is not positive nothing is discarded.
func FindDuplicates(shapes []Shape) []int {
	maxArea := 0.0
	for _, s := range shapes {
		if s.AreaPx > maxArea {
			maxArea = s.AreaPx
		}
	}
	if maxArea <= 0 {
		return []int{}
	}

	discard := make(map[int]bool)
	survivors := make([]Shape, 0, len(shapes))
	for _, s := range shapes {
		if s.AreaPx/maxArea*100 < areaFloorPercent {
			discard[s.ID] = true
			continue
		}
		survivors = append(survivors, s)
	}

	for i := 0; i < len(survivors); i++ {
		for j := i + 1; j < len(survivors); j++ {
			a, b := survivors[i], survivors[j]
			if !isDuplicatePair(a, b, maxArea) {
				continue
			}
			discard[smallerOf(a, b).ID] = true
		}
	}

	ids := make([]int, 0, len(discard))
	for id := range discard {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// isDuplicatePair reports whether a and b describe the same physical surface.
func isDuplicatePair(a, b Shape, maxArea float64) bool {
	if centroidDistance(a, b) >= duplicateCentroidPx {
		return false
	}
	return math.Abs(a.AreaPx-b.AreaPx)/maxArea < duplicateAreaRatio
}

// smallerOf picks the shape to drop from a duplicate pair.
func smallerOf(a, b Shape) Shape {
	if a.AreaPx < b.AreaPx {
		return a
	}
	if b.AreaPx < a.AreaPx {
		return b
	}
	if a.ID < b.ID {
		return a
	}
	return b
}

// retainedIDs returns the IDs not in discard, ordered by descending area.
func retainedIDs(shapes []Shape, discard []int) []int {
	dropped := make(map[int]bool, len(discard))
	for _, id := range discard {
		dropped[id] = true
	}
	ids := make([]int, 0, len(shapes)-len(discard))
	for _, s := range shapes {
		if !dropped[s.ID] {
			ids = append(ids, s.ID)
		}
	}
	sortByAreaDesc(shapes, ids)
	return ids
}
