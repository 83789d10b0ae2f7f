package surface

import "math"

// Classify assigns surface labels to the retained top-level shapes.
//
// Parameters:
//   - shapes: The measured shape arena (indexed by ID).
//   - retained: IDs that survived FindDuplicates. Only IDs whose shape is
//     top-level (TopAncestorID == ID) take part.
//   - tolerance: Relative tolerance τ for the Dorsal/Ventral comparison.
//     Values <= 0 use DefaultTolerance.
//
// Returns a label for every participating shape. Shapes that do not take part
// are absent from the map.
//
// # Rules
//
// Candidates are sorted by area, largest first (equal areas by ascending ID),
// and labelled in this exact order:
//
//  1. No candidates: no labels.
//  2. One candidate: Dorsal.
//  3. Two or more: the largest (A) is Dorsal. The second largest (B) is
//     Ventral only if height, width and area all satisfy
//     |v1-v2| / max(v1,v2) <= τ.
//  4. Platform: the first unlabelled candidate whose height AND width are
//     both strictly smaller than A's. Scanning stops at the first match.
//  5. Lateral: the first unlabelled candidate. Scanning stops at the first match.
//  6. Everything else is Unclassified.
//
// The rules encode expert heuristics for flake photographs (a dorsal face, an
// optional mirrored ventral face, a small striking platform and a profile
// view). The first-match semantics are significant when several shapes could
// satisfy rules 4 or 5.
func Classify(shapes []Shape, retained []int, tolerance float64) map[int]Label {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	candidates := make([]int, 0, len(retained))
	for _, id := range retained {
		if id < 0 || id >= len(shapes) {
			continue
		}
		if shapes[id].IsTopLevel() {
			candidates = append(candidates, id)
		}
	}
	sortByAreaDesc(shapes, candidates)

	labels := make(map[int]Label, len(candidates))
	if len(candidates) == 0 {
		return labels
	}

	a := shapes[candidates[0]]
	labels[a.ID] = LabelDorsal

	if len(candidates) > 1 {
		b := shapes[candidates[1]]
		if sameFace(a, b, tolerance) {
			labels[b.ID] = LabelVentral
		}
	}

	for _, id := range candidates {
		if _, ok := labels[id]; ok {
			continue
		}
		s := shapes[id]
		if s.BoundingBox.Height < a.BoundingBox.Height && s.BoundingBox.Width < a.BoundingBox.Width {
			labels[id] = LabelPlatform
			break
		}
	}

	for _, id := range candidates {
		if _, ok := labels[id]; ok {
			continue
		}
		labels[id] = LabelLateral
		break
	}

	for _, id := range candidates {
		if _, ok := labels[id]; !ok {
			labels[id] = LabelUnclassified
		}
	}
	return labels
}

// sameFace reports whether two shapes have matching height, width and area
// within tolerance, i.e. they are the two opposing faces of one flake.
func sameFace(a, b Shape, tolerance float64) bool {
	return withinTolerance(float64(a.BoundingBox.Height), float64(b.BoundingBox.Height), tolerance) &&
		withinTolerance(float64(a.BoundingBox.Width), float64(b.BoundingBox.Width), tolerance) &&
		withinTolerance(a.AreaPx, b.AreaPx, tolerance)
}

// withinTolerance reports whether |v1-v2| / max(v1,v2) <= tolerance.
// Two zero values are equal.
func withinTolerance(v1, v2, tolerance float64) bool {
	m := math.Max(v1, v2)
	if m == 0 {
		return v1 == v2
	}
	return math.Abs(v1-v2)/m <= tolerance
}
