package surface

// ResolveTopAncestors sets TopAncestorID on every shape by following ParentID
// links to a shape with no parent.
//
// Shapes form an index arena: a shape's ID is its position in the slice and
// ParentID refers to another position. Resolved ancestors are memoized, so
// each shape is walked at most once and the total cost is linear in the
// number of shapes regardless of nesting depth.
//
// Returns a *HierarchyError (matching ErrMalformedHierarchy) when a chain
// loops or references a missing shape. TopAncestorID values are only written
// when the whole arena resolves.
func ResolveTopAncestors(shapes []Shape) error {
	const (
		unvisited = iota
		inProgress
		resolved
	)

	n := len(shapes)
	state := make([]uint8, n)
	top := make([]int, n)
	path := make([]int, 0, 8)

	for i := range shapes {
		if state[i] == resolved {
			continue
		}

		path = path[:0]
		cur := i
		var root int
		for {
			if state[cur] == resolved {
				root = top[cur]
				break
			}
			if state[cur] == inProgress {
				return &HierarchyError{ShapeID: cur, ParentID: shapes[cur].ParentID, Cycle: true}
			}
			state[cur] = inProgress
			path = append(path, cur)

			p := shapes[cur].ParentID
			if p == NoParent {
				root = cur
				break
			}
			if p < 0 || p >= n {
				return &HierarchyError{ShapeID: cur, ParentID: p}
			}
			cur = p
		}

		for _, id := range path {
			top[id] = root
			state[id] = resolved
		}
	}

	for i := range shapes {
		shapes[i].TopAncestorID = top[i]
	}
	return nil
}
