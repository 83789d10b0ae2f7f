package surface

import (
	"image"

	"github.com/theodesp/unionfind"
)

// RetrievalMode selects which outlines Extract returns.
type RetrievalMode int

const (
	// RetrieveExternal returns only outermost shapes. Every shape is
	// top-level by construction.
	RetrieveExternal RetrievalMode = iota

	// RetrieveTree returns every foreground component together with the
	// component whose hole encloses it.
	RetrieveTree
)

// Approximation selects how outline points are stored.
type Approximation int

const (
	// ApproxSimple keeps only the end points of horizontal, vertical and
	// diagonal runs.
	ApproxSimple Approximation = iota

	// ApproxNone keeps every boundary pixel.
	ApproxNone
)

// Defaults for Options.
const (
	DefaultMinArea   = 100.0
	DefaultTolerance = 0.05
)

// Options controls extraction and classification.
type Options struct {
	// Mode selects external-only or full-tree extraction.
	Mode RetrievalMode

	// Approximation selects compressed or full outlines.
	Approximation Approximation

	// MinArea is the absolute noise floor in pixels². Shapes whose area is
	// not greater than MinArea are discarded. Values <= 0 use DefaultMinArea.
	MinArea float64

	// Tolerance is the relative dimension tolerance of the Dorsal/Ventral
	// comparison. Values <= 0 use DefaultTolerance.
	Tolerance float64
}

// DefaultOptions returns external-only extraction with compressed outlines.
func DefaultOptions() Options {
	return Options{
		Mode:          RetrieveExternal,
		Approximation: ApproxSimple,
		MinArea:       DefaultMinArea,
		Tolerance:     DefaultTolerance,
	}
}

func (o Options) withDefaults() Options {
	if o.MinArea <= 0 {
		o.MinArea = DefaultMinArea
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// neighbour offsets in clockwise order (y grows downward): E, SE, S, SW, W, NW, N, NE.
var ring = [8]image.Point{
	{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
	{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
}

const dirWest = 4

// component summarizes one labelled region.
type component struct {
	first         image.Point // first pixel in raster order
	pixels        int
	touchesBorder bool
}

// Extract finds the closed outlines in a mask.
//
// Foreground regions are 8-connected and background regions 4-connected.
// Each foreground region yields one shape traced along its outer boundary.
// Shapes are returned in raster order of their first pixel with IDs assigned
// in that order; parent links refer to those IDs. Only Outline, ID and
// ParentID are populated; call Measure for metrics.
//
// Shapes whose polygon area does not exceed opts.MinArea are dropped before
// IDs are assigned. A mask with no foreground yields an empty slice.
func Extract(mask *Mask, opts Options) []Shape {
	opts = opts.withDefaults()
	if mask == nil || mask.Width <= 0 || mask.Height <= 0 {
		return []Shape{}
	}

	fgLabels, fgComps := labelComponents(mask, true)
	bgLabels, bgComps := labelComponents(mask, false)

	// parent[i] is the enclosing foreground component of component i+1, or 0.
	parent := make([]int, len(fgComps))
	for i, c := range fgComps {
		parent[i] = enclosingComponent(mask, c.first, fgLabels, bgLabels, bgComps)
	}

	type candidate struct {
		outline []image.Point
		parent  int
	}
	kept := make(map[int]int) // component label -> shape ID
	candidates := make([]candidate, 0, len(fgComps))

	for i, c := range fgComps {
		label := i + 1
		if opts.Mode == RetrieveExternal && parent[i] != 0 {
			continue
		}
		outline := traceBoundary(fgLabels, mask.Width, mask.Height, label, c)
		if opts.Approximation == ApproxSimple {
			outline = compressOutline(outline)
		}
		if polygonArea(outline) <= opts.MinArea {
			continue
		}
		kept[label] = len(candidates)
		candidates = append(candidates, candidate{outline: outline, parent: parent[i]})
	}

	shapes := make([]Shape, len(candidates))
	for id, c := range candidates {
		parentID := NoParent
		// Climb past dropped ancestors to the nearest kept one.
		for p := c.parent; p != 0; p = parent[p-1] {
			if pid, ok := kept[p]; ok {
				parentID = pid
				break
			}
		}
		shapes[id] = Shape{
			ID:            id,
			Outline:       c.outline,
			ParentID:      parentID,
			TopAncestorID: id,
		}
	}
	return shapes
}

// labelComponents labels the pixels whose mask value equals fg. Foreground
// uses 8-connectivity, background 4-connectivity. Labels run from 1 in
// raster order of each component's first pixel; unlabelled pixels are 0.
func labelComponents(mask *Mask, fg bool) ([]int, []component) {
	w, h := mask.Width, mask.Height
	labels := make([]int, w*h)
	uf := unionfind.NewThreadSafeUnionFind(w*h + 1)

	next := 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if mask.Pix[i] != fg {
				continue
			}

			neighbours := [4]int{}
			n := 0
			if x > 0 && labels[i-1] != 0 {
				neighbours[n] = labels[i-1]
				n++
			}
			if y > 0 && labels[i-w] != 0 {
				neighbours[n] = labels[i-w]
				n++
			}
			if fg && y > 0 {
				if x > 0 && labels[i-w-1] != 0 {
					neighbours[n] = labels[i-w-1]
					n++
				}
				if x < w-1 && labels[i-w+1] != 0 {
					neighbours[n] = labels[i-w+1]
					n++
				}
			}

			if n == 0 {
				labels[i] = next
				next++
				continue
			}
			labels[i] = neighbours[0]
			for k := 1; k < n; k++ {
				if neighbours[k] != neighbours[0] {
					uf.Union(neighbours[0], neighbours[k])
				}
			}
		}
	}

	// Second pass: collapse provisional labels onto their roots and renumber
	// them in raster order.
	final := make(map[int]int)
	comps := make([]component, 0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if labels[i] == 0 {
				continue
			}
			root := uf.Root(labels[i])
			if root < 0 {
				root = labels[i]
			}
			l, ok := final[root]
			if !ok {
				comps = append(comps, component{first: image.Point{X: x, Y: y}})
				l = len(comps)
				final[root] = l
			}
			labels[i] = l
			c := &comps[l-1]
			c.pixels++
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				c.touchesBorder = true
			}
		}
	}
	return labels, comps
}

// enclosingComponent returns the foreground label whose hole contains the
// foreground component starting at first, or 0 when it is outermost.
//
// The pixel left of a component's first pixel lies in the background region
// around it. If that region reaches the image border the component is
// outermost; otherwise the region is a hole whose own first pixel has the
// enclosing foreground component immediately to its left.
func enclosingComponent(mask *Mask, first image.Point, fgLabels, bgLabels []int, bgComps []component) int {
	if first.X == 0 {
		return 0
	}
	w := mask.Width
	hole := bgLabels[first.Y*w+first.X-1]
	if hole == 0 {
		return 0
	}
	bg := bgComps[hole-1]
	if bg.touchesBorder {
		return 0
	}
	return fgLabels[bg.first.Y*w+bg.first.X-1]
}

// traceBoundary follows the outer border of a foreground component using
// Suzuki-Abe border following. The trace starts at the component's first
// raster pixel and returns every border pixel in order.
func traceBoundary(labels []int, w, h, label int, c component) []image.Point {
	inside := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && labels[p.Y*w+p.X] == label
	}

	start := c.first
	// Look clockwise from the west neighbour for the last border pixel.
	last, found := image.Point{}, false
	for k := 1; k < 8; k++ {
		p := start.Add(ring[(dirWest+k)%8])
		if inside(p) {
			last, found = p, true
			break
		}
	}
	if !found {
		return []image.Point{start}
	}

	outline := make([]image.Point, 0, 64)
	prev, cur := last, start
	maxSteps := 4*c.pixels + 8
	for step := 0; step < maxSteps; step++ {
		// Examine neighbours counter-clockwise, starting after prev.
		k := directionIndex(prev.Sub(cur))
		next := prev
		for t := 1; t <= 8; t++ {
			p := cur.Add(ring[(k-t+8)%8])
			if inside(p) {
				next = p
				break
			}
		}
		outline = append(outline, cur)
		if next == start && cur == last {
			break
		}
		prev, cur = cur, next
	}
	return outline
}

func directionIndex(d image.Point) int {
	for i, r := range ring {
		if r == d {
			return i
		}
	}
	return 0
}

// compressOutline drops points that continue the direction of the previous
// step, keeping only the corners of each straight run.
func compressOutline(outline []image.Point) []image.Point {
	n := len(outline)
	if n < 3 {
		return outline
	}
	out := make([]image.Point, 0, n/2+1)
	for i := 0; i < n; i++ {
		prev := outline[(i-1+n)%n]
		cur := outline[i]
		next := outline[(i+1)%n]
		if cur.Sub(prev) != next.Sub(cur) {
			out = append(out, cur)
		}
	}
	if len(out) == 0 {
		return outline[:1]
	}
	return out
}
