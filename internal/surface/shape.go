package surface

import (
	"image"
	"sort"
)

// NoParent is the ParentID of a shape that is not nested inside another.
const NoParent = -1

// Label is the archaeological surface type assigned to a top-level shape.
type Label string

// Surface labels. LabelNone marks shapes that were never classified, either
// because they were discarded as duplicates or because they are nested.
const (
	LabelNone         Label = ""
	LabelDorsal       Label = "Dorsal"
	LabelVentral      Label = "Ventral"
	LabelPlatform     Label = "Platform"
	LabelLateral      Label = "Lateral"
	LabelUnclassified Label = "Unclassified"
)

// Box is an axis-aligned bounding box in pixels.
//
// X and Y are the top-left corner. Width and Height count pixels, so a single
// pixel has Width = Height = 1.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the box to an image.Rectangle with an exclusive max corner.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Centroid is a sub-pixel position.
type Centroid struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is one closed outline detected in a mask.
//
// Shapes are created once by Extract. Measure fills the metric fields and
// ResolveTopAncestors and Classify populate TopAncestorID and Label; nothing
// else mutates a shape afterwards.
type Shape struct {
	// ID is the extraction-order identifier and the shape's index in its arena.
	ID int `json:"id"`

	// Outline is the closed boundary as pixel-centre coordinates. The first
	// point is not repeated at the end.
	Outline []image.Point `json:"outline"`

	// BoundingBox encloses every outline point.
	BoundingBox Box `json:"bounding_box"`

	// AreaPx is the polygon (shoelace) area of the outline in pixels².
	AreaPx float64 `json:"area_px"`

	// AreaPhysical is AreaPx divided by the conversion factor.
	AreaPhysical float64 `json:"area_physical"`

	// Centroid is the arithmetic mean of the outline points.
	Centroid Centroid `json:"centroid"`

	// Length is the number of outline points.
	Length int `json:"length"`

	// ParentID is the immediately enclosing shape, or NoParent.
	ParentID int `json:"parent_id"`

	// TopAncestorID is the root of the shape's nesting chain (its own ID
	// when top-level).
	TopAncestorID int `json:"top_ancestor_id"`

	// Label is the surface type, LabelNone until classified.
	Label Label `json:"label,omitempty"`
}

// IsTopLevel reports whether the shape is the root of its nesting chain.
func (s Shape) IsTopLevel() bool {
	return s.TopAncestorID == s.ID
}

// Inventory is the result of analyzing one image.
//
// Shapes holds every extracted shape in ID order and is never pruned, so the
// extraction result stays traceable. Duplicate filtering is expressed as the
// Retained and Discarded views.
type Inventory struct {
	// Shapes contains every extracted shape, indexed by ID.
	Shapes []Shape `json:"shapes"`

	// Retained lists the IDs that survived duplicate filtering, largest area first.
	Retained []int `json:"retained"`

	// Discarded lists the IDs removed by duplicate filtering in ascending order.
	Discarded []int `json:"discarded"`

	// ConversionFactor is the pixels² per unit² factor used for AreaPhysical.
	ConversionFactor float64 `json:"conversion_factor"`
}

// Empty reports whether no shape survived extraction and filtering.
func (inv *Inventory) Empty() bool {
	return inv == nil || len(inv.Retained) == 0
}

// Shape returns the shape with the given ID.
func (inv *Inventory) Shape(id int) (Shape, bool) {
	if inv == nil || id < 0 || id >= len(inv.Shapes) {
		return Shape{}, false
	}
	return inv.Shapes[id], true
}

// Surfaces returns the retained, labelled shapes in descending area order.
// Nested shapes and discarded duplicates are not included.
func (inv *Inventory) Surfaces() []Shape {
	if inv == nil {
		return nil
	}
	out := make([]Shape, 0, len(inv.Retained))
	for _, id := range inv.Retained {
		s := inv.Shapes[id]
		if s.Label == LabelNone {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Labelled returns the shape holding label, if any.
func (inv *Inventory) Labelled(label Label) (Shape, bool) {
	for _, s := range inv.Surfaces() {
		if s.Label == label {
			return s, true
		}
	}
	return Shape{}, false
}

// LabelCounts returns how many surfaces hold each label.
func (inv *Inventory) LabelCounts() map[Label]int {
	counts := make(map[Label]int)
	for _, s := range inv.Surfaces() {
		counts[s.Label]++
	}
	return counts
}

// sortByAreaDesc orders ids by descending area. Equal areas keep ascending
// id order so the result is deterministic.
func sortByAreaDesc(shapes []Shape, ids []int) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := shapes[ids[i]], shapes[ids[j]]
		if a.AreaPx != b.AreaPx {
			return a.AreaPx > b.AreaPx
		}
		return a.ID < b.ID
	})
}
