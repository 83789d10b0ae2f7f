package surface

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImage is returned when the input is not a usable 2D image.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidConversionFactor is returned when the conversion factor is
	// zero, negative, NaN or infinite.
	ErrInvalidConversionFactor = errors.New("invalid conversion factor")

	// ErrMalformedHierarchy is returned when parent links contain a cycle or
	// reference a shape that does not exist.
	ErrMalformedHierarchy = errors.New("malformed hierarchy")
)

// HierarchyError describes where ancestor resolution failed.
type HierarchyError struct {
	// ShapeID is the shape whose ancestor chain could not be resolved.
	ShapeID int

	// ParentID is the offending parent reference.
	ParentID int

	// Cycle is true when the chain loops back on itself, false for a
	// dangling parent reference.
	Cycle bool
}

func (e *HierarchyError) Error() string {
	if e.Cycle {
		return fmt.Sprintf("malformed hierarchy: cycle through shape %d (parent %d)", e.ShapeID, e.ParentID)
	}
	return fmt.Sprintf("malformed hierarchy: shape %d references missing parent %d", e.ShapeID, e.ParentID)
}

// Is reports whether target is ErrMalformedHierarchy.
func (e *HierarchyError) Is(target error) bool {
	return target == ErrMalformedHierarchy
}
