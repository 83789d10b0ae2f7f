package surface

import (
	"fmt"
	"image"
)

// Analyze runs the full pipeline on one binary image.
//
// Parameters:
//   - img: Binary or thresholded grayscale image; non-zero pixels are foreground.
//   - conversionFactor: pixels² per physical unit² (see package docs).
//   - opts: Extraction and classification options; zero values take defaults.
//
// Returns:
//   - *Inventory: every extracted shape with metrics, ancestry and labels,
//     plus the retained/discarded views. An image without shapes yields an
//     empty (non-nil) inventory.
//   - error: wraps ErrInvalidImage, ErrInvalidConversionFactor or
//     ErrMalformedHierarchy. No partial inventory is returned on error.
//
// The result depends only on the inputs, so running Analyze twice on the same
// image and factor yields identical inventories.
func Analyze(img image.Image, conversionFactor float64, opts Options) (*Inventory, error) {
	if err := validateConversionFactor(conversionFactor); err != nil {
		return nil, err
	}
	mask, err := NewMask(img)
	if err != nil {
		return nil, err
	}
	return AnalyzeMask(mask, conversionFactor, opts)
}

// AnalyzeMask is Analyze for a mask that has already been built.
func AnalyzeMask(mask *Mask, conversionFactor float64, opts Options) (*Inventory, error) {
	if mask == nil {
		return nil, fmt.Errorf("%w: nil mask", ErrInvalidImage)
	}
	opts = opts.withDefaults()

	shapes := Extract(mask, opts)
	if err := Measure(shapes, conversionFactor); err != nil {
		return nil, err
	}
	return BuildInventory(shapes, conversionFactor, opts)
}

// BuildInventory runs hierarchy resolution, duplicate filtering and
// classification on measured shapes and wraps them in an Inventory. Shape IDs
// must equal their slice index. It takes ownership of shapes.
func BuildInventory(shapes []Shape, conversionFactor float64, opts Options) (*Inventory, error) {
	opts = opts.withDefaults()

	if err := ResolveTopAncestors(shapes); err != nil {
		return nil, fmt.Errorf("resolving top ancestors: %w", err)
	}

	discarded := FindDuplicates(shapes)
	retained := retainedIDs(shapes, discarded)

	for id, label := range Classify(shapes, retained, opts.Tolerance) {
		shapes[id].Label = label
	}

	return &Inventory{
		Shapes:           shapes,
		Retained:         retained,
		Discarded:        discarded,
		ConversionFactor: conversionFactor,
	}, nil
}
