// Package surface extracts, de-duplicates and labels the surfaces of lithic
// artifacts in segmented images.
//
// The package is the analytical core of the server. It consumes a binary mask
// (foreground = artifact silhouette) and a conversion factor, and produces an
// Inventory of shapes with metrics, nesting hierarchy and archaeological
// surface labels. It performs no file I/O and holds no state between calls,
// so separate images may be analyzed concurrently.
//
// # Pipeline
//
// Analyze runs the stages in order:
//
//  1. Extract: connected-component labelling and Suzuki-Abe border following
//     produce closed outlines and their parent links
//  2. Measure: polygon area, bounding box, centroid and physical area
//  3. ResolveTopAncestors: each shape's root in the nesting tree
//  4. FindDuplicates: relative-area noise floor and pairwise duplicate pruning
//  5. Classify: ordered rules assign Dorsal, Ventral, Platform and Lateral
//
// # Coordinate System
//
// Outline points are pixel centres with the origin at the top-left corner,
// X increasing rightward and Y increasing downward. Bounding boxes follow the
// OpenCV convention: Width = maxX - minX + 1.
//
// # Conversion Factor
//
// The conversion factor passed to Analyze and Measure is an AREA factor in
// pixels² per physical unit². AreaPhysical = AreaPx / conversionFactor. The
// calibration package produces it as PixelsPerMM², making AreaPhysical mm².
//
// # Error Handling
//
// Errors wrap one of the sentinel values ErrInvalidImage, ErrInvalidConversionFactor
// or ErrMalformedHierarchy and can be tested with errors.Is. An image with no
// surviving shapes is not an error; it yields an empty Inventory.
package surface
