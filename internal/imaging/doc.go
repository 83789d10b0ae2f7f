// Package imaging turns photographs of lithic artifacts into the binary masks
// the surface analyzer works on, and provides the image-side helpers the
// analysis needs afterwards.
//
// # Preprocessing
//
// Preprocess runs the configurable pipeline used before shape extraction:
//
//  1. Grayscale conversion: "standard" luminance or "clahe" (contrast limited
//     adaptive histogram equalization, 8x8 tiles, clip limit 2.0).
//  2. Contrast normalization: "minmax" stretching into clip values, or
//     "zscore" standardization.
//  3. Gaussian blur with σ 1.1 to suppress sensor noise.
//  4. Thresholding: "simple" (fixed level), "otsu", or "adaptive" (Gaussian
//     weighted local mean minus a constant). "default" is adaptive.
//  5. Inversion, so the dark artifact drawing becomes white foreground.
//
// Each step can be disabled or swapped through PreprocessOptions. The result
// is always an *image.Gray with foreground at 255 and background at 0.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner. For
// regions, the minimum corner is inclusive and the maximum corner exclusive.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and can run concurrently on different images.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as unknown method names,
// regions outside the image, and file I/O or encoding failures. Unknown
// method names wrap ErrUnsupportedMethod.
package imaging
