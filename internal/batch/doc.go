// Package batch analyzes every image listed in a metadata file.
//
// A Runner loads each image, preprocesses it into a binary silhouette,
// derives the conversion factor from the image's DPI, runs the surface
// analysis and writes the results: annotated images, an export file and,
// when configured, rows in the results database.
//
// Images are processed by a bounded pool of workers. A failure affects only
// its own image; it is recorded in the Summary and the run continues.
// Cancelling the context abandons images that have not started yet.
package batch
