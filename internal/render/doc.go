// Package render draws classified surfaces onto the source photograph.
//
// Each labelled surface gets its bounding box outlined in the label's colour
// with the label name written just above it. Unclassified surfaces are drawn
// in red so they stand out during review. Results can be saved next to the
// batch output or returned base64-encoded to MCP clients.
package render
