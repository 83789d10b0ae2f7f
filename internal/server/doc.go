// Package server implements the MCP (Model Context Protocol) server for lithic
// artifact analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes the surface
// analysis pipeline to MCP clients, so an assistant can load a flake
// photograph, check its segmentation and read back classified surfaces.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr through the configured zerolog logger so they never mix
// with protocol output.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - lithic_load: Load a photograph and report its size and DPI
//   - lithic_preprocess: Return the binary silhouette used for extraction
//   - lithic_analyze: Classify surfaces and report their measurements
//   - lithic_annotate: Draw labelled bounding boxes on the photograph
//   - lithic_intensity_check: Flag flat or overexposed surfaces
//   - lithic_crop_surface: Crop one surface by label or id
//
// Preprocessing and analysis defaults come from the server configuration;
// most tools accept per-call overrides.
//
// # Calibration
//
// lithic_analyze converts areas to mm². The scale is taken from the first of
// conversion_factor, pixels_per_mm and dpi that is present, and otherwise
// from the DPI in the image header. Images without any scale are rejected.
// The other tools work in pixels and need no scale.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
// The server is typically started by an MCP client through `lithics serve`:
//
//	srv := server.New(cfg, logger, version)
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    logger.Fatal().Err(err).Msg("server stopped")
//	}
package server
