package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is shared by every tool.
var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the artifact image",
}

// withCalibration adds the scale arguments used to convert pixel areas to
// mm². The first one present wins, in this order.
func withCalibration(props map[string]interface{}) map[string]interface{} {
	props["conversion_factor"] = map[string]interface{}{
		"type":        "number",
		"description": "Pixels² per mm². Overrides every other scale argument.",
	}
	props["pixels_per_mm"] = map[string]interface{}{
		"type":        "number",
		"description": "Linear resolution in pixels per millimetre",
	}
	props["dpi"] = map[string]interface{}{
		"type":        "number",
		"description": "Resolution in dots per inch. Defaults to the DPI stored in the image header.",
	}
	return props
}

// withAnalysis adds the surface analysis overrides.
func withAnalysis(props map[string]interface{}) map[string]interface{} {
	props["tolerance"] = map[string]interface{}{
		"type":        "number",
		"description": "Relative tolerance for matching dorsal and ventral faces. Default from config (0.05).",
	}
	props["mode"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"external", "tree"},
		"description": "Outline retrieval: outer outlines only, or the full nesting tree",
	}
	props["threshold_method"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"default", "adaptive", "simple", "otsu"},
		"description": "Binarization method. Default from config.",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "lithic_load",
			Description: "Load an artifact photograph and return its dimensions, format and, when the file records it, its DPI and pixels per millimetre.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "lithic_preprocess",
			Description: "Run the preprocessing pipeline (grayscale, contrast normalization, blur, threshold, invert) and return the binary silhouette as base64-encoded PNG. Use this to check that the artifact separates cleanly from the background before analyzing.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"threshold_method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"default", "adaptive", "simple", "otsu"},
						"description": "Binarization method. Default from config.",
					},
					"threshold_value": map[string]interface{}{
						"type":        "integer",
						"description": "Fixed level for the simple method (0-255)",
					},
					"grayscale_method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"standard", "clahe"},
						"description": "Grayscale conversion. Default from config.",
					},
					"invert": map[string]interface{}{
						"type":        "boolean",
						"description": "Swap foreground and background after thresholding",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "lithic_analyze",
			Description: "Extract the artifact's surfaces, remove noise and duplicate outlines, and classify each surface as Dorsal, Ventral, Platform, Lateral or Unclassified. Returns per-surface areas (px and mm²), bounding boxes and centroids.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withAnalysis(withCalibration(map[string]interface{}{
					"path": pathProperty,
					"include_outlines": map[string]interface{}{
						"type":        "boolean",
						"description": "Include each surface's outline points",
						"default":     false,
					},
					"simplify_tolerance": map[string]interface{}{
						"type":        "number",
						"description": "Douglas-Peucker tolerance in pixels for returned outlines. 0 keeps every point.",
						"default":     0,
					},
				})),
				"required": []string{"path"},
			},
		},
		{
			Name:        "lithic_annotate",
			Description: "Draw each classified surface's bounding box and label on the photograph and return it as base64-encoded PNG. Unclassified surfaces are drawn in red.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withAnalysis(map[string]interface{}{
					"path": pathProperty,
					"show_outlines": map[string]interface{}{
						"type":        "boolean",
						"description": "Also trace each surface outline",
						"default":     false,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to save the annotated image to",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "lithic_intensity_check",
			Description: "Profile the grayscale intensities inside each classified surface and flag narrow, high distributions (mean > 0.9, std < 0.15) that indicate flat or overexposed regions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withAnalysis(map[string]interface{}{
					"path": pathProperty,
					"surface_id": map[string]interface{}{
						"type":        "integer",
						"description": "Only check this surface",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "lithic_crop_surface",
			Description: "Crop one classified surface from the photograph and return it as base64-encoded PNG. Select the surface by label or by id.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withAnalysis(map[string]interface{}{
					"path": pathProperty,
					"label": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"Dorsal", "Ventral", "Platform", "Lateral", "Unclassified"},
						"description": "Surface label to crop",
					},
					"surface_id": map[string]interface{}{
						"type":        "integer",
						"description": "Surface id to crop (takes precedence over label)",
					},
					"padding": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels added around the bounding box. Default 10.",
						"default":     10,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
