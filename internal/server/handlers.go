package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/lithic-tools-mcp/internal/calibration"
	"github.com/ironsheep/lithic-tools-mcp/internal/export"
	limaging "github.com/ironsheep/lithic-tools-mcp/internal/imaging"
	"github.com/ironsheep/lithic-tools-mcp/internal/render"
	"github.com/ironsheep/lithic-tools-mcp/internal/surface"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "lithic_load", "lithic_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn().Str("tool", params.Name).Err(err).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "lithic_load":
		return s.handleLoad(args)
	case "lithic_preprocess":
		return s.handlePreprocess(args)
	case "lithic_analyze":
		return s.handleAnalyze(args)
	case "lithic_annotate":
		return s.handleAnnotate(args)
	case "lithic_intensity_check":
		return s.handleIntensityCheck(args)
	case "lithic_crop_surface":
		return s.handleCropSurface(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Shared arguments ===

type calibrationArgs struct {
	ConversionFactor float64 `json:"conversion_factor"`
	PixelsPerMM      float64 `json:"pixels_per_mm"`
	DPI              float64 `json:"dpi"`
}

type analysisArgs struct {
	Tolerance       float64 `json:"tolerance"`
	Mode            string  `json:"mode"`
	ThresholdMethod string  `json:"threshold_method"`
}

// conversionFactor resolves the pixels² per mm² factor for path from the
// explicit arguments, falling back to the DPI in the image header.
func conversionFactor(path string, c calibrationArgs) (float64, string, error) {
	if c.ConversionFactor != 0 {
		return c.ConversionFactor, "manual", nil
	}

	var (
		scale calibration.Scale
		err   error
	)
	switch {
	case c.PixelsPerMM != 0:
		scale, err = calibration.FromPixelsPerMM(c.PixelsPerMM)
	case c.DPI != 0:
		scale, err = calibration.FromDPI(c.DPI)
	default:
		var dpi float64
		dpi, err = calibration.ReadDPI(path)
		if errors.Is(err, calibration.ErrMissingDPI) {
			return 0, "", fmt.Errorf("%w: pass dpi, pixels_per_mm or conversion_factor", err)
		}
		if err == nil {
			scale, err = calibration.FromDPI(dpi)
		}
	}
	if err != nil {
		return 0, "", err
	}
	return scale.AreaFactor(), scale.Source, nil
}

// analyze preprocesses and analyzes the image at path with the server
// configuration, applying per-call overrides.
func (s *Server) analyze(path string, a analysisArgs, factor float64) (image.Image, *surface.Inventory, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, nil, err
	}

	popts := s.cfg.PreprocessOptions()
	if a.ThresholdMethod != "" {
		popts.ThresholdMethod = a.ThresholdMethod
	}
	binary, err := limaging.Preprocess(img, popts)
	if err != nil {
		return nil, nil, err
	}

	sopts := s.cfg.SurfaceOptions()
	if a.Tolerance != 0 {
		if a.Tolerance < 0 || a.Tolerance >= 1 {
			return nil, nil, fmt.Errorf("tolerance %v outside (0,1)", a.Tolerance)
		}
		sopts.Tolerance = a.Tolerance
	}
	switch a.Mode {
	case "":
	case "external":
		sopts.Mode = surface.RetrieveExternal
	case "tree":
		sopts.Mode = surface.RetrieveTree
	default:
		return nil, nil, fmt.Errorf("unknown mode %q", a.Mode)
	}

	inv, err := surface.Analyze(binary, factor, sopts)
	if err != nil {
		return nil, nil, err
	}
	return img, inv, nil
}

// === Tool handlers ===

type loadArgs struct {
	Path string `json:"path"`
}

type loadResult struct {
	*limaging.ImageInfo
	DPI         float64 `json:"dpi,omitempty"`
	PixelsPerMM float64 `json:"pixels_per_mm,omitempty"`
}

func (s *Server) handleLoad(args json.RawMessage) (interface{}, error) {
	var a loadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	info, err := limaging.LoadImageInfo(s.cache, a.Path)
	if err != nil {
		return nil, err
	}

	res := &loadResult{ImageInfo: info}
	if dpi, err := calibration.ReadDPI(a.Path); err == nil {
		if scale, err := calibration.FromDPI(dpi); err == nil {
			res.DPI = dpi
			res.PixelsPerMM = scale.PixelsPerMM
		}
	}
	return res, nil
}

type preprocessArgs struct {
	Path            string `json:"path"`
	ThresholdMethod string `json:"threshold_method"`
	ThresholdValue  *int   `json:"threshold_value"`
	GrayscaleMethod string `json:"grayscale_method"`
	Invert          *bool  `json:"invert"`
}

type preprocessResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// ForegroundFraction is the share of pixels classed as artifact.
	ForegroundFraction float64 `json:"foreground_fraction"`
}

func (s *Server) handlePreprocess(args json.RawMessage) (interface{}, error) {
	var a preprocessArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	opts := s.cfg.PreprocessOptions()
	if a.ThresholdMethod != "" {
		opts.ThresholdMethod = a.ThresholdMethod
	}
	if a.ThresholdValue != nil {
		if *a.ThresholdValue < 0 || *a.ThresholdValue > 255 {
			return nil, fmt.Errorf("threshold_value %d outside [0,255]", *a.ThresholdValue)
		}
		opts.ThresholdValue = uint8(*a.ThresholdValue)
	}
	if a.GrayscaleMethod != "" {
		opts.Grayscale = true
		opts.GrayscaleMethod = a.GrayscaleMethod
	}
	if a.Invert != nil {
		opts.Invert = *a.Invert
	}

	binary, err := limaging.Preprocess(img, opts)
	if err != nil {
		return nil, err
	}

	fg := 0
	for _, v := range binary.Pix {
		if v != 0 {
			fg++
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, binary, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	w, h := binary.Rect.Dx(), binary.Rect.Dy()
	return &preprocessResult{
		Width:              w,
		Height:             h,
		ImageBase64:        base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:           "image/png",
		ForegroundFraction: float64(fg) / float64(w*h),
	}, nil
}

type analyzeArgs struct {
	Path string `json:"path"`
	calibrationArgs
	analysisArgs
	IncludeOutlines   bool    `json:"include_outlines"`
	SimplifyTolerance float64 `json:"simplify_tolerance"`
}

type analyzeResult struct {
	Path             string                `json:"path"`
	ConversionFactor float64               `json:"conversion_factor"`
	ScaleSource      string                `json:"scale_source"`
	Shapes           int                   `json:"shapes"`
	Discarded        []int                 `json:"discarded"`
	Labels           map[surface.Label]int `json:"labels"`
	Surfaces         []export.Row          `json:"surfaces"`
}

func (s *Server) handleAnalyze(args json.RawMessage) (interface{}, error) {
	var a analyzeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	factor, source, err := conversionFactor(a.Path, a.calibrationArgs)
	if err != nil {
		return nil, err
	}
	_, inv, err := s.analyze(a.Path, a.analysisArgs, factor)
	if err != nil {
		return nil, err
	}

	return &analyzeResult{
		Path:             a.Path,
		ConversionFactor: factor,
		ScaleSource:      source,
		Shapes:           len(inv.Shapes),
		Discarded:        inv.Discarded,
		Labels:           inv.LabelCounts(),
		Surfaces: export.Rows(a.Path, inv, export.RowOptions{
			IncludeOutline:    a.IncludeOutlines,
			SimplifyTolerance: a.SimplifyTolerance,
		}),
	}, nil
}

type annotateArgs struct {
	Path string `json:"path"`
	analysisArgs
	ShowOutlines bool   `json:"show_outlines"`
	OutputPath   string `json:"output_path"`
}

type annotateResult struct {
	*render.AnnotateResult
	SavedPath string `json:"saved_path,omitempty"`
}

func (s *Server) handleAnnotate(args json.RawMessage) (interface{}, error) {
	var a annotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	// Labels do not depend on physical scale.
	img, inv, err := s.analyze(a.Path, a.analysisArgs, 1)
	if err != nil {
		return nil, err
	}

	opts := s.cfg.RenderOptions()
	opts.ShowOutlines = opts.ShowOutlines || a.ShowOutlines
	encoded, err := render.AnnotateEncoded(img, inv, opts)
	if err != nil {
		return nil, err
	}
	res := &annotateResult{AnnotateResult: encoded}
	if a.OutputPath != "" {
		if err := render.AnnotateFile(img, inv, opts, a.OutputPath); err != nil {
			return nil, err
		}
		res.SavedPath = a.OutputPath
	}
	return res, nil
}

type intensityArgs struct {
	Path string `json:"path"`
	analysisArgs
	SurfaceID *int `json:"surface_id"`
}

type surfaceIntensity struct {
	SurfaceID int           `json:"surface_id"`
	Label     surface.Label `json:"label"`
	surface.IntensityProfile
}

type intensityResult struct {
	Surfaces   []surfaceIntensity `json:"surfaces"`
	NarrowHigh []int              `json:"narrow_high"`
}

func (s *Server) handleIntensityCheck(args json.RawMessage) (interface{}, error) {
	var a intensityArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, inv, err := s.analyze(a.Path, a.analysisArgs, 1)
	if err != nil {
		return nil, err
	}

	targets := inv.Surfaces()
	if a.SurfaceID != nil {
		sf, err := findSurface(inv, *a.SurfaceID)
		if err != nil {
			return nil, err
		}
		targets = []surface.Shape{sf}
	}

	popts := s.cfg.PreprocessOptions()
	popts.Grayscale = true
	gray, err := limaging.ToGrayscale(img, popts)
	if err != nil {
		return nil, err
	}

	res := &intensityResult{Surfaces: []surfaceIntensity{}, NarrowHigh: []int{}}
	for _, sf := range targets {
		p, err := limaging.ProfileSurface(gray, sf)
		if err != nil {
			return nil, err
		}
		res.Surfaces = append(res.Surfaces, surfaceIntensity{SurfaceID: sf.ID, Label: sf.Label, IntensityProfile: p})
		if p.NarrowHigh {
			res.NarrowHigh = append(res.NarrowHigh, sf.ID)
		}
	}
	sort.Ints(res.NarrowHigh)
	return res, nil
}

type cropSurfaceArgs struct {
	Path string `json:"path"`
	analysisArgs
	Label     string  `json:"label"`
	SurfaceID *int    `json:"surface_id"`
	Padding   *int    `json:"padding"`
	Scale     float64 `json:"scale"`
}

type cropSurfaceResult struct {
	*limaging.CropResult
	SurfaceID int           `json:"surface_id"`
	Label     surface.Label `json:"label"`
}

func (s *Server) handleCropSurface(args json.RawMessage) (interface{}, error) {
	var a cropSurfaceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	padding := 10
	if a.Padding != nil {
		padding = *a.Padding
	}

	img, inv, err := s.analyze(a.Path, a.analysisArgs, 1)
	if err != nil {
		return nil, err
	}

	var sf surface.Shape
	if a.SurfaceID != nil {
		sf, err = findSurface(inv, *a.SurfaceID)
		if err != nil {
			return nil, err
		}
	} else {
		label := surface.Label(a.Label)
		if label == surface.LabelNone {
			label = surface.LabelDorsal
		}
		var ok bool
		if sf, ok = inv.Labelled(label); !ok {
			return nil, fmt.Errorf("no %s surface found", label)
		}
	}

	crop, err := limaging.CropSurface(img, sf.BoundingBox, padding, a.Scale)
	if err != nil {
		return nil, err
	}
	return &cropSurfaceResult{CropResult: crop, SurfaceID: sf.ID, Label: sf.Label}, nil
}

// findSurface returns the labelled surface with the given id.
func findSurface(inv *surface.Inventory, id int) (surface.Shape, error) {
	for _, sf := range inv.Surfaces() {
		if sf.ID == id {
			return sf, nil
		}
	}
	return surface.Shape{}, fmt.Errorf("surface %d not found", id)
}
