// Package export flattens analysis results into per-surface rows and writes
// them as CSV, JSON or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
	"go.yaml.in/yaml/v3"

	"github.com/ironsheep/lithic-tools-mcp/internal/surface"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnsupportedFormat is returned for unknown output formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Row is one labelled surface of one image.
type Row struct {
	ImageID       string  `json:"image_id" yaml:"image_id"`
	SurfaceID     int     `json:"surface_id" yaml:"surface_id"`
	Label         string  `json:"label" yaml:"label"`
	AreaPx        float64 `json:"area_px" yaml:"area_px"`
	AreaMM2       float64 `json:"area_mm2" yaml:"area_mm2"`
	X             int     `json:"x" yaml:"x"`
	Y             int     `json:"y" yaml:"y"`
	WidthPx       int     `json:"width_px" yaml:"width_px"`
	HeightPx      int     `json:"height_px" yaml:"height_px"`
	WidthMM       float64 `json:"width_mm" yaml:"width_mm"`
	HeightMM      float64 `json:"height_mm" yaml:"height_mm"`
	CentroidX     float64 `json:"centroid_x" yaml:"centroid_x"`
	CentroidY     float64 `json:"centroid_y" yaml:"centroid_y"`
	TopAncestorID int     `json:"top_ancestor_id" yaml:"top_ancestor_id"`

	// NarrowHigh is nil when the intensity check did not run.
	NarrowHigh *bool `json:"narrow_high,omitempty" yaml:"narrow_high,omitempty"`

	// Outline is only written by the JSON and YAML encoders.
	Outline [][2]float64 `json:"outline,omitempty" yaml:"outline,omitempty"`
}

var csvHeader = []string{
	"image_id", "surface_id", "label", "area_px", "area_mm2",
	"x", "y", "width_px", "height_px", "width_mm", "height_mm",
	"centroid_x", "centroid_y", "top_ancestor_id", "narrow_high",
}

// RowOptions controls how rows are built from an inventory.
type RowOptions struct {
	// Profiles holds intensity results keyed by shape ID.
	Profiles map[int]surface.IntensityProfile

	// IncludeOutline attaches each surface's outline.
	IncludeOutline bool

	// SimplifyTolerance is the Douglas-Peucker threshold in pixels applied to
	// outlines. Zero keeps every point.
	SimplifyTolerance float64
}

// Rows builds one row per labelled surface of inv, largest first.
func Rows(imageID string, inv *surface.Inventory, opts RowOptions) []Row {
	surfaces := inv.Surfaces()
	rows := make([]Row, 0, len(surfaces))

	// The factor is px² per mm², so lengths scale by its square root.
	pxPerMM := 0.0
	if inv != nil && inv.ConversionFactor > 0 {
		pxPerMM = math.Sqrt(inv.ConversionFactor)
	}

	for _, s := range surfaces {
		r := Row{
			ImageID:       imageID,
			SurfaceID:     s.ID,
			Label:         string(s.Label),
			AreaPx:        s.AreaPx,
			AreaMM2:       s.AreaPhysical,
			X:             s.BoundingBox.X,
			Y:             s.BoundingBox.Y,
			WidthPx:       s.BoundingBox.Width,
			HeightPx:      s.BoundingBox.Height,
			CentroidX:     s.Centroid.X,
			CentroidY:     s.Centroid.Y,
			TopAncestorID: s.TopAncestorID,
		}
		if pxPerMM > 0 {
			r.WidthMM = float64(s.BoundingBox.Width) / pxPerMM
			r.HeightMM = float64(s.BoundingBox.Height) / pxPerMM
		}
		if p, ok := opts.Profiles[s.ID]; ok {
			narrow := p.NarrowHigh
			r.NarrowHigh = &narrow
		}
		if opts.IncludeOutline {
			r.Outline = Outline(s, opts.SimplifyTolerance)
		}
		rows = append(rows, r)
	}
	return rows
}

// Outline returns the shape's outline as [x, y] pairs, simplified with
// Douglas-Peucker when tolerance > 0.
func Outline(s surface.Shape, tolerance float64) [][2]float64 {
	ring := make(orb.Ring, 0, len(s.Outline)+1)
	for _, p := range s.Outline {
		ring = append(ring, orb.Point{float64(p.X), float64(p.Y)})
	}
	if len(ring) == 0 {
		return nil
	}
	if tolerance > 0 {
		ring = append(ring, ring[0])
		ring = simplify.DouglasPeucker(tolerance).Ring(ring)
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
	}

	out := make([][2]float64, len(ring))
	for i, p := range ring {
		out[i] = [2]float64{p.X(), p.Y()}
	}
	return out
}

// Write encodes rows to w in the given format.
func Write(w io.Writer, format string, rows []Row) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, rows)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// WriteFile writes rows to path, replacing any existing file.
func WriteFile(path, format string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Write(f, format, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		narrow := ""
		if r.NarrowHigh != nil {
			narrow = strconv.FormatBool(*r.NarrowHigh)
		}
		record := []string{
			r.ImageID,
			strconv.Itoa(r.SurfaceID),
			r.Label,
			formatFloat(r.AreaPx),
			formatFloat(r.AreaMM2),
			strconv.Itoa(r.X),
			strconv.Itoa(r.Y),
			strconv.Itoa(r.WidthPx),
			strconv.Itoa(r.HeightPx),
			formatFloat(r.WidthMM),
			formatFloat(r.HeightMM),
			formatFloat(r.CentroidX),
			formatFloat(r.CentroidY),
			strconv.Itoa(r.TopAncestorID),
			narrow,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
