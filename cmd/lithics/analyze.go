package main

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ironsheep/lithic-tools-mcp/internal/batch"
	"github.com/ironsheep/lithic-tools-mcp/internal/calibration"
	"github.com/ironsheep/lithic-tools-mcp/internal/export"
	"github.com/ironsheep/lithic-tools-mcp/internal/imaging"
	"github.com/ironsheep/lithic-tools-mcp/internal/logging"
	"github.com/ironsheep/lithic-tools-mcp/internal/render"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Classify the surfaces of one artifact photograph",
	Long: `Analyze preprocesses one image, extracts and classifies its surfaces
and writes one row per surface to stdout (or --output).

The scale comes from the first of --conversion-factor, --pixels-per-mm,
--scale-bar-px (with --scale-bar) and --dpi that is set, and otherwise from
the DPI stored in the image.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.Float64("conversion-factor", 0, "pixels² per mm²")
	f.Float64("pixels-per-mm", 0, "linear resolution in pixels per millimetre")
	f.Float64("dpi", 0, "resolution in dots per inch (default: read from the image)")
	f.Float64("scale-bar", 0, "length in mm of the scale bar drawn in the image")
	f.Int("scale-bar-px", 0, "measured length in pixels of the scale bar; with --scale-bar calibrates the image")
	f.String("annotate", "", "write an annotated copy of the image to this path")
	f.String("format", "", "output format: csv, json or yaml (default from config)")
	f.StringP("output", "o", "", "write rows to this file instead of stdout")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	log := logging.Component(logger, "analyze").With().Str("image", path).Logger()

	scale, err := resolveScale(cmd, path)
	if err != nil {
		return err
	}
	if mm, _ := cmd.Flags().GetFloat64("scale-bar"); mm > 0 {
		log.Info().
			Float64("scale_mm", mm).
			Float64("scale_bar_px", scale.PixelsPerMM*mm).
			Msg("expected scale bar length")
	}

	img, err := imaging.NewImageCache().Load(path)
	if err != nil {
		return err
	}

	analysis, err := batch.Analyze(img, cfg, scale.AreaFactor())
	if err != nil {
		return err
	}
	inv := analysis.Inventory
	log.Info().
		Int("shapes", len(inv.Shapes)).
		Int("surfaces", len(inv.Surfaces())).
		Str("scale_source", scale.Source).
		Ints("narrow_high", analysis.NarrowHigh()).
		Msg("analyzed image")

	if out, _ := cmd.Flags().GetString("annotate"); out != "" {
		if err := render.AnnotateFile(img, inv, cfg.RenderOptions(), out); err != nil {
			return err
		}
		log.Info().Str("path", out).Msg("wrote annotated image")
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = cfg.Output.Format
	}
	rows := export.Rows(filepath.Base(path), inv, export.RowOptions{
		Profiles:          analysis.Profiles,
		IncludeOutline:    format != export.FormatCSV,
		SimplifyTolerance: cfg.Output.SimplifyTolerance,
	})

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return export.WriteFile(out, format, rows)
	}
	return export.Write(cmd.OutOrStdout(), format, rows)
}

// resolveScale picks the image scale from flags, falling back to the DPI in
// the image header.
func resolveScale(cmd *cobra.Command, path string) (calibration.Scale, error) {
	f := cmd.Flags()
	if v, _ := f.GetFloat64("conversion-factor"); v != 0 {
		if v < 0 {
			return calibration.Scale{}, fmt.Errorf("%w: conversion factor %v", calibration.ErrInvalidScale, v)
		}
		// An area factor is the square of the linear scale.
		return calibration.FromPixelsPerMM(math.Sqrt(v))
	}
	if v, _ := f.GetFloat64("pixels-per-mm"); v != 0 {
		return calibration.FromPixelsPerMM(v)
	}
	if px, _ := f.GetInt("scale-bar-px"); px != 0 {
		mm, _ := f.GetFloat64("scale-bar")
		return calibration.FromScaleBar(px, 0, mm)
	}
	if v, _ := f.GetFloat64("dpi"); v != 0 {
		return calibration.FromDPI(v)
	}

	dpi, err := calibration.ReadDPI(path)
	if errors.Is(err, calibration.ErrMissingDPI) {
		return calibration.Scale{}, fmt.Errorf("%w; pass --dpi, --pixels-per-mm or --conversion-factor", err)
	}
	if err != nil {
		return calibration.Scale{}, err
	}
	return calibration.FromDPI(dpi)
}
