package batch

import (
	"fmt"
	"image"
	"sort"

	"github.com/ironsheep/lithic-tools-mcp/internal/config"
	"github.com/ironsheep/lithic-tools-mcp/internal/imaging"
	"github.com/ironsheep/lithic-tools-mcp/internal/surface"
)

// Analysis is the result of running the configured pipeline on one image.
type Analysis struct {
	Inventory *surface.Inventory

	// Profiles holds the intensity check per labelled surface. It is nil
	// when the check is disabled.
	Profiles map[int]surface.IntensityProfile
}

// NarrowHigh returns the IDs of surfaces flagged by the intensity check.
func (a *Analysis) NarrowHigh() []int {
	var ids []int
	for id, p := range a.Profiles {
		if p.NarrowHigh {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Analyze preprocesses img, extracts and classifies its surfaces and, when
// enabled, runs the intensity check. factor is pixels² per mm².
func Analyze(img image.Image, cfg *config.Config, factor float64) (*Analysis, error) {
	popts := cfg.PreprocessOptions()
	binary, err := imaging.Preprocess(img, popts)
	if err != nil {
		return nil, fmt.Errorf("preprocessing: %w", err)
	}

	inv, err := surface.Analyze(binary, factor, cfg.SurfaceOptions())
	if err != nil {
		return nil, fmt.Errorf("analyzing: %w", err)
	}
	a := &Analysis{Inventory: inv}

	if !cfg.Surfaces.IntensityCheck || inv.Empty() {
		return a, nil
	}

	// Sample the grayscale photograph, not the binary mask.
	popts.Grayscale = true
	gray, err := imaging.ToGrayscale(img, popts)
	if err != nil {
		return nil, fmt.Errorf("intensity check: %w", err)
	}
	a.Profiles = make(map[int]surface.IntensityProfile)
	for _, s := range inv.Surfaces() {
		p, err := imaging.ProfileSurface(gray, s)
		if err != nil {
			return nil, fmt.Errorf("intensity check on surface %d: %w", s.ID, err)
		}
		a.Profiles[s.ID] = p
	}
	return a, nil
}
