package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ironsheep/lithic-tools-mcp/internal/calibration"
	"github.com/ironsheep/lithic-tools-mcp/internal/config"
	"github.com/ironsheep/lithic-tools-mcp/internal/export"
	"github.com/ironsheep/lithic-tools-mcp/internal/imaging"
	"github.com/ironsheep/lithic-tools-mcp/internal/metadata"
	"github.com/ironsheep/lithic-tools-mcp/internal/render"
	"github.com/ironsheep/lithic-tools-mcp/internal/store"
	"github.com/ironsheep/lithic-tools-mcp/internal/surface"
)

// Image outcomes.
const (
	StatusProcessed = store.StatusProcessed
	StatusSkipped   = store.StatusSkipped
	StatusFailed    = store.StatusFailed
)

// ImageResult is the outcome for one metadata entry.
type ImageResult struct {
	ImageID string
	Path    string
	Status  string

	// Reason explains a skipped or failed image.
	Reason string

	ConversionFactor float64
	Labels           map[surface.Label]int

	// NarrowHigh lists surfaces flagged by the intensity check.
	NarrowHigh []int

	AnnotatedPath string

	rows []export.Row
}

// Summary collects the results of a run, ordered by image ID.
type Summary struct {
	Processed  int
	Skipped    int
	Failed     int
	Results    []ImageResult
	ExportPath string
}

// Total returns the number of images that were attempted.
func (s *Summary) Total() int {
	return s.Processed + s.Skipped + s.Failed
}

// Runner processes metadata entries with a fixed configuration.
type Runner struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *store.Store
	cache  *imaging.ImageCache
}

// NewRunner creates a runner. st may be nil to skip database writes.
func NewRunner(cfg *config.Config, logger zerolog.Logger, st *store.Store) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger,
		store:  st,
		cache:  imaging.NewImageCache(),
	}
}

// Run analyzes each entry's image under dataDir.
//
// Images are read from dataDir/<batch.images_dir>/<image_id>. Outputs go to
// output.dir, resolved against dataDir when relative. The returned error is
// only non-nil for failures that affect the whole run (an unwritable output
// directory, a cancelled context or a failed export); per-image problems are
// reported in the Summary.
func (r *Runner) Run(ctx context.Context, dataDir string, entries []metadata.Entry) (*Summary, error) {
	outDir := r.outputDir(dataDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	workers := r.cfg.Batch.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	r.logger.Info().
		Int("images", len(entries)).
		Int("workers", workers).
		Str("output", outDir).
		Msg("starting batch")

	jobs := make(chan metadata.Entry)
	results := make(chan ImageResult)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				results <- r.processEntry(ctx, dataDir, outDir, entry)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range entries {
			select {
			case jobs <- entry:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{}
	for res := range results {
		switch res.Status {
		case StatusProcessed:
			summary.Processed++
		case StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
	}
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].ImageID < summary.Results[j].ImageID
	})

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	var rows []export.Row
	for _, res := range summary.Results {
		rows = append(rows, res.rows...)
	}
	format := r.cfg.Output.Format
	summary.ExportPath = filepath.Join(outDir, "surfaces."+format)
	if err := export.WriteFile(summary.ExportPath, format, rows); err != nil {
		return summary, err
	}

	r.logger.Info().
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Str("export", summary.ExportPath).
		Msg("batch complete")
	return summary, nil
}

func (r *Runner) outputDir(dataDir string) string {
	dir := r.cfg.Output.Dir
	if dir == "" {
		dir = "processed"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(dataDir, dir)
}

// processEntry analyzes one image and records the outcome in the store.
func (r *Runner) processEntry(ctx context.Context, dataDir, outDir string, entry metadata.Entry) ImageResult {
	path := filepath.Join(dataDir, r.cfg.Batch.ImagesDir, entry.ImageID)
	log := r.logger.With().Str("image", entry.ImageID).Logger()

	res, rec, err := r.analyze(ctx, path, outDir, entry, log)
	res.ImageID = entry.ImageID
	res.Path = path
	rec.ImageID = entry.ImageID
	rec.Path = path

	var skip *skipError
	switch {
	case errors.As(err, &skip):
		res.Status = StatusSkipped
		res.Reason = skip.reason
		log.Warn().Str("reason", skip.reason).Msg("skipping image")
	case err != nil:
		res.Status = StatusFailed
		res.Reason = err.Error()
		log.Error().Err(err).Msg("image failed")
	default:
		res.Status = StatusProcessed
	}

	if r.store != nil {
		var serr error
		if res.Status == StatusProcessed {
			serr = r.store.SaveInventory(ctx, rec, res.rows)
		} else {
			serr = r.store.SaveFailure(ctx, rec, res.Status, res.Reason)
		}
		if serr != nil {
			log.Error().Err(serr).Msg("failed to store result")
		}
	}
	return res
}

// skipError marks images that cannot be analyzed for a data reason rather
// than a processing fault.
type skipError struct {
	reason string
}

func (e *skipError) Error() string { return e.reason }

func (r *Runner) analyze(ctx context.Context, path, outDir string, entry metadata.Entry, log zerolog.Logger) (ImageResult, store.ImageRecord, error) {
	var (
		res ImageResult
		rec store.ImageRecord
	)
	if err := ctx.Err(); err != nil {
		return res, rec, err
	}

	img, err := r.cache.Load(path)
	if err != nil {
		return res, rec, err
	}
	defer r.cache.Evict(path)
	rec.Width, rec.Height = img.Bounds().Dx(), img.Bounds().Dy()

	dpi, err := calibration.ReadDPI(path)
	if errors.Is(err, calibration.ErrMissingDPI) {
		return res, rec, &skipError{reason: "missing DPI"}
	}
	if err != nil {
		return res, rec, err
	}
	scale, err := calibration.FromDPI(dpi)
	if err != nil {
		return res, rec, &skipError{reason: err.Error()}
	}
	rec.PixelsPerMM = scale.PixelsPerMM
	rec.ScaleSource = scale.Source

	ev := log.Debug().Float64("dpi", dpi).Float64("pixels_per_mm", scale.PixelsPerMM)
	if entry.HasScale() {
		ev = ev.Float64("scale_mm", entry.ScaleMM).Float64("scale_bar_px", calibration.ScaleBarLength(dpi, entry.ScaleMM))
	}
	ev.Msg("calibrated")

	res.ConversionFactor = scale.AreaFactor()
	analysis, err := Analyze(img, r.cfg, res.ConversionFactor)
	if err != nil {
		return res, rec, err
	}
	inv := analysis.Inventory
	res.Labels = inv.LabelCounts()
	res.NarrowHigh = analysis.NarrowHigh()

	if r.cfg.Output.Annotate && !inv.Empty() {
		res.AnnotatedPath = filepath.Join(outDir, annotatedName(entry.ImageID))
		if err := render.AnnotateFile(img, inv, r.cfg.RenderOptions(), res.AnnotatedPath); err != nil {
			return res, rec, err
		}
	}

	res.rows = export.Rows(entry.ImageID, inv, export.RowOptions{
		Profiles:          analysis.Profiles,
		IncludeOutline:    r.cfg.Output.Format != export.FormatCSV,
		SimplifyTolerance: r.cfg.Output.SimplifyTolerance,
	})

	log.Info().
		Int("shapes", len(inv.Shapes)).
		Int("surfaces", len(res.rows)).
		Int("discarded", len(inv.Discarded)).
		Ints("narrow_high", res.NarrowHigh).
		Msg("analyzed image")
	return res, rec, nil
}

func annotatedName(imageID string) string {
	base := filepath.Base(imageID)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_labeled.png"
}
