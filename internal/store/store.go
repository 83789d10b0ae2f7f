// Package store persists batch results in a SQLite database so runs can be
// queried and compared after the fact.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ironsheep/lithic-tools-mcp/internal/export"
)

// Image statuses.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when an image has no stored record.
var ErrNotFound = errors.New("image not found")

// Store manages the results database.
type Store struct {
	db *sql.DB
}

// ImageRecord describes one analyzed (or rejected) image.
type ImageRecord struct {
	ImageID     string
	Path        string
	Status      string
	Reason      string
	Width       int
	Height      int
	PixelsPerMM float64
	ScaleSource string
	Surfaces    int
	ProcessedAt time.Time
}

// Open opens or creates the database at path, creating its directory and
// schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS images (
			image_id TEXT PRIMARY KEY,
			path TEXT,
			status TEXT NOT NULL,
			reason TEXT,
			width INTEGER,
			height INTEGER,
			pixels_per_mm REAL,
			scale_source TEXT,
			surfaces INTEGER NOT NULL DEFAULT 0,
			processed_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS surfaces (
			image_id TEXT NOT NULL REFERENCES images(image_id) ON DELETE CASCADE,
			surface_id INTEGER NOT NULL,
			label TEXT NOT NULL,
			area_px REAL,
			area_mm2 REAL,
			x INTEGER,
			y INTEGER,
			width_px INTEGER,
			height_px INTEGER,
			width_mm REAL,
			height_mm REAL,
			centroid_x REAL,
			centroid_y REAL,
			top_ancestor_id INTEGER,
			narrow_high INTEGER,
			PRIMARY KEY (image_id, surface_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_surfaces_label ON surfaces(label)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveInventory records a processed image and its surfaces, replacing any
// earlier result for the same image.
func (s *Store) SaveInventory(ctx context.Context, img ImageRecord, rows []export.Row) error {
	img.Status = StatusProcessed
	img.Surfaces = len(rows)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertImage(ctx, tx, img); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM surfaces WHERE image_id = ?`, img.ImageID); err != nil {
		return fmt.Errorf("deleting old surfaces: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO surfaces (image_id, surface_id, label, area_px, area_mm2, x, y,
			width_px, height_px, width_mm, height_mm, centroid_x, centroid_y,
			top_ancestor_id, narrow_high)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		var narrow sql.NullBool
		if r.NarrowHigh != nil {
			narrow = sql.NullBool{Bool: *r.NarrowHigh, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			img.ImageID, r.SurfaceID, r.Label, r.AreaPx, r.AreaMM2, r.X, r.Y,
			r.WidthPx, r.HeightPx, r.WidthMM, r.HeightMM, r.CentroidX, r.CentroidY,
			r.TopAncestorID, narrow,
		)
		if err != nil {
			return fmt.Errorf("inserting surface %d: %w", r.SurfaceID, err)
		}
	}

	return tx.Commit()
}

// SaveFailure records an image that was skipped or failed, dropping any
// surfaces stored by an earlier run. status must be StatusSkipped or
// StatusFailed.
func (s *Store) SaveFailure(ctx context.Context, img ImageRecord, status, reason string) error {
	if status != StatusSkipped && status != StatusFailed {
		return fmt.Errorf("invalid failure status %q", status)
	}
	img.Status = status
	img.Reason = reason
	img.Surfaces = 0

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM surfaces WHERE image_id = ?`, img.ImageID); err != nil {
		return fmt.Errorf("deleting old surfaces: %w", err)
	}
	if err := upsertImage(ctx, tx, img); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertImage(ctx context.Context, tx *sql.Tx, img ImageRecord) error {
	if img.ProcessedAt.IsZero() {
		img.ProcessedAt = time.Now()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO images (image_id, path, status, reason, width, height,
			pixels_per_mm, scale_source, surfaces, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(image_id) DO UPDATE SET
			path=excluded.path, status=excluded.status, reason=excluded.reason,
			width=excluded.width, height=excluded.height,
			pixels_per_mm=excluded.pixels_per_mm, scale_source=excluded.scale_source,
			surfaces=excluded.surfaces, processed_at=excluded.processed_at`,
		img.ImageID, img.Path, img.Status, img.Reason, img.Width, img.Height,
		img.PixelsPerMM, img.ScaleSource, img.Surfaces,
		img.ProcessedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting image %s: %w", img.ImageID, err)
	}
	return nil
}

// Image returns the stored record for imageID.
func (s *Store) Image(ctx context.Context, imageID string) (ImageRecord, error) {
	var (
		img       ImageRecord
		reason    sql.NullString
		processed string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT image_id, path, status, reason, width, height, pixels_per_mm,
			scale_source, surfaces, processed_at
		 FROM images WHERE image_id = ?`, imageID,
	).Scan(&img.ImageID, &img.Path, &img.Status, &reason, &img.Width, &img.Height,
		&img.PixelsPerMM, &img.ScaleSource, &img.Surfaces, &processed)
	if errors.Is(err, sql.ErrNoRows) {
		return ImageRecord{}, fmt.Errorf("%w: %s", ErrNotFound, imageID)
	}
	if err != nil {
		return ImageRecord{}, fmt.Errorf("querying image: %w", err)
	}
	img.Reason = reason.String
	img.ProcessedAt, _ = time.Parse(time.RFC3339Nano, processed)
	return img, nil
}

// Surfaces returns the stored rows for imageID, largest area first.
func (s *Store) Surfaces(ctx context.Context, imageID string) ([]export.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT surface_id, label, area_px, area_mm2, x, y, width_px, height_px,
			width_mm, height_mm, centroid_x, centroid_y, top_ancestor_id, narrow_high
		 FROM surfaces WHERE image_id = ?
		 ORDER BY area_px DESC, surface_id ASC`, imageID)
	if err != nil {
		return nil, fmt.Errorf("querying surfaces: %w", err)
	}
	defer rows.Close()

	var out []export.Row
	for rows.Next() {
		r := export.Row{ImageID: imageID}
		var narrow sql.NullBool
		if err := rows.Scan(&r.SurfaceID, &r.Label, &r.AreaPx, &r.AreaMM2, &r.X, &r.Y,
			&r.WidthPx, &r.HeightPx, &r.WidthMM, &r.HeightMM, &r.CentroidX, &r.CentroidY,
			&r.TopAncestorID, &narrow); err != nil {
			return nil, fmt.Errorf("scanning surface: %w", err)
		}
		if narrow.Valid {
			v := narrow.Bool
			r.NarrowHigh = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LabelCounts returns how many stored surfaces carry each label across all
// images.
func (s *Store) LabelCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, count(*) FROM surfaces GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("querying label counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scanning label count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}
