// Package metadata reads the per-image metadata table that accompanies a
// batch of artifact images.
//
// The table is a CSV file with a header row. The "image_id" column names the
// image file inside the data directory and the optional "scale" column holds
// the physical length, in millimetres, of the scale bar photographed with the
// artifact. Any other columns are kept verbatim in Entry.Extra.
package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Required column names.
const (
	ColumnImageID = "image_id"
	ColumnScale   = "scale"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing metadata column")

// Entry is one row of the metadata table.
type Entry struct {
	// ImageID is the image file name relative to the images directory.
	ImageID string `json:"image_id"`

	// ScaleMM is the physical scale bar length in millimetres. Zero when the
	// row leaves the scale empty.
	ScaleMM float64 `json:"scale_mm,omitempty"`

	// Extra holds every other column of the row, keyed by header name.
	Extra map[string]string `json:"extra,omitempty"`
}

// HasScale reports whether the row provides a scale bar length.
func (e Entry) HasScale() bool {
	return e.ScaleMM > 0
}

// ReadFile reads a metadata table from path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer f.Close()

	entries, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Read parses a metadata table. Rows with an empty image_id are rejected, as
// are scale values that are not positive numbers.
func Read(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnImageID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	idCol, ok := cols[ColumnImageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnImageID)
	}
	scaleCol, ok := cols[ColumnScale]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnScale)
	}

	var entries []Entry
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		e := Entry{ImageID: strings.TrimSpace(record[idCol])}
		if e.ImageID == "" {
			return nil, fmt.Errorf("line %d: empty %s", line, ColumnImageID)
		}

		if raw := strings.TrimSpace(record[scaleCol]); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v <= 0 {
				return nil, fmt.Errorf("line %d: invalid %s %q", line, ColumnScale, raw)
			}
			e.ScaleMM = v
		}

		for name, i := range cols {
			if i == idCol || i == scaleCol {
				continue
			}
			if e.Extra == nil {
				e.Extra = make(map[string]string)
			}
			e.Extra[name] = record[i]
		}
		entries = append(entries, e)
	}
	return entries, nil
}
