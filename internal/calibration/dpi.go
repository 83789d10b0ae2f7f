package calibration

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// ErrMissingDPI is returned when an image header carries no physical resolution.
var ErrMissingDPI = errors.New("image has no DPI information")

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	jfifMagic    = []byte("JFIF\x00")
	exifMagic    = []byte("Exif\x00\x00")
)

// ReadDPI returns the horizontal resolution, in dots per inch, stored in the
// header of a PNG or JPEG file.
func ReadDPI(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	dpi, err := DecodeDPI(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return dpi, nil
}

// DecodeDPI reads the resolution from a PNG pHYs chunk, or from the JFIF APP0
// or Exif APP1 segment of a JPEG. Only the header is consumed. Headers with
// no physical unit and other formats return ErrMissingDPI.
func DecodeDPI(r io.Reader) (float64, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(8)
	if err != nil && len(head) < 2 {
		return 0, ErrMissingDPI
	}

	switch {
	case bytes.HasPrefix(head, pngSignature):
		return pngDPI(br)
	case head[0] == 0xFF && head[1] == 0xD8:
		return jpegDPI(br)
	default:
		return 0, ErrMissingDPI
	}
}

// pngDPI scans chunks up to the first IDAT, which pHYs must precede.
func pngDPI(r *bufio.Reader) (float64, error) {
	if _, err := r.Discard(len(pngSignature)); err != nil {
		return 0, err
	}

	var hdr [8]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return 0, ErrMissingDPI
		}
		length := binary.BigEndian.Uint32(hdr[:4])
		kind := string(hdr[4:])

		switch kind {
		case "pHYs":
			if length != 9 {
				return 0, fmt.Errorf("malformed pHYs chunk of length %d", length)
			}
			var data [9]byte
			if _, err := io.ReadFull(r, data[:]); err != nil {
				return 0, ErrMissingDPI
			}
			if data[8] != 1 {
				return 0, ErrMissingDPI
			}
			perMetre := binary.BigEndian.Uint32(data[:4])
			if perMetre == 0 {
				return 0, ErrMissingDPI
			}
			return float64(perMetre) * 0.0254, nil
		case "IDAT", "IEND":
			return 0, ErrMissingDPI
		}

		// Skip chunk data and CRC.
		if _, err := r.Discard(int(length) + 4); err != nil {
			return 0, ErrMissingDPI
		}
	}
}

// jpegDPI scans marker segments up to the start of scan. A JFIF APP0
// density in inches or centimetres wins; otherwise the IFD0 resolution of an
// Exif APP1 segment is used, as camera files usually carry only that.
func jpegDPI(r *bufio.Reader) (float64, error) {
	if _, err := r.Discard(2); err != nil {
		return 0, err
	}

	var (
		marker [4]byte
		tiff   []byte
	)
	for {
		if _, err := io.ReadFull(r, marker[:]); err != nil || marker[0] != 0xFF {
			break
		}
		kind := marker[1]
		length := int(binary.BigEndian.Uint16(marker[2:])) - 2
		if kind == 0xDA || length < 0 {
			break
		}

		seg := make([]byte, length)
		if _, err := io.ReadFull(r, seg); err != nil {
			break
		}
		switch {
		case kind == 0xE0 && bytes.HasPrefix(seg, jfifMagic):
			if dpi, ok := jfifDPI(seg); ok {
				return dpi, nil
			}
		case kind == 0xE1 && tiff == nil && bytes.HasPrefix(seg, exifMagic):
			tiff = seg[len(exifMagic):]
		}
	}

	if tiff == nil {
		return 0, ErrMissingDPI
	}
	return exifDPI(tiff)
}

// jfifDPI reads the X density of a JFIF APP0 payload. Aspect-ratio-only
// headers (unit 0) report false.
func jfifDPI(seg []byte) (float64, bool) {
	if len(seg) < 12 {
		return 0, false
	}
	xDensity := float64(binary.BigEndian.Uint16(seg[8:10]))
	if xDensity == 0 {
		return 0, false
	}
	switch seg[7] {
	case 1:
		return xDensity, true
	case 2:
		return xDensity * 2.54, true
	default:
		return 0, false
	}
}

// exifDPI reads XResolution and ResolutionUnit from a TIFF-structured Exif
// payload. A missing unit means inches.
func exifDPI(tiff []byte) (float64, error) {
	x, err := exif.Decode(bytes.NewReader(tiff))
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return 0, ErrMissingDPI
	}

	tag, err := x.Get(exif.XResolution)
	if err != nil {
		return 0, ErrMissingDPI
	}
	num, den, err := tag.Rat2(0)
	if err != nil || num <= 0 || den <= 0 {
		return 0, ErrMissingDPI
	}
	res := float64(num) / float64(den)

	unit := 2
	if tag, err := x.Get(exif.ResolutionUnit); err == nil {
		if u, err := tag.Int(0); err == nil {
			unit = u
		}
	}
	switch unit {
	case 2:
		return res, nil
	case 3:
		return res * 2.54, nil
	default:
		return 0, ErrMissingDPI
	}
}
