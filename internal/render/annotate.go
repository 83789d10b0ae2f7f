package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/lithic-tools-mcp/internal/surface"
)

// labelGap is the distance between a box's top edge and its caption baseline.
const labelGap = 10

// Options controls annotation drawing.
type Options struct {
	// Colors overrides label colours by name, e.g. {"dorsal": "#00ff00"}.
	Colors map[string]string

	// LineWidth is the box stroke in pixels. Values < 1 use 2.
	LineWidth int

	// ShowOutlines also traces each surface's outline.
	ShowOutlines bool
}

// AnnotateResult is an annotated image encoded for transport.
type AnnotateResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Surfaces    int    `json:"surfaces"`
}

// Annotate draws every labelled surface of inv over a copy of img.
func Annotate(img image.Image, inv *surface.Inventory, opts Options) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	palette, err := NewPalette(opts.Colors)
	if err != nil {
		return nil, err
	}
	lw := opts.LineWidth
	if lw < 1 {
		lw = 2
	}

	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	for _, s := range inv.Surfaces() {
		if opts.ShowOutlines {
			drawOutline(out, s.Outline, palette.Outline(s.Label))
		}
		c := palette.Box(s.Label)
		drawBox(out, s.BoundingBox.Rect(), lw, c)
		drawCaption(out, s.BoundingBox, lw, string(s.Label), c)
	}
	return out, nil
}

// AnnotateFile annotates img and writes it to path. The format follows the
// file extension.
func AnnotateFile(img image.Image, inv *surface.Inventory, opts Options, path string) error {
	out, err := Annotate(img, inv, opts)
	if err != nil {
		return err
	}
	if err := imaging.Save(out, path); err != nil {
		return fmt.Errorf("failed to save annotated image: %w", err)
	}
	return nil
}

// AnnotateEncoded annotates img and returns it as a base64 PNG.
func AnnotateEncoded(img image.Image, inv *surface.Inventory, opts Options) (*AnnotateResult, error) {
	out, err := Annotate(img, inv, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &AnnotateResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Surfaces:    len(inv.Surfaces()),
	}, nil
}

// drawBox strokes r growing outward, so the box never covers the surface.
func drawBox(img *image.RGBA, r image.Rectangle, width int, c color.RGBA) {
	for t := 0; t < width; t++ {
		o := r.Inset(-t)
		for x := o.Min.X; x < o.Max.X; x++ {
			img.SetRGBA(x, o.Min.Y, c)
			img.SetRGBA(x, o.Max.Y-1, c)
		}
		for y := o.Min.Y; y < o.Max.Y; y++ {
			img.SetRGBA(o.Min.X, y, c)
			img.SetRGBA(o.Max.X-1, y, c)
		}
	}
}

func drawOutline(img *image.RGBA, outline []image.Point, c color.RGBA) {
	for i, p := range outline {
		q := outline[(i+1)%len(outline)]
		drawLine(img, p, q, c)
	}
}

// drawLine is Bresenham between two outline points.
func drawLine(img *image.RGBA, a, b image.Point, c color.RGBA) {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	for {
		img.SetRGBA(a.X, a.Y, c)
		if a == b {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			a.X += sx
		}
		if e2 <= dx {
			err += dx
			a.Y += sy
		}
	}
}

// drawCaption writes text labelGap pixels above the box, or just inside its
// top edge when there is no room above.
func drawCaption(img *image.RGBA, box surface.Box, lineWidth int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	y := box.Y - labelGap
	if y-face.Ascent < img.Bounds().Min.Y {
		y = box.Y + lineWidth + face.Ascent + 1
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(box.X, y),
	}
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
