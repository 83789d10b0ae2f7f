package render

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/lithic-tools-mcp/internal/surface"
)

// ErrInvalidColor is returned for colour strings that are not #rrggbb hex.
var ErrInvalidColor = errors.New("invalid color")

var defaultColors = map[surface.Label]string{
	surface.LabelDorsal:       "#00c853",
	surface.LabelVentral:      "#2962ff",
	surface.LabelPlatform:     "#ffab00",
	surface.LabelLateral:      "#aa00ff",
	surface.LabelUnclassified: "#ff0000",
}

var labels = []surface.Label{
	surface.LabelDorsal,
	surface.LabelVentral,
	surface.LabelPlatform,
	surface.LabelLateral,
	surface.LabelUnclassified,
}

// Palette maps surface labels to box and outline colours.
type Palette struct {
	box     map[surface.Label]colorful.Color
	outline map[surface.Label]colorful.Color
}

// NewPalette builds a palette from hex colours keyed by label name (case
// insensitive). Labels missing from overrides keep their default colour.
func NewPalette(overrides map[string]string) (*Palette, error) {
	p := &Palette{
		box:     make(map[surface.Label]colorful.Color, len(labels)),
		outline: make(map[surface.Label]colorful.Color, len(labels)),
	}
	white := colorful.Color{R: 1, G: 1, B: 1}

	for _, label := range labels {
		hex := defaultColors[label]
		for name, v := range overrides {
			if strings.EqualFold(name, string(label)) {
				hex = v
			}
		}
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q", ErrInvalidColor, label, hex)
		}
		p.box[label] = c
		// Outlines are a lighter tint so they don't hide the box edge.
		p.outline[label] = c.BlendLab(white, 0.4).Clamped()
	}
	return p, nil
}

// Box returns the bounding box colour for label. Unknown labels use the
// Unclassified colour.
func (p *Palette) Box(label surface.Label) color.RGBA {
	c, ok := p.box[label]
	if !ok {
		c = p.box[surface.LabelUnclassified]
	}
	return toRGBA(c)
}

// Outline returns the outline colour for label.
func (p *Palette) Outline(label surface.Label) color.RGBA {
	c, ok := p.outline[label]
	if !ok {
		c = p.outline[surface.LabelUnclassified]
	}
	return toRGBA(c)
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
