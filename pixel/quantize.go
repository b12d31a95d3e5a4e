package pixel

import (
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/draw"
)

// PaletteSize is the number of colours produced by Quantize.
const PaletteSize = 256

// Quantize reduces the buffer to an 8-bit palette built by median cut over the
// base level. Every level is mapped to the nearest palette entry without dithering.
func (b *Buffer) Quantize() (*Buffer, error) {
	if b.Format == FormatIndexed8 {
		return b, nil
	}
	if err := b.requireUncompressed(); err != nil {
		return nil, err
	}

	q := quantize.MedianCutQuantizer{Aggregation: quantize.Mean, AddTransparent: false}
	palette := q.Quantize(make(color.Palette, 0, PaletteSize), b.Levels[0])

	out := &Buffer{Format: FormatIndexed8, Width: b.Width, Height: b.Height, Palette: palette}
	for _, img := range b.Levels {
		pm := image.NewPaletted(img.Rect, palette)
		draw.Draw(pm, pm.Rect, img, img.Rect.Min, draw.Src)
		out.Indexed = append(out.Indexed, pm)
	}

	return out, nil
}
