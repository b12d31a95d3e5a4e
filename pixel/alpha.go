package pixel

import (
	"image"
)

// alphaEdgeRadius bounds the neighbour search of FixAlphaEdges.
const alphaEdgeRadius = 4

// DetectAlpha reports whether any base-level pixel is not fully opaque.
func (b *Buffer) DetectAlpha() bool {
	switch {
	case b.Format == FormatRGB8:
		return false
	case b.Format == FormatRGBA8 && len(b.Levels) > 0:
		img := b.Levels[0]
		w, h := img.Rect.Dx(), img.Rect.Dy()
		for y := 0; y < h; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for x := 3; x < len(row); x += 4 {
				if row[x] != 0xff {
					return true
				}
			}
		}
		return false
	case b.Format == FormatIndexed8 && len(b.Indexed) > 0:
		for _, idx := range b.Indexed[0].Pix {
			if int(idx) < len(b.Palette) {
				if _, _, _, a := b.Palette[idx].RGBA(); a != 0xffff {
					return true
				}
			}
		}
		return false
	default:
		return b.Format.HasAlpha()
	}
}

// UsedRect returns the bounding box of base-level pixels with nonzero alpha.
// A fully transparent buffer yields an empty rectangle.
func (b *Buffer) UsedRect() image.Rectangle {
	if b.Format == FormatRGB8 || len(b.Levels) == 0 {
		return b.Bounds()
	}

	img := b.Levels[0]
	minX, minY, maxX, maxY := b.Width, b.Height, -1, -1
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if img.Pix[y*img.Stride+x*4+3] == 0 {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}

	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// FixAlphaEdges gives every fully transparent pixel the colour of the nearest
// fully opaque pixel within a small radius. Alpha values are untouched.
// Non-RGBA buffers are returned unchanged.
func (b *Buffer) FixAlphaEdges() (*Buffer, error) {
	if b.Format != FormatRGBA8 {
		return b, nil
	}
	if err := b.requireUncompressed(); err != nil {
		return nil, err
	}

	src := b.Levels[0]
	dst := cloneNRGBA(src)
	w, h := b.Width, b.Height
	at := func(x, y int) int { return y*src.Stride + x*4 }

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src.Pix[at(x, y)+3] != 0 {
				continue
			}

			best, bestDist := -1, alphaEdgeRadius*alphaEdgeRadius+1
			for dy := -alphaEdgeRadius; dy <= alphaEdgeRadius; dy++ {
				sy := y + dy
				if sy < 0 || sy >= h {
					continue
				}
				for dx := -alphaEdgeRadius; dx <= alphaEdgeRadius; dx++ {
					sx := x + dx
					if sx < 0 || sx >= w {
						continue
					}
					d := dx*dx + dy*dy
					if d >= bestDist {
						continue
					}
					if o := at(sx, sy); src.Pix[o+3] == 0xff {
						best, bestDist = o, d
					}
				}
			}
			if best < 0 {
				continue
			}

			o := at(x, y)
			copy(dst.Pix[o:o+3], src.Pix[best:best+3])
		}
	}

	// Lower levels are rebuilt from the fixed base.
	out := b.withBase(dst)
	if b.HasMipmaps() {
		return out.GenerateMipmaps()
	}

	return out, nil
}
