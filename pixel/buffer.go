package pixel

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Buffer is an image with a format tag and an optional mip chain.
//
// Exactly one of Levels, Indexed or Data is populated, depending on Format.
// Level 0 is the base level; each following level halves both dimensions
// down to 1x1.
type Buffer struct {
	// Levels holds NRGBA levels for RGB8 and RGBA8 buffers.
	Levels []*image.NRGBA
	// Indexed holds paletted levels for Indexed8 buffers.
	Indexed []*image.Paletted
	// Palette is shared by all Indexed levels.
	Palette color.Palette
	// Data holds per-level codec payloads for compressed buffers.
	Data [][]byte

	Format Format
	Width  int
	Height int
}

// New allocates a zeroed single-level RGB8 or RGBA8 buffer.
// RGB8 buffers start opaque black.
func New(format Format, width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if !format.IsUncompressed() {
		return nil, fmt.Errorf("%w: %s", ErrCompressedTarget, format)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	if format == FormatRGB8 {
		forceOpaque(img)
	}

	return &Buffer{Format: format, Width: width, Height: height, Levels: []*image.NRGBA{img}}, nil
}

// FromImage copies img into a single-level RGBA8 buffer with origin at (0,0).
func FromImage(img image.Image) (*Buffer, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, b.Dx(), b.Dy())
	}

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		copyNRGBA(out, out.Bounds(), src, b.Min)
	} else {
		draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	}

	return &Buffer{Format: FormatRGBA8, Width: b.Dx(), Height: b.Dy(), Levels: []*image.NRGBA{out}}, nil
}

// NewCompressed wraps codec payloads ordered from largest to smallest level.
func NewCompressed(format Format, width, height int, data [][]byte) (*Buffer, error) {
	if !format.IsCompressed() {
		return nil, fmt.Errorf("%w: %s is not a compressed format", ErrInvalidFormat, format)
	}
	if err := checkPayloads(format, width, height, data); err != nil {
		return nil, err
	}

	return &Buffer{Format: format, Width: width, Height: height, Data: data}, nil
}

// FromPayloads rebuilds a buffer from raw level payloads as produced by Payloads.
// palette is only used for Indexed8.
func FromPayloads(format Format, width, height int, payloads [][]byte, palette color.Palette) (*Buffer, error) {
	if format.IsCompressed() {
		return NewCompressed(format, width, height, payloads)
	}
	if err := checkPayloads(format, width, height, payloads); err != nil {
		return nil, err
	}

	out := &Buffer{Format: format, Width: width, Height: height}
	for i, p := range payloads {
		w, h := MipDimension(width, i), MipDimension(height, i)
		rect := image.Rect(0, 0, w, h)
		switch format {
		case FormatIndexed8:
			pm := image.NewPaletted(rect, palette)
			copy(pm.Pix, p)
			out.Indexed = append(out.Indexed, pm)
		case FormatRGBA8:
			img := image.NewNRGBA(rect)
			copy(img.Pix, p)
			out.Levels = append(out.Levels, img)
		case FormatRGB8:
			img := image.NewNRGBA(rect)
			for j, k := 0, 0; j < len(p); j, k = j+3, k+4 {
				img.Pix[k] = p[j]
				img.Pix[k+1] = p[j+1]
				img.Pix[k+2] = p[j+2]
				img.Pix[k+3] = 0xff
			}
			out.Levels = append(out.Levels, img)
		default:
			return nil, fmt.Errorf("%w: %d", ErrInvalidFormat, format)
		}
	}
	out.Palette = palette

	return out, nil
}

func checkPayloads(format Format, width, height int, payloads [][]byte) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(payloads) == 0 {
		return ErrEmptyLevels
	}
	for i, p := range payloads {
		want := format.LevelSize(MipDimension(width, i), MipDimension(height, i))
		if want < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidFormat, format)
		}
		if len(p) != want {
			return fmt.Errorf("%w: level %d: expected %d, got %d", ErrPayloadSize, i, want, len(p))
		}
	}

	return nil
}

// MipCount returns the number of stored levels.
func (b *Buffer) MipCount() int {
	switch {
	case b.Format.IsCompressed():
		return len(b.Data)
	case b.Format == FormatIndexed8:
		return len(b.Indexed)
	default:
		return len(b.Levels)
	}
}

// HasMipmaps reports whether levels beyond the base are present.
func (b *Buffer) HasMipmaps() bool {
	return b.MipCount() > 1
}

// Size returns the base level dimensions.
func (b *Buffer) Size() image.Point {
	return image.Pt(b.Width, b.Height)
}

// Bounds returns the base level rectangle.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// IsPowerOfTwo reports whether both dimensions are powers of two.
func (b *Buffer) IsPowerOfTwo() bool {
	return isPowerOfTwo(b.Width) && isPowerOfTwo(b.Height)
}

// IsSquare reports whether width equals height.
func (b *Buffer) IsSquare() bool {
	return b.Width == b.Height
}

// Image returns the base level as an image.
func (b *Buffer) Image() (image.Image, error) {
	switch {
	case b.Format.IsUncompressed() && len(b.Levels) > 0:
		return b.Levels[0], nil
	case b.Format == FormatIndexed8 && len(b.Indexed) > 0:
		return b.Indexed[0], nil
	case b.Format.IsCompressed():
		return nil, fmt.Errorf("%w: %s", ErrCompressed, b.Format)
	default:
		return nil, ErrEmptyLevels
	}
}

// Payloads returns the raw bytes of every level, largest first.
// RGB8 levels are packed to 3 bytes per pixel.
func (b *Buffer) Payloads() [][]byte {
	switch {
	case b.Format.IsCompressed():
		return b.Data
	case b.Format == FormatIndexed8:
		out := make([][]byte, len(b.Indexed))
		for i, pm := range b.Indexed {
			out[i] = compactRows(pm.Pix, pm.Stride, pm.Rect.Dx(), pm.Rect.Dy())
		}
		return out
	case b.Format == FormatRGB8:
		out := make([][]byte, len(b.Levels))
		for i, img := range b.Levels {
			w, h := img.Rect.Dx(), img.Rect.Dy()
			p := make([]byte, 0, w*h*3)
			for y := 0; y < h; y++ {
				row := img.Pix[y*img.Stride : y*img.Stride+w*4]
				for x := 0; x < len(row); x += 4 {
					p = append(p, row[x], row[x+1], row[x+2])
				}
			}
			out[i] = p
		}
		return out
	default:
		out := make([][]byte, len(b.Levels))
		for i, img := range b.Levels {
			out[i] = compactRows(img.Pix, img.Stride, img.Rect.Dx()*4, img.Rect.Dy())
		}
		return out
	}
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{Format: b.Format, Width: b.Width, Height: b.Height}
	for _, img := range b.Levels {
		out.Levels = append(out.Levels, cloneNRGBA(img))
	}
	for _, pm := range b.Indexed {
		c := image.NewPaletted(pm.Rect, pm.Palette)
		copy(c.Pix, pm.Pix)
		out.Indexed = append(out.Indexed, c)
	}
	if b.Palette != nil {
		out.Palette = append(color.Palette(nil), b.Palette...)
	}
	for _, d := range b.Data {
		out.Data = append(out.Data, append([]byte(nil), d...))
	}

	return out
}

func (b *Buffer) requireUncompressed() error {
	if !b.Format.IsUncompressed() {
		return fmt.Errorf("%w: %s", ErrCompressed, b.Format)
	}
	if len(b.Levels) == 0 {
		return ErrEmptyLevels
	}

	return nil
}

// withBase returns a single-level buffer of the same format.
func (b *Buffer) withBase(img *image.NRGBA) *Buffer {
	return &Buffer{Format: b.Format, Width: img.Rect.Dx(), Height: img.Rect.Dy(), Levels: []*image.NRGBA{img}}
}

func compactRows(pix []byte, stride, rowLen, rows int) []byte {
	out := make([]byte, rowLen*rows)
	for y := 0; y < rows; y++ {
		copy(out[y*rowLen:(y+1)*rowLen], pix[y*stride:y*stride+rowLen])
	}

	return out
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	copyNRGBA(out, out.Bounds(), img, img.Rect.Min)

	return out
}

// copyNRGBA copies the dr-sized area at sp in src into dr of dst without
// the premultiplied round trip of draw.Draw.
func copyNRGBA(dst *image.NRGBA, dr image.Rectangle, src *image.NRGBA, sp image.Point) {
	n := dr.Dx() * 4
	for y := 0; y < dr.Dy(); y++ {
		d := dst.PixOffset(dr.Min.X, dr.Min.Y+y)
		s := src.PixOffset(sp.X, sp.Y+y)
		copy(dst.Pix[d:d+n], src.Pix[s:s+n])
	}
}

func forceOpaque(img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 3; x < len(row); x += 4 {
			row[x] = 0xff
		}
	}
}
