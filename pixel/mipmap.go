package pixel

import (
	"image"

	"github.com/woozymasta/bcn"
)

// MipCount returns the number of levels of a full chain down to 1x1.
func MipCount(width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}

	count := 1
	for width > 1 || height > 1 {
		count++
		if width > 1 {
			width /= 2
		}
		if height > 1 {
			height /= 2
		}
	}

	return count
}

// MipDimension calculates the dimension of a mipmap level.
func MipDimension(base, level int) int {
	result := base >> level
	if result < 1 {
		return 1
	}

	return result
}

// GenerateMipmaps returns a buffer with a full mip chain built from the base level.
// Buffers that already carry mipmaps are returned unchanged.
func (b *Buffer) GenerateMipmaps() (*Buffer, error) {
	if err := b.requireUncompressed(); err != nil {
		return nil, err
	}
	if b.HasMipmaps() || MipCount(b.Width, b.Height) == 1 {
		return b, nil
	}

	levels := bcn.GenerateMipmaps(b.Levels[0], false)
	out := &Buffer{Format: b.Format, Width: b.Width, Height: b.Height, Levels: make([]*image.NRGBA, len(levels))}
	out.Levels[0] = cloneNRGBA(b.Levels[0])
	copy(out.Levels[1:], levels[1:])

	return out, nil
}

// DropMipmaps returns a buffer holding only the base level.
func (b *Buffer) DropMipmaps() *Buffer {
	if !b.HasMipmaps() {
		return b
	}

	out := &Buffer{Format: b.Format, Width: b.Width, Height: b.Height, Palette: b.Palette}
	switch {
	case b.Format.IsCompressed():
		out.Data = b.Data[:1:1]
	case b.Format == FormatIndexed8:
		out.Indexed = b.Indexed[:1:1]
	default:
		out.Levels = b.Levels[:1:1]
	}

	return out
}

// HasFullMipChain reports whether every level down to 1x1 is present.
func (b *Buffer) HasFullMipChain() bool {
	return b.MipCount() == MipCount(b.Width, b.Height)
}
