package pixel

import (
	"fmt"
	"image"
	"math/bits"

	"golang.org/x/image/draw"
)

// NextPowerOfTwo returns the smallest power of two >= n. Zero stays zero.
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 0
	}
	if n == 1 {
		return 1
	}

	return 1 << bits.Len(uint(n-1))
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Convert reformats between RGB8 and RGBA8.
// Converting to RGB8 drops alpha by forcing every pixel opaque.
func (b *Buffer) Convert(target Format) (*Buffer, error) {
	if !target.IsUncompressed() {
		return nil, fmt.Errorf("%w: %s", ErrCompressedTarget, target)
	}
	if err := b.requireUncompressed(); err != nil {
		return nil, err
	}
	if b.Format == target {
		return b, nil
	}

	out := &Buffer{Format: target, Width: b.Width, Height: b.Height, Levels: make([]*image.NRGBA, len(b.Levels))}
	for i, img := range b.Levels {
		c := cloneNRGBA(img)
		if target == FormatRGB8 {
			forceOpaque(c)
		}
		out.Levels[i] = c
	}

	return out, nil
}

// ResizeToPowerOfTwo scales the base level up to the next power of two on each
// axis. With square set both axes use the larger of the two.
// The mip chain is rebuilt when the receiver had one.
func (b *Buffer) ResizeToPowerOfTwo(square bool) (*Buffer, error) {
	if err := b.requireUncompressed(); err != nil {
		return nil, err
	}

	w, h := NextPowerOfTwo(b.Width), NextPowerOfTwo(b.Height)
	if square {
		w = max(w, h)
		h = w
	}
	if w == b.Width && h == b.Height {
		return b, nil
	}

	out, err := b.Resize(w, h)
	if err != nil {
		return nil, err
	}
	if b.HasMipmaps() {
		return out.GenerateMipmaps()
	}

	return out, nil
}

// Resize scales the base level to w x h with Catmull-Rom filtering.
// Mipmaps are dropped.
func (b *Buffer) Resize(w, h int) (*Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	if err := b.requireUncompressed(); err != nil {
		return nil, err
	}

	src := b.Levels[0]
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Width && h == b.Height {
		copyNRGBA(dst, dst.Bounds(), src, src.Rect.Min)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Rect, draw.Src, nil)
	}
	if b.Format == FormatRGB8 {
		forceOpaque(dst)
	}

	return b.withBase(dst), nil
}

// Shrink divides both dimensions by factor, rounding down with a floor of 1.
func (b *Buffer) Shrink(factor int) (*Buffer, error) {
	if factor <= 1 {
		return b, nil
	}

	return b.Resize(max(b.Width/factor, 1), max(b.Height/factor, 1))
}

// SubImage copies rect of the base level into a new single-level buffer.
func (b *Buffer) SubImage(rect image.Rectangle) (*Buffer, error) {
	if err := b.requireUncompressed(); err != nil {
		return nil, err
	}
	if rect.Empty() || !rect.In(b.Bounds()) {
		return nil, fmt.Errorf("%w: %v not in %v", ErrBlitBounds, rect, b.Bounds())
	}

	dst := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	copyNRGBA(dst, dst.Bounds(), b.Levels[0], rect.Min)

	return b.withBase(dst), nil
}

// Blit copies srcRect of src's base level into dst at origin. dst is modified
// in place and any mip levels it carried are discarded.
func Blit(dst *Buffer, src *Buffer, srcRect image.Rectangle, origin image.Point) error {
	if err := dst.requireUncompressed(); err != nil {
		return err
	}
	if err := src.requireUncompressed(); err != nil {
		return err
	}
	if !srcRect.In(src.Bounds()) {
		return fmt.Errorf("%w: source %v not in %v", ErrBlitBounds, srcRect, src.Bounds())
	}

	target := image.Rectangle{Min: origin, Max: origin.Add(srcRect.Size())}
	if !target.In(dst.Bounds()) {
		return fmt.Errorf("%w: destination %v not in %v", ErrBlitBounds, target, dst.Bounds())
	}

	base := dst.Levels[0]
	copyNRGBA(base, target, src.Levels[0], srcRect.Min)
	if dst.Format == FormatRGB8 {
		forceOpaqueRect(base, target)
	}
	dst.Levels = dst.Levels[:1]

	return nil
}

func forceOpaqueRect(img *image.NRGBA, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Pix[img.PixOffset(x, y)+3] = 0xff
		}
	}
}
