package teximport

import (
	"fmt"
	"strings"
)

// Format selects how an artifact is stored. Values take part in export
// cache keys.
type Format uint8

const (
	// FormatUncompressed stores raw pixels with mipmaps unless disabled.
	FormatUncompressed Format = iota
	// FormatLosslessDisk stores a PNG or QOI file.
	FormatLosslessDisk
	// FormatLossyDisk stores a WebP file at the requested quality.
	FormatLossyDisk
	// FormatPlatformCompressed stores the output of a platform codec.
	FormatPlatformCompressed
)

var formatNames = [...]string{
	FormatUncompressed:       "uncompressed",
	FormatLosslessDisk:       "lossless",
	FormatLossyDisk:          "lossy",
	FormatPlatformCompressed: "platform",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}

	return fmt.Sprintf("format(%d)", uint8(f))
}

// IsDisk reports whether f stores an encoded image file.
func (f Format) IsDisk() bool {
	return f == FormatLosslessDisk || f == FormatLossyDisk
}

// ParseFormat parses the textual form returned by Format.String.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range formatNames {
		if name == s {
			return Format(i), nil
		}
	}

	return 0, fmt.Errorf("%w: unknown format %q", ErrInvalidOptions, s)
}

// Flags are import option bits. Values take part in export cache keys.
type Flags uint32

const (
	FlagStreaming Flags = 1 << iota
	FlagFixBorderAlpha
	FlagAlphaBitHint
	FlagExtraCompression
	FlagNoMipmaps
	FlagRepeat
	FlagFilter
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagStreaming, "stream"},
	{FlagFixBorderAlpha, "fix_border"},
	{FlagAlphaBitHint, "alpha_bit"},
	{FlagExtraCompression, "extra"},
	{FlagNoMipmaps, "no_mipmaps"},
	{FlagRepeat, "repeat"},
	{FlagFilter, "filter"},
}

const allFlags = FlagStreaming | FlagFixBorderAlpha | FlagAlphaBitHint |
	FlagExtraCompression | FlagNoMipmaps | FlagRepeat | FlagFilter

// Has reports whether every bit of mask is set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	if rest := f &^ allFlags; rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}

	return strings.Join(names, ",")
}

// ParseFlags parses a comma separated list of flag names.
func ParseFlags(s string) (Flags, error) {
	var out Flags
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		found := false
		for _, fn := range flagNames {
			if fn.name == part {
				out |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown flag %q", ErrInvalidOptions, part)
		}
	}

	return out, nil
}

// TextureFlags are the sampling flags stored with a texture.
type TextureFlags uint32

const (
	TextureMipmaps TextureFlags = 1 << iota
	TextureRepeat
	TextureFilter
)

// ImportOptions is the closed set of import settings.
type ImportOptions struct {
	Format Format
	Flags  Flags
	// Quality is used only by FormatLossyDisk, in 0..1.
	Quality float32
	Atlas   bool
	// Crop trims atlas sources to their used rectangle.
	Crop bool
	// Shrink divides both dimensions; 0 is treated as 1.
	Shrink int
}

// maxShrink is the largest factor that fits the export cache key.
const maxShrink = 255

// Validate checks o for an import of sourceCount sources.
func (o ImportOptions) Validate(sourceCount int) error {
	if o.Format > FormatPlatformCompressed {
		return fmt.Errorf("%w: format %d", ErrInvalidOptions, uint8(o.Format))
	}
	if o.Flags&^allFlags != 0 {
		return fmt.Errorf("%w: unknown flags %s", ErrInvalidOptions, o.Flags)
	}
	if o.Shrink < 0 || o.Shrink > maxShrink {
		return fmt.Errorf("%w: shrink %d out of range 0..%d", ErrInvalidOptions, o.Shrink, maxShrink)
	}
	if o.Format == FormatLossyDisk && (o.Quality < 0 || o.Quality > 1) {
		return fmt.Errorf("%w: quality %g out of range 0..1", ErrInvalidOptions, o.Quality)
	}

	switch {
	case sourceCount == 0:
		return fmt.Errorf("%w: no sources", ErrInvalidOptions)
	case !o.Atlas && sourceCount != 1:
		return fmt.Errorf("%w: %d sources without atlas", ErrInvalidOptions, sourceCount)
	}

	return nil
}

// ShrinkFactor returns the effective shrink divisor.
func (o ImportOptions) ShrinkFactor() int {
	return max(o.Shrink, 1)
}

// TextureFlags maps the sampling related import flags.
// Mipmaps are reported for uncompressed and platform formats unless disabled.
func (o ImportOptions) TextureFlags() TextureFlags {
	var tf TextureFlags
	if !o.Format.IsDisk() && !o.Flags.Has(FlagNoMipmaps) {
		tf |= TextureMipmaps
	}
	if o.Flags.Has(FlagRepeat) {
		tf |= TextureRepeat
	}
	if o.Flags.Has(FlagFilter) {
		tf |= TextureFilter
	}

	return tf
}
