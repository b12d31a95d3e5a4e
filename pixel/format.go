package pixel

// Format identifies the pixel layout of a Buffer.
type Format uint8

const (
	// FormatUnknown is a sentinel for unset formats.
	FormatUnknown Format = iota
	// FormatRGB8 is opaque 8-bit RGB (stored as NRGBA with alpha 255).
	FormatRGB8
	// FormatRGBA8 is 8-bit non-premultiplied RGBA.
	FormatRGBA8
	// FormatIndexed8 is an 8-bit palette index per pixel.
	FormatIndexed8
	// FormatBC1 is BC1/DXT1 (8 bytes per 4x4 block).
	FormatBC1
	// FormatBC3 is BC3/DXT5 (16 bytes per 4x4 block).
	FormatBC3
	// FormatPVRTC2 is PVRTC1 2bpp (8 bytes per 8x4 block).
	FormatPVRTC2
	// FormatPVRTC4 is PVRTC1 4bpp (8 bytes per 4x4 block).
	FormatPVRTC4
	// FormatETC1 is ETC1 RGB (8 bytes per 4x4 block).
	FormatETC1
	// FormatETC2RGB is ETC2 RGB (8 bytes per 4x4 block).
	FormatETC2RGB
	// FormatETC2RGBA8 is ETC2 RGB with EAC alpha (16 bytes per 4x4 block).
	FormatETC2RGBA8
)

func (f Format) String() string {
	switch f {
	case FormatRGB8:
		return "RGB8"
	case FormatRGBA8:
		return "RGBA8"
	case FormatIndexed8:
		return "Indexed8"
	case FormatBC1:
		return "BC1"
	case FormatBC3:
		return "BC3"
	case FormatPVRTC2:
		return "PVRTC2"
	case FormatPVRTC4:
		return "PVRTC4"
	case FormatETC1:
		return "ETC1"
	case FormatETC2RGB:
		return "ETC2RGB"
	case FormatETC2RGBA8:
		return "ETC2RGBA8"
	default:
		return "Unknown"
	}
}

// IsCompressed reports whether the format stores codec payloads instead of pixels.
func (f Format) IsCompressed() bool {
	switch f {
	case FormatBC1, FormatBC3, FormatPVRTC2, FormatPVRTC4, FormatETC1, FormatETC2RGB, FormatETC2RGBA8:
		return true
	default:
		return false
	}
}

// IsUncompressed reports whether the format is RGB8 or RGBA8.
func (f Format) IsUncompressed() bool {
	return f == FormatRGB8 || f == FormatRGBA8
}

// HasAlpha reports whether the format carries an alpha channel.
func (f Format) HasAlpha() bool {
	switch f {
	case FormatRGBA8, FormatIndexed8, FormatBC3, FormatETC2RGBA8:
		return true
	default:
		return false
	}
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f >= FormatRGB8 && f <= FormatETC2RGBA8
}

// LevelSize returns the expected payload length of one level, or -1 for unknown formats.
func (f Format) LevelSize(width, height int) int {
	blocksW := (width + 3) / 4
	blocksH := (height + 3) / 4
	switch f {
	case FormatRGB8:
		return width * height * 3
	case FormatRGBA8:
		return width * height * 4
	case FormatIndexed8:
		return width * height
	case FormatBC1, FormatETC1, FormatETC2RGB:
		return blocksW * blocksH * 8
	case FormatBC3, FormatETC2RGBA8:
		return blocksW * blocksH * 16
	case FormatPVRTC4:
		return max(width, 8) * max(height, 8) / 2
	case FormatPVRTC2:
		return max(width, 16) * max(height, 8) / 4
	default:
		return -1
	}
}
