package texfile

import (
	"fmt"
	"io"

	"github.com/woozymasta/bcn"

	"github.com/woozymasta/teximport/pixel"
)

// ddsFormat maps a pixel format to its DDS payload format.
func ddsFormat(f pixel.Format) bcn.Format {
	switch f {
	case pixel.FormatBC1:
		return bcn.FormatDXT1
	case pixel.FormatBC3:
		return bcn.FormatDXT5
	case pixel.FormatRGBA8:
		return bcn.FormatRGBA8
	default:
		return bcn.FormatUnknown
	}
}

func pixelFormat(f bcn.Format) pixel.Format {
	switch f {
	case bcn.FormatDXT1:
		return pixel.FormatBC1
	case bcn.FormatDXT5:
		return pixel.FormatBC3
	case bcn.FormatRGBA8:
		return pixel.FormatRGBA8
	default:
		return pixel.FormatUnknown
	}
}

func makeFourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

func makeDDSHeader(width, height, mipMapCount uint32, format bcn.Format) (*bcn.DDSHeader, error) {
	flags := uint32(bcn.DDSFlagCaps | bcn.DDSFlagHeight | bcn.DDSFlagWidth | bcn.DDSFlagPixelFormat)
	caps := uint32(bcn.DDSCapsTexture)
	if mipMapCount > 1 {
		flags |= bcn.DDSFlagMipmapCount
		caps |= bcn.DDSCapsComplex | bcn.DDSCapsMipmap
	}

	hdr := &bcn.DDSHeader{
		Size:        bcn.DDSHeaderSize,
		Flags:       flags,
		Height:      height,
		Width:       width,
		Depth:       1,
		MipMapCount: mipMapCount,
		Caps:        caps,
	}
	hdr.PixelFormat.Size = bcn.DDSPixelFormatSize

	switch format {
	case bcn.FormatDXT1:
		hdr.Flags |= bcn.DDSFlagLinearSize
		hdr.PixelFormat.Flags = bcn.DDSPFFourCC
		hdr.PixelFormat.FourCC = makeFourCC('D', 'X', 'T', '1')
		hdr.PitchOrLinearSize = uint32(pixel.FormatBC1.LevelSize(int(width), int(height)))
	case bcn.FormatDXT5:
		hdr.Flags |= bcn.DDSFlagLinearSize
		hdr.PixelFormat.Flags = bcn.DDSPFFourCC
		hdr.PixelFormat.FourCC = makeFourCC('D', 'X', 'T', '5')
		hdr.PitchOrLinearSize = uint32(pixel.FormatBC3.LevelSize(int(width), int(height)))
	case bcn.FormatRGBA8:
		hdr.Flags |= bcn.DDSFlagPitch
		hdr.PixelFormat.Flags = bcn.DDSPFRGB | bcn.DDSPFAlphaPixels
		hdr.PixelFormat.RGBBitCount = 32
		hdr.PixelFormat.RBitMask = 0x000000ff
		hdr.PixelFormat.GBitMask = 0x0000ff00
		hdr.PixelFormat.BBitMask = 0x00ff0000
		hdr.PixelFormat.ABitMask = 0xff000000
		hdr.PitchOrLinearSize = width * 4
	default:
		return nil, ErrInvalidFormat
	}

	return hdr, nil
}

// WriteDDS writes a BC1, BC3 or RGBA8 buffer as a plain DDS file with its
// full stored mip chain, largest level first.
func WriteDDS(w io.Writer, buf *pixel.Buffer) error {
	format := ddsFormat(buf.Format)
	if format == bcn.FormatUnknown {
		return fmt.Errorf("%w: %s has no DDS form", ErrInvalidFormat, buf.Format)
	}

	levels := buf.Payloads()
	if len(levels) == 0 {
		return ErrEmptyLevels
	}
	w32, h32, err := narrowSize[uint32](buf.Width, buf.Height)
	if err != nil {
		return err
	}
	mip32, err := narrow[uint32](len(levels))
	if err != nil {
		return err
	}

	header, err := makeDDSHeader(w32, h32, mip32, format)
	if err != nil {
		return err
	}
	if err := bcn.WriteDDSMagic(w); err != nil {
		return fmt.Errorf("%w: DDS magic: %v", ErrWrite, err)
	}
	if err := bcn.WriteDDSHeader(w, header); err != nil {
		return fmt.Errorf("%w: DDS header: %v", ErrWrite, err)
	}

	for i, level := range levels {
		if _, err := w.Write(level); err != nil {
			return fmt.Errorf("%w: level %d: %v", ErrWrite, i, err)
		}
	}

	return nil
}

// ReadDDS reads a single-face BC1, BC3 or RGBA8 DDS file into a buffer.
func ReadDDS(r io.Reader) (*pixel.Buffer, error) {
	dds, err := bcn.ReadDDS(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeaderRead, err)
	}
	if dds.IsCubemap() || len(dds.Faces) == 0 {
		return nil, fmt.Errorf("%w: %d faces", ErrInvalidFormat, len(dds.Faces))
	}

	format := pixelFormat(dds.Format)
	if format == pixel.FormatUnknown {
		return nil, fmt.Errorf("%w: DDS %s", ErrInvalidFormat, dds.Format)
	}

	return pixel.FromPayloads(format, dds.Width, dds.Height, dds.Faces[0].Mipmaps, nil)
}
