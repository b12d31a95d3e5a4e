package texfile

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png" // lossless disk payloads
	"io"

	_ "github.com/deepteams/webp" // lossy disk payloads
	"github.com/nigeltao/etc2/lib/etc2"
	"github.com/woozymasta/bcn"
	_ "github.com/xfmoulet/qoi" // lossless disk payloads

	"github.com/woozymasta/teximport/pixel"
)

// DecodeOptions configures Preview.
type DecodeOptions struct {
	// Workers is passed to the BCn decoder. 0 means auto.
	Workers int
}

// Preview decodes the base level of t into pixels.
// PVRTC levels are not decodable and fail with ErrDecodeImage.
func Preview(t *Texture, opts *DecodeOptions) (image.Image, error) {
	if len(t.Levels) == 0 || t.Levels[0] == nil {
		return nil, ErrEmptyLevels
	}
	level := t.Levels[0]

	if t.Storage.IsDisk() {
		img, _, err := image.Decode(bytes.NewReader(level))
		if err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrDecodeImage, t.Storage, err)
		}
		return img, nil
	}

	switch t.Format {
	case pixel.FormatRGB8, pixel.FormatRGBA8, pixel.FormatIndexed8:
		buf, err := pixel.FromPayloads(t.Format, t.Width, t.Height, t.Levels[:1], t.Palette)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
		}
		return buf.Image()
	case pixel.FormatBC1, pixel.FormatBC3:
		var decOpts *bcn.DecodeOptions
		if opts != nil {
			decOpts = &bcn.DecodeOptions{Workers: opts.Workers}
		}
		img, err := bcn.DecodeImageWithOptions(level, t.Width, t.Height, ddsFormat(t.Format), decOpts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
		}
		return img, nil
	case pixel.FormatETC1, pixel.FormatETC2RGB:
		return decodeETC(etc2.FormatETC2RGB, level, t.Width, t.Height)
	case pixel.FormatETC2RGBA8:
		return decodeETC(etc2.FormatETC2RGBA8, level, t.Width, t.Height)
	default:
		return nil, fmt.Errorf("%w: %s", ErrDecodeImage, t.Format)
	}
}

func decodeETC(f etc2.Format, level []byte, width, height int) (image.Image, error) {
	dst, err := f.NewImage(width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}

	var src io.Reader = bytes.NewReader(level)
	if err := f.Decode(dst, src, (width+3)/4, (height+3)/4); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}

	return dst.SubImage(image.Rect(0, 0, width, height)), nil
}
