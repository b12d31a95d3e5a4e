package codec

import (
	"bytes"
	"fmt"

	"github.com/nigeltao/etc2/lib/etc2"

	"github.com/woozymasta/teximport/pixel"
)

// ETC1 encodes opaque images. Buffers with alpha fail with ErrUnsupportedAlpha.
type ETC1 struct{}

// Name implements Codec.
func (ETC1) Name() string { return "etc1" }

// Requirements implements Codec.
func (ETC1) Requirements() Requirements {
	return Requirements{PowerOfTwo: true, Mipmaps: true}
}

// Encode implements Codec.
func (c ETC1) Encode(buf *pixel.Buffer, _ Hints) (*pixel.Buffer, error) {
	if err := c.Requirements().Check(buf); err != nil {
		return nil, err
	}
	if buf.DetectAlpha() {
		return nil, fmt.Errorf("%w: etc1 on %dx%d", ErrUnsupportedAlpha, buf.Width, buf.Height)
	}

	return encodeETC(buf, etc2.FormatETC1, pixel.FormatETC1)
}

// ETC2 encodes ETC2 RGB for opaque images and ETC2 RGBA8 otherwise.
type ETC2 struct{}

// Name implements Codec.
func (ETC2) Name() string { return "etc2" }

// Requirements implements Codec.
func (ETC2) Requirements() Requirements {
	return Requirements{PowerOfTwo: true, Mipmaps: true}
}

// Encode implements Codec.
func (c ETC2) Encode(buf *pixel.Buffer, _ Hints) (*pixel.Buffer, error) {
	if err := c.Requirements().Check(buf); err != nil {
		return nil, err
	}
	if buf.DetectAlpha() {
		return encodeETC(buf, etc2.FormatETC2RGBA8, pixel.FormatETC2RGBA8)
	}

	return encodeETC(buf, etc2.FormatETC2RGB, pixel.FormatETC2RGB)
}

func encodeETC(buf *pixel.Buffer, format etc2.Format, target pixel.Format) (*pixel.Buffer, error) {
	data := make([][]byte, len(buf.Levels))
	for i, level := range buf.Levels {
		var out bytes.Buffer
		out.Grow(target.LevelSize(level.Rect.Dx(), level.Rect.Dy()))
		if err := etc2.Encode(&out, level, format, nil); err != nil {
			return nil, fmt.Errorf("%w: %s level %d: %v", ErrEncode, target, i, err)
		}
		data[i] = out.Bytes()
	}

	return pixel.NewCompressed(target, buf.Width, buf.Height, data)
}
