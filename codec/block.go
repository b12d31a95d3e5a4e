package codec

import (
	"fmt"

	"github.com/woozymasta/bcn"

	"github.com/woozymasta/teximport/pixel"
)

// Block encodes BC1 for opaque or cutout images and BC3 otherwise.
type Block struct {
	// QualityLevel is passed to bcn (1..10, 0 = balanced).
	QualityLevel int
	// Workers bounds parallel block encoding.
	Workers int
}

// Name implements Codec.
func (Block) Name() string { return "bc" }

// Requirements implements Codec.
func (Block) Requirements() Requirements {
	return Requirements{PowerOfTwo: true, Mipmaps: true}
}

// Encode implements Codec.
func (c Block) Encode(buf *pixel.Buffer, hints Hints) (*pixel.Buffer, error) {
	if err := c.Requirements().Check(buf); err != nil {
		return nil, err
	}

	format, target := bcn.FormatDXT5, pixel.FormatBC3
	if hints.AlphaBit || !buf.DetectAlpha() {
		format, target = bcn.FormatDXT1, pixel.FormatBC1
	}

	opts := &bcn.EncodeOptions{QualityLevel: c.quality(hints), Workers: c.Workers}
	data := make([][]byte, len(buf.Levels))
	for i, level := range buf.Levels {
		enc, _, _, err := bcn.EncodeImageWithOptions(level, format, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %s level %d: %v", ErrEncode, target, i, err)
		}
		data[i] = enc
	}

	return pixel.NewCompressed(target, buf.Width, buf.Height, data)
}

func (c Block) quality(hints Hints) int {
	if c.QualityLevel != 0 {
		return c.QualityLevel
	}
	if hints.Quality > 0 {
		return 1 + int(hints.Quality*9+0.5)
	}

	return bcn.QualityLevelBalanced
}
