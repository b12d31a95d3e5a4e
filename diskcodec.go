package teximport

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/deepteams/webp"
	"github.com/xfmoulet/qoi"
)

// Lossless selects the file format of FormatLosslessDisk artifacts.
type Lossless uint8

const (
	LosslessPNG Lossless = iota
	LosslessQOI
)

func (l Lossless) String() string {
	switch l {
	case LosslessPNG:
		return "png"
	case LosslessQOI:
		return "qoi"
	default:
		return fmt.Sprintf("lossless(%d)", uint8(l))
	}
}

// ParseLossless parses "png" or "qoi".
func ParseLossless(s string) (Lossless, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return LosslessPNG, nil
	case "qoi":
		return LosslessQOI, nil
	default:
		return 0, fmt.Errorf("%w: unknown lossless codec %q", ErrInvalidOptions, s)
	}
}

var pngEncoder = png.Encoder{CompressionLevel: png.BestCompression}

func encodeLossless(img image.Image, l Lossless) ([]byte, error) {
	var buf bytes.Buffer
	switch l {
	case LosslessQOI:
		if err := qoi.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("qoi: %w", err)
		}
	default:
		if err := pngEncoder.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("png: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// encodeLossy writes WebP at quality in 0..1.
func encodeLossy(img image.Image, quality float32) ([]byte, error) {
	opts := webp.OptionsForPreset(webp.PresetPicture, quality*100)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("webp: %w", err)
	}

	return buf.Bytes(), nil
}
