package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/woozymasta/teximport/pixel"
)

func pattern(t *testing.T, w, h int, alpha uint8) *pixel.Buffer {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 5), G: uint8(y * 3), B: uint8((x + y) * 2), A: alpha})
		}
	}
	buf, err := pixel.FromImage(img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}

	return buf
}

func TestModeText(t *testing.T) {
	t.Parallel()

	for m := ModeNone; m <= ModeETC2; m++ {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("astc"); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
	if _, err := DefaultSet(Options{}).Lookup(Mode(42)); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestPrepareIdempotent(t *testing.T) {
	t.Parallel()

	for m, c := range DefaultSet(Options{}) {
		t.Run(m.String(), func(t *testing.T) {
			t.Parallel()

			once, err := Prepare(c, pattern(t, 20, 12, 255))
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			twice, err := Prepare(c, once)
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			if twice != once {
				t.Fatalf("second Prepare must return its input")
			}
			if err := c.Requirements().Check(once); err != nil {
				t.Fatalf("prepared buffer fails its own requirements: %v", err)
			}
		})
	}
}

func TestEncodeChecksPreconditions(t *testing.T) {
	t.Parallel()

	raw := pattern(t, 20, 12, 255)
	for _, c := range []Codec{Block{}, PVRTC{}, ETC1{}, ETC2{}} {
		if _, err := c.Encode(raw, Hints{}); !errors.Is(err, ErrPrecondition) {
			t.Errorf("%s: expected ErrPrecondition, got %v", c.Name(), err)
		}
	}

	po2, err := pattern(t, 16, 16, 255).ResizeToPowerOfTwo(false)
	if err != nil {
		t.Fatalf("ResizeToPowerOfTwo: %v", err)
	}
	if _, err := (Block{}).Encode(po2, Hints{}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("missing mipmaps must fail, got %v", err)
	}
}

func TestCompressDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	src := pattern(t, 20, 12, 255)
	before := append([]byte(nil), src.Levels[0].Pix...)
	if _, err := Compress(Block{QualityLevel: 1}, src, Hints{}); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if src.Width != 20 || src.Height != 12 || src.MipCount() != 1 || !bytes.Equal(src.Levels[0].Pix, before) {
		t.Fatalf("input mutated")
	}
}

func TestBlockFormatSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		alpha uint8
		hints Hints
		want  pixel.Format
	}{
		{name: "opaque", alpha: 255, want: pixel.FormatBC1},
		{name: "alpha", alpha: 100, want: pixel.FormatBC3},
		{name: "alpha-bit", alpha: 100, hints: Hints{AlphaBit: true}, want: pixel.FormatBC1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := Compress(Block{QualityLevel: 1, Workers: 1}, pattern(t, 16, 8, tt.alpha), tt.hints)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if out.Format != tt.want {
				t.Fatalf("format = %s, want %s", out.Format, tt.want)
			}
			if out.MipCount() != pixel.MipCount(16, 8) {
				t.Fatalf("mip count = %d", out.MipCount())
			}
		})
	}
}

func TestETC1(t *testing.T) {
	t.Parallel()

	out, err := Compress(ETC1{}, pattern(t, 100, 100, 255), Hints{})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if out.Format != pixel.FormatETC1 || out.Width != 128 || out.Height != 128 {
		t.Fatalf("got %s %dx%d", out.Format, out.Width, out.Height)
	}
	if out.MipCount() != pixel.MipCount(128, 128) {
		t.Fatalf("mip count = %d", out.MipCount())
	}
	if len(out.Data[0]) != pixel.FormatETC1.LevelSize(128, 128) {
		t.Fatalf("level 0 size = %d", len(out.Data[0]))
	}
}

func TestETC1RejectsAlpha(t *testing.T) {
	t.Parallel()

	_, err := Compress(ETC1{}, pattern(t, 100, 100, 128), Hints{})
	if !errors.Is(err, ErrUnsupportedAlpha) {
		t.Fatalf("expected ErrUnsupportedAlpha, got %v", err)
	}
}

func TestETC2FormatSelection(t *testing.T) {
	t.Parallel()

	opaque, err := Compress(ETC2{}, pattern(t, 8, 8, 255), Hints{})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if opaque.Format != pixel.FormatETC2RGB {
		t.Fatalf("opaque format = %s", opaque.Format)
	}

	translucent, err := Compress(ETC2{}, pattern(t, 8, 8, 64), Hints{})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if translucent.Format != pixel.FormatETC2RGBA8 {
		t.Fatalf("translucent format = %s", translucent.Format)
	}
	if len(translucent.Data[0]) != 64 {
		t.Fatalf("level 0 size = %d, want 64", len(translucent.Data[0]))
	}
}

func TestIndexed(t *testing.T) {
	t.Parallel()

	out, err := Compress(Indexed{}, pattern(t, 10, 6, 255), Hints{})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if out.Format != pixel.FormatIndexed8 || out.Width != 10 || out.Height != 6 {
		t.Fatalf("got %s %dx%d", out.Format, out.Width, out.Height)
	}
	if len(out.Palette) == 0 || len(out.Palette) > pixel.PaletteSize {
		t.Fatalf("palette size %d", len(out.Palette))
	}
}

func TestNonePassThrough(t *testing.T) {
	t.Parallel()

	src := pattern(t, 10, 6, 255)
	out, err := Compress(None{}, src, Hints{})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if out != src {
		t.Fatalf("none must return its input")
	}
}
