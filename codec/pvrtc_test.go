package codec

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/woozymasta/teximport/pixel"
)

func TestPVRTCSolidBlock(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	buf, err := pixel.FromImage(img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}

	out, err := Compress(PVRTC{}, buf, Hints{})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if out.Format != pixel.FormatPVRTC4 {
		t.Fatalf("format = %s", out.Format)
	}

	block := []byte{0, 0, 0, 0, 0x00, 0xFC, 0x00, 0xFC}
	for i, level := range out.Data {
		if len(level)%8 != 0 || len(level) < 32 {
			t.Fatalf("level %d size %d", i, len(level))
		}
		for off := 0; off < len(level); off += 8 {
			if !bytes.Equal(level[off:off+8], block) {
				t.Fatalf("level %d block %d = % x", i, off/8, level[off:off+8])
			}
		}
	}
}

func TestPVRTCSizes(t *testing.T) {
	t.Parallel()

	for _, smaller := range []bool{false, true} {
		out, err := Compress(PVRTC{}, pattern(t, 40, 20, 200), Hints{PreferSmaller: smaller})
		if err != nil {
			t.Fatalf("Compress: %v", err)
		}
		if out.Width != 64 || out.Height != 64 {
			t.Fatalf("got %dx%d, want 64x64", out.Width, out.Height)
		}
		want := pixel.FormatPVRTC4
		if smaller {
			want = pixel.FormatPVRTC2
		}
		if out.Format != want {
			t.Fatalf("format = %s, want %s", out.Format, want)
		}
		for i, level := range out.Data {
			w, h := pixel.MipDimension(64, i), pixel.MipDimension(64, i)
			if len(level) != want.LevelSize(w, h) {
				t.Fatalf("%s level %d size %d, want %d", want, i, len(level), want.LevelSize(w, h))
			}
		}
	}
}

func TestTwiddle(t *testing.T) {
	t.Parallel()

	seen := map[int]bool{}
	for y := 0; y < 4; y++ {
		for x := 0; x < 2; x++ {
			i := twiddle(x, y, 2, 4)
			if i < 0 || i >= 8 || seen[i] {
				t.Fatalf("twiddle(%d,%d) = %d", x, y, i)
			}
			seen[i] = true
		}
	}
	if got := twiddle(1, 1, 4, 4); got != 3 {
		t.Fatalf("twiddle(1,1) = %d, want 3", got)
	}
	if got := twiddle(1, 0, 4, 4); got != 2 {
		t.Fatalf("twiddle(1,0) = %d, want 2", got)
	}
}
