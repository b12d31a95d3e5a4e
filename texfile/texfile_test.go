package texfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/woozymasta/teximport/pixel"
)

func gradientBuffer(t testing.TB, w, h int, mips bool) *pixel.Buffer {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x*7 + y*3) & 0xff),        //nolint:gosec // bounded by mask
				G: uint8((x*13 + y*5) & 0xff),       //nolint:gosec // bounded by mask
				B: uint8((x ^ y ^ (x >> 2)) & 0xff), //nolint:gosec // bounded by mask
				A: 255,
			})
		}
	}

	buf, err := pixel.FromImage(img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	if mips {
		if buf, err = buf.GenerateMipmaps(); err != nil {
			t.Fatalf("GenerateMipmaps: %v", err)
		}
	}

	return buf
}

func TestCompressRoundTrip(t *testing.T) {
	t.Parallel()

	data := make([]byte, 128*1024)
	for i := range data {
		data[i] = byte((i*31 + 7) & 0xff)
	}

	tests := []struct {
		c     Compression
		magic string
	}{
		{c: CompressionNone, magic: BlockMagicCOPY},
		{c: CompressionLZ4, magic: BlockMagicLZ4},
		{c: CompressionZstd, magic: BlockMagicZSTD},
	}

	for _, tc := range tests {
		t.Run(tc.c.String(), func(t *testing.T) {
			t.Parallel()

			block, err := compressBlock(data, tc.c)
			if err != nil {
				t.Fatalf("compressBlock: %v", err)
			}
			if block.Magic != tc.magic {
				t.Fatalf("magic = %q, want %q", block.Magic, tc.magic)
			}

			out, err := decompressBlock(block, len(data))
			if err != nil {
				t.Fatalf("decompressBlock: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Fatalf("round-trip mismatch")
			}
		})
	}
}

func TestCompressFallsBackToCOPY(t *testing.T) {
	t.Parallel()

	small := bytes.Repeat([]byte{1}, minCompressSize-1)
	noise := make([]byte, 64*1024)
	rng := rand.New(rand.NewSource(3))
	_, _ = rng.Read(noise)

	for name, data := range map[string][]byte{"small": small, "noise": noise} {
		block, err := compressBlock(data, CompressionLZ4)
		if err != nil {
			t.Fatalf("%s: compressBlock: %v", name, err)
		}
		if block.Magic != BlockMagicCOPY || int(block.Size) != len(data) {
			t.Fatalf("%s: got %q block of %d bytes", name, block.Magic, block.Size)
		}
	}
}

func TestParseCompression(t *testing.T) {
	t.Parallel()

	for c := CompressionNone; c <= CompressionZstd; c++ {
		text, err := c.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var got Compression
		if err := got.UnmarshalText(text); err != nil || got != c {
			t.Fatalf("UnmarshalText(%q) = %v, %v", text, got, err)
		}
	}
	if got, err := ParseCompression("COPY"); err != nil || got != CompressionNone {
		t.Fatalf("ParseCompression(COPY) = %v, %v", got, err)
	}
	if _, err := ParseCompression("brotli"); !errors.Is(err, ErrInvalidCompression) {
		t.Fatalf("expected ErrInvalidCompression, got %v", err)
	}
}

func TestWriteFileReplaces(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.tex")
	if err := os.WriteFile(path, []byte("stale bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	buf := gradientBuffer(t, 8, 8, false)
	if err := WriteFile(path, FromBuffer(uuid.New(), buf), CompressionLZ4); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadFile(path); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.tex" {
		t.Fatalf("unexpected directory contents %v", entries)
	}
	fi, err := entries[0].Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if fi.Mode().Perm()&0o044 == 0 {
		t.Fatalf("mode %v not readable by others", fi.Mode())
	}
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()

			tex := FromBuffer(uuid.New(), gradientBuffer(t, 64, 32, true))
			tex.LogicalWidth, tex.LogicalHeight = 60, 30
			tex.Flags = 0x42

			path := filepath.Join(t.TempDir(), "test.tex")
			if err := WriteFile(path, tex, c); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if got.ID != tex.ID || got.Format != pixel.FormatRGBA8 || got.Storage != StorageRaw {
				t.Fatalf("header mismatch: %+v", got)
			}
			if got.Width != 64 || got.Height != 32 || got.LogicalWidth != 60 || got.LogicalHeight != 30 || got.Flags != 0x42 {
				t.Fatalf("dimensions mismatch: %dx%d logical %dx%d", got.Width, got.Height, got.LogicalWidth, got.LogicalHeight)
			}
			if len(got.Levels) != len(tex.Levels) {
				t.Fatalf("levels = %d, want %d", len(got.Levels), len(tex.Levels))
			}
			for i := range tex.Levels {
				if !bytes.Equal(got.Levels[i], tex.Levels[i]) {
					t.Fatalf("level %d mismatch", i)
				}
			}

			buf, err := got.Buffer()
			if err != nil {
				t.Fatalf("Buffer: %v", err)
			}
			if buf.MipCount() != pixel.MipCount(64, 32) {
				t.Fatalf("mip count = %d", buf.MipCount())
			}
		})
	}
}

func TestWriteReadIndexed(t *testing.T) {
	t.Parallel()

	indexed, err := gradientBuffer(t, 16, 16, false).Quantize()
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}

	data, err := Encode(FromBuffer(uuid.New(), indexed), CompressionLZ4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Format != pixel.FormatIndexed8 || len(got.Palette) != len(indexed.Palette) {
		t.Fatalf("got %s with %d colours", got.Format, len(got.Palette))
	}
	for i, c := range indexed.Palette {
		want := color.NRGBAModel.Convert(c).(color.NRGBA)
		if got.Palette[i] != want {
			t.Fatalf("palette[%d] = %v, want %v", i, got.Palette[i], want)
		}
	}
}

func TestDiskStorage(t *testing.T) {
	t.Parallel()

	tex := &Texture{
		ID:      uuid.New(),
		Format:  pixel.FormatRGBA8,
		Storage: StorageLossless,
		Width:   300,
		Height:  200,
		Levels:  [][]byte{[]byte("not really png but opaque to the container")},
	}

	data, err := Encode(tex, CompressionZstd)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Storage != StorageLossless || !bytes.Equal(got.Levels[0], tex.Levels[0]) {
		t.Fatalf("disk payload mismatch")
	}
	if _, err := got.Buffer(); !errors.Is(err, ErrInvalidStorage) {
		t.Fatalf("expected ErrInvalidStorage, got %v", err)
	}
}

func TestDigestMismatch(t *testing.T) {
	t.Parallel()

	data, err := Encode(FromBuffer(uuid.New(), gradientBuffer(t, 16, 16, false)), CompressionNone)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// The largest level body is written last.
	data[len(data)-1] ^= 0xff
	if _, err := Decode(data); !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("expected ErrDigestMismatch, got %v", err)
	}
}

func TestReadHeader(t *testing.T) {
	t.Parallel()

	tex := FromBuffer(uuid.New(), gradientBuffer(t, 32, 32, true))
	data, err := Encode(tex, CompressionLZ4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := ReadHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got.ID != tex.ID || got.Width != 32 || len(got.Levels) != pixel.MipCount(32, 32) {
		t.Fatalf("unexpected header: %+v", got)
	}

	if _, err := ReadHeader(bytes.NewReader([]byte("DDS \x00\x00\x00\x00"))); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestWriteValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tex     *Texture
		wantErr error
	}{
		{
			name:    "empty-levels",
			tex:     &Texture{Format: pixel.FormatRGBA8, Width: 4, Height: 4},
			wantErr: ErrEmptyLevels,
		},
		{
			name:    "level-size-mismatch",
			tex:     &Texture{Format: pixel.FormatBC1, Storage: StoragePlatform, Width: 4, Height: 4, Levels: [][]byte{make([]byte, 7)}},
			wantErr: ErrLevelSizeMismatch,
		},
		{
			name:    "unknown-format",
			tex:     &Texture{Format: pixel.FormatUnknown, Width: 4, Height: 4, Levels: [][]byte{{}}},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "disk-multi-level",
			tex:     &Texture{Format: pixel.FormatRGBA8, Storage: StorageLossy, Width: 4, Height: 4, Levels: [][]byte{{1}, {2}}},
			wantErr: ErrLevelSizeMismatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := Write(&buf, tc.tex, CompressionNone); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestReadBlockTableErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown-magic", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		_, _ = buf.WriteString("ABCD")
		_ = binary.Write(&buf, binary.LittleEndian, int32(8))

		_, err := readBlockTable(bytes.NewReader(buf.Bytes()), 1)
		if !errors.Is(err, ErrUnknownBlockMagic) {
			t.Fatalf("expected ErrUnknownBlockMagic, got %v", err)
		}
	})

	t.Run("negative-size", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		_, _ = buf.WriteString(BlockMagicCOPY)
		_ = binary.Write(&buf, binary.LittleEndian, int32(-1))

		_, err := readBlockTable(bytes.NewReader(buf.Bytes()), 1)
		if !errors.Is(err, ErrBlockTableInvalidSize) {
			t.Fatalf("expected ErrBlockTableInvalidSize, got %v", err)
		}
	})

	t.Run("short-table", func(t *testing.T) {
		t.Parallel()

		_, err := readBlockTable(bytes.NewReader([]byte("COPY")), 1)
		if !errors.Is(err, ErrBlockTableRead) {
			t.Fatalf("expected ErrBlockTableRead, got %v", err)
		}
	})
}

func TestRegionRoundTrip(t *testing.T) {
	t.Parallel()

	reg := &Region{
		AtlasID:   uuid.New(),
		AtlasPath: "textures/atlas.tex",
		Rect:      image.Rect(66, 18, 114, 34),
		Margin:    image.Rect(5, 5, 7, 8),
	}

	path := filepath.Join(t.TempDir(), "a.atex")
	if err := WriteRegionFile(path, reg); err != nil {
		t.Fatalf("WriteRegionFile: %v", err)
	}
	got, err := ReadRegionFile(path)
	if err != nil {
		t.Fatalf("ReadRegionFile: %v", err)
	}
	if *got != *reg {
		t.Fatalf("got %+v, want %+v", got, reg)
	}

	if _, err := ReadRegion(bytes.NewReader([]byte("TEXF"))); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestDDSRoundTrip(t *testing.T) {
	t.Parallel()

	src := gradientBuffer(t, 16, 8, true)
	var buf bytes.Buffer
	if err := WriteDDS(&buf, src); err != nil {
		t.Fatalf("WriteDDS: %v", err)
	}

	got, err := ReadDDS(&buf)
	if err != nil {
		t.Fatalf("ReadDDS: %v", err)
	}
	if got.Format != pixel.FormatRGBA8 || got.MipCount() != src.MipCount() {
		t.Fatalf("got %s with %d levels", got.Format, got.MipCount())
	}
	want := src.Payloads()
	for i, p := range got.Payloads() {
		if !bytes.Equal(p, want[i]) {
			t.Fatalf("level %d mismatch", i)
		}
	}

	indexed, err := src.DropMipmaps().Quantize()
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if err := WriteDDS(&bytes.Buffer{}, indexed); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	src := gradientBuffer(t, 8, 8, false)
	img, err := Preview(FromBuffer(uuid.New(), src), nil)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	got, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("expected *image.NRGBA, got %T", img)
	}
	if !bytes.Equal(got.Pix, src.Levels[0].Pix) {
		t.Fatalf("pixel mismatch")
	}

	pvrtc := &Texture{Format: pixel.FormatPVRTC4, Storage: StoragePlatform, Width: 8, Height: 8, Levels: [][]byte{make([]byte, 32)}}
	if _, err := Preview(pvrtc, nil); !errors.Is(err, ErrDecodeImage) {
		t.Fatalf("expected ErrDecodeImage, got %v", err)
	}
}

func TestNarrow(t *testing.T) {
	t.Parallel()

	if v, err := narrow[int32](1<<31 - 1); err != nil || v != 1<<31-1 {
		t.Fatalf("narrow[int32](max) = %d, %v", v, err)
	}
	if v, err := narrow[uint32](1<<32 - 1); err != nil || v != 1<<32-1 {
		t.Fatalf("narrow[uint32](max) = %d, %v", v, err)
	}

	for _, n := range []int{-1, 1 << 31} {
		if _, err := narrow[int32](n); !errors.Is(err, ErrSizeOverflow) {
			t.Fatalf("narrow[int32](%d): expected ErrSizeOverflow, got %v", n, err)
		}
	}
	for _, n := range []int{-1, 1 << 32} {
		if _, err := narrow[uint32](n); !errors.Is(err, ErrSizeOverflow) {
			t.Fatalf("narrow[uint32](%d): expected ErrSizeOverflow, got %v", n, err)
		}
	}
	if _, _, err := narrowSize[uint32](4, -2); !errors.Is(err, ErrSizeOverflow) {
		t.Fatalf("narrowSize: expected ErrSizeOverflow, got %v", err)
	}
}
