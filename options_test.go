package teximport

import (
	"errors"
	"image"
	"image/color"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/woozymasta/teximport/texfile"
)

func TestFlagsText(t *testing.T) {
	t.Parallel()

	all := FlagStreaming | FlagFixBorderAlpha | FlagAlphaBitHint | FlagExtraCompression | FlagNoMipmaps | FlagRepeat | FlagFilter
	if got, want := all.String(), "stream,fix_border,alpha_bit,extra,no_mipmaps,repeat,filter"; got != want {
		t.Fatalf("String = %q, want %q", got, want)
	}

	tests := []struct {
		in   string
		want Flags
	}{
		{"", 0},
		{"fix_border", FlagFixBorderAlpha},
		{" Repeat , filter ", FlagRepeat | FlagFilter},
		{all.String(), all},
	}
	for _, tc := range tests {
		got, err := ParseFlags(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("ParseFlags(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
	if _, err := ParseFlags("mipmaps"); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestFlagValues(t *testing.T) {
	t.Parallel()

	// Cache keys depend on these numbers.
	got := []Flags{FlagStreaming, FlagFixBorderAlpha, FlagAlphaBitHint, FlagExtraCompression, FlagNoMipmaps, FlagRepeat, FlagFilter}
	want := []Flags{1, 2, 4, 8, 16, 32, 64}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("flag %d = %d, want %d", i, got[i], want[i])
		}
	}
	if FormatUncompressed != 0 || FormatLosslessDisk != 1 || FormatLossyDisk != 2 || FormatPlatformCompressed != 3 {
		t.Fatalf("format values changed")
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for f := FormatUncompressed; f <= FormatPlatformCompressed; f++ {
		got, err := ParseFormat(f.String())
		if err != nil || got != f {
			t.Fatalf("ParseFormat(%q) = %v, %v", f.String(), got, err)
		}
	}
	if _, err := ParseFormat("astc"); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
	if _, err := ParseLossless("jpeg"); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestShrinkFactor(t *testing.T) {
	t.Parallel()

	for in, want := range map[int]int{0: 1, 1: 1, 4: 4} {
		if got := (ImportOptions{Shrink: in}).ShrinkFactor(); got != want {
			t.Fatalf("ShrinkFactor(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := newError(KindPersist, "out/a.tex", io.ErrShortWrite)
	if !errors.Is(err, ErrPersist) || !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("errors.Is failed for %v", err)
	}
	if errors.Is(err, ErrEncode) {
		t.Fatalf("persist error matched ErrEncode")
	}
	if msg := err.Error(); !strings.Contains(msg, "out/a.tex") || !strings.Contains(msg, io.ErrShortWrite.Error()) {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRegistryReplaceOnReimport(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	buf := solid(t, 4, 4, color.NRGBA{A: 255})
	first := &Artifact{ID: uuid.New(), Path: "atlas.tex", Buffer: buf}
	second := &Artifact{ID: uuid.New(), Path: "atlas.tex", Buffer: buf}
	entry := &AtlasEntry{AtlasID: first.ID}

	r.Register(first)
	if got, err := r.Resolve(entry); err != nil || got.ID != first.ID || got.Size != image.Pt(4, 4) {
		t.Fatalf("Resolve = %v, %v", got, err)
	}

	r.Register(second)
	if _, err := r.Resolve(entry); !errors.Is(err, ErrAtlasReleased) {
		t.Fatalf("expected ErrAtlasReleased after re-import, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	if _, err := r.Lookup(uuid.New()); !errors.Is(err, ErrUnknownArtifact) {
		t.Fatalf("expected ErrUnknownArtifact, got %v", err)
	}
}

func TestRegistryBoundsReleased(t *testing.T) {
	t.Parallel()

	r := newRegistry(2)
	buf := solid(t, 1, 1, color.NRGBA{A: 255})
	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		r.Register(&Artifact{ID: ids[i], Path: ids[i].String(), Buffer: buf})
		r.Destroy(ids[i])
	}

	if _, err := r.Lookup(ids[0]); !errors.Is(err, ErrUnknownArtifact) {
		t.Fatalf("oldest release: expected ErrUnknownArtifact, got %v", err)
	}
	for _, id := range ids[1:] {
		if _, err := r.Lookup(id); !errors.Is(err, ErrAtlasReleased) {
			t.Fatalf("expected ErrAtlasReleased, got %v", err)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}

func TestArtifactTexture(t *testing.T) {
	t.Parallel()

	buf := solid(t, 8, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	a := &Artifact{
		ID:           uuid.New(),
		Buffer:       buf,
		Storage:      texfile.StorageLossless,
		Encoded:      []byte("png bytes"),
		SizeOverride: image.Pt(16, 8),
		Flags:        TextureFilter,
	}

	tex := a.Texture()
	if tex.Storage != texfile.StorageLossless || len(tex.Levels) != 1 || string(tex.Levels[0]) != "png bytes" {
		t.Fatalf("unexpected disk texture %+v", tex)
	}
	if tex.LogicalWidth != 16 || tex.LogicalHeight != 8 || tex.Flags != uint32(TextureFilter) {
		t.Fatalf("unexpected logical size or flags %+v", tex)
	}
	if a.LogicalSize() != image.Pt(16, 8) || a.Size() != image.Pt(8, 4) {
		t.Fatalf("sizes %v %v", a.LogicalSize(), a.Size())
	}
}
