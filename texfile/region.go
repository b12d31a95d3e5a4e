package texfile

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/google/uuid"
)

// RegionMagic starts every atlas region file.
const RegionMagic = "TEXR"

// Region points into an atlas texture. It never owns the atlas.
type Region struct {
	AtlasID   uuid.UUID
	AtlasPath string
	// Rect is the placed content rectangle, border excluded.
	Rect image.Rectangle
	// Margin is the cropped-away part of the source: Min is the used-rect
	// origin, Size() is the full size minus the used size.
	Margin image.Rectangle
}

type regionWire struct {
	AtlasID   []byte   `cbor:"1,keyasint"`
	AtlasPath string   `cbor:"2,keyasint"`
	Region    [4]int32 `cbor:"3,keyasint"`
	Margin    [4]int32 `cbor:"4,keyasint"`
}

func rectWire(r image.Rectangle) ([4]int32, error) {
	var out [4]int32
	for i, v := range []int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y} {
		n, err := narrow[int32](v)
		if err != nil {
			return out, fmt.Errorf("%w: rectangle %v", err, r)
		}
		out[i] = n
	}

	return out, nil
}

func wireRect(v [4]int32) image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(int(v[0]), int(v[1])),
		Max: image.Pt(int(v[2]), int(v[3])),
	}
}

// WriteRegion encodes reg to w.
func WriteRegion(w io.Writer, reg *Region) error {
	rect, err := rectWire(reg.Rect)
	if err != nil {
		return err
	}
	margin, err := rectWire(reg.Margin)
	if err != nil {
		return err
	}

	body, err := encMode.Marshal(regionWire{
		AtlasID:   reg.AtlasID[:],
		AtlasPath: reg.AtlasPath,
		Region:    rect,
		Margin:    margin,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHeaderEncode, err)
	}

	if _, err := io.WriteString(w, RegionMagic); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	return nil
}

// ReadRegion decodes a region file body.
func ReadRegion(r io.Reader) (*Region, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxHeaderSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeaderRead, err)
	}
	if !bytes.HasPrefix(data, []byte(RegionMagic)) {
		return nil, ErrBadMagic
	}

	var wire regionWire
	if err := decMode.Unmarshal(data[len(RegionMagic):], &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeaderDecode, err)
	}
	id, err := uuid.FromBytes(wire.AtlasID)
	if err != nil {
		return nil, fmt.Errorf("%w: atlas id: %v", ErrHeaderDecode, err)
	}

	return &Region{
		AtlasID:   id,
		AtlasPath: wire.AtlasPath,
		Rect:      wireRect(wire.Region),
		Margin:    wireRect(wire.Margin),
	}, nil
}

// WriteRegionFile writes reg to path.
func WriteRegionFile(path string, reg *Region) error {
	return writeFileAtomic(path, func(w io.Writer) error { return WriteRegion(w, reg) })
}

// ReadRegionFile reads the region file at path.
func ReadRegionFile(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadRegion(f)
}
