package texfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/woozymasta/teximport/pixel"
)

const (
	// Magic starts every texture file.
	Magic = "TEXF"
	// Version is the current header version.
	Version = 1

	maxHeaderSize = 1 << 20
)

// Storage records how level payloads are encoded.
type Storage uint8

const (
	// StorageRaw holds uncompressed or indexed pixel levels.
	StorageRaw Storage = iota
	// StorageLossless holds one lossless image file (PNG or QOI).
	StorageLossless
	// StorageLossy holds one lossy image file (WebP).
	StorageLossy
	// StoragePlatform holds GPU-compressed levels.
	StoragePlatform
)

func (s Storage) String() string {
	switch s {
	case StorageRaw:
		return "raw"
	case StorageLossless:
		return "lossless"
	case StorageLossy:
		return "lossy"
	case StoragePlatform:
		return "platform"
	default:
		return fmt.Sprintf("storage(%d)", uint8(s))
	}
}

// IsDisk reports whether the payload is a single encoded image file.
func (s Storage) IsDisk() bool {
	return s == StorageLossless || s == StorageLossy
}

// Texture is the in-memory form of a texture file.
type Texture struct {
	ID      uuid.UUID
	Format  pixel.Format
	Storage Storage
	// Width and Height are the stored base level dimensions.
	Width  int
	Height int
	// LogicalWidth and LogicalHeight are the addressing size; zero means
	// the stored size.
	LogicalWidth  int
	LogicalHeight int
	Flags         uint32
	Palette       color.Palette
	// Levels are ordered from largest to smallest. Disk storage kinds hold
	// exactly one level with the encoded file bytes.
	Levels [][]byte
}

// header is the CBOR wire form of Texture metadata.
type header struct {
	Version       uint16 `cbor:"1,keyasint"`
	ID            []byte `cbor:"2,keyasint"`
	Width         uint32 `cbor:"3,keyasint"`
	Height        uint32 `cbor:"4,keyasint"`
	LogicalWidth  uint32 `cbor:"5,keyasint,omitempty"`
	LogicalHeight uint32 `cbor:"6,keyasint,omitempty"`
	Format        uint8  `cbor:"7,keyasint"`
	Storage       uint8  `cbor:"8,keyasint"`
	Flags         uint32 `cbor:"9,keyasint,omitempty"`
	Levels        uint32 `cbor:"10,keyasint"`
	Palette       []byte `cbor:"11,keyasint,omitempty"`
	Digest        []byte `cbor:"12,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("texfile: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("texfile: CBOR decoder initialization failed: " + err.Error())
	}
}

// payloadDomainKey separates payload digests from other BLAKE3 uses.
var payloadDomainKey = [32]byte{
	't', 'e', 'x', 'i', 'm', 'p', 'o', 'r', 't', '.', 't', 'e', 'x', 'f', 'i', 'l',
	'e', '.', 'p', 'a', 'y', 'l', 'o', 'a', 'd', 0, 0, 0, 0, 0, 0, 0,
}

// Digest returns the keyed BLAKE3 digest over the length-prefixed levels.
func Digest(levels [][]byte) []byte {
	hasher, err := blake3.NewKeyed(payloadDomainKey[:])
	if err != nil {
		panic("texfile: BLAKE3 keyed hash initialization failed: " + err.Error())
	}

	var n [8]byte
	for _, level := range levels {
		binary.LittleEndian.PutUint64(n[:], uint64(len(level)))
		_, _ = hasher.Write(n[:])
		_, _ = hasher.Write(level)
	}

	return hasher.Sum(nil)
}

// FromBuffer builds a raw or platform texture from a pixel buffer.
func FromBuffer(id uuid.UUID, buf *pixel.Buffer) *Texture {
	storage := StorageRaw
	if buf.Format.IsCompressed() {
		storage = StoragePlatform
	}

	return &Texture{
		ID:      id,
		Format:  buf.Format,
		Storage: storage,
		Width:   buf.Width,
		Height:  buf.Height,
		Palette: buf.Palette,
		Levels:  buf.Payloads(),
	}
}

// Buffer rebuilds the pixel buffer of a raw or platform texture.
func (t *Texture) Buffer() (*pixel.Buffer, error) {
	if t.Storage.IsDisk() {
		return nil, fmt.Errorf("%w: %s texture holds an encoded file", ErrInvalidStorage, t.Storage)
	}

	return pixel.FromPayloads(t.Format, t.Width, t.Height, t.Levels, t.Palette)
}

// validate checks dimensions and level sizes.
func (t *Texture) validate() error {
	if len(t.Levels) == 0 {
		return ErrEmptyLevels
	}
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrSizeOverflow, t.Width, t.Height)
	}
	if t.Storage > StoragePlatform {
		return fmt.Errorf("%w: %d", ErrInvalidStorage, uint8(t.Storage))
	}
	if !t.Format.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidFormat, uint8(t.Format))
	}

	if t.Storage.IsDisk() {
		if len(t.Levels) != 1 {
			return fmt.Errorf("%w: %s storage holds %d levels", ErrLevelSizeMismatch, t.Storage, len(t.Levels))
		}
		return nil
	}
	for i, level := range t.Levels {
		want := t.Format.LevelSize(pixel.MipDimension(t.Width, i), pixel.MipDimension(t.Height, i))
		if len(level) != want {
			return fmt.Errorf("%w: level %d: expected %d, got %d", ErrLevelSizeMismatch, i, want, len(level))
		}
	}

	return nil
}

func (t *Texture) expectedLevelSize(i int) int {
	if t.Storage.IsDisk() {
		return -1
	}

	return t.Format.LevelSize(pixel.MipDimension(t.Width, i), pixel.MipDimension(t.Height, i))
}

// Write encodes t to w storing levels with c.
func Write(w io.Writer, t *Texture, c Compression) error {
	if err := t.validate(); err != nil {
		return err
	}

	hdr, err := t.header()
	if err != nil {
		return err
	}
	hdrBytes, err := encMode.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHeaderEncode, err)
	}

	blocks := make([]*Block, len(t.Levels))
	for i, level := range t.Levels {
		if blocks[i], err = compressBlock(level, c); err != nil {
			return fmt.Errorf("level %d: %w", i, err)
		}
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Magic); err != nil {
		return fmt.Errorf("%w: magic: %v", ErrWrite, err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(hdrBytes))); err != nil {
		return fmt.Errorf("%w: header length: %v", ErrWrite, err)
	}
	if _, err := bw.Write(hdrBytes); err != nil {
		return fmt.Errorf("%w: header: %v", ErrWrite, err)
	}

	// Table and bodies go smallest level first.
	for i := len(blocks) - 1; i >= 0; i-- {
		if _, err := bw.WriteString(blocks[i].Magic); err != nil {
			return fmt.Errorf("%w: level %d magic: %v", ErrWrite, i, err)
		}
		if err := binary.Write(bw, binary.LittleEndian, blocks[i].Size); err != nil {
			return fmt.Errorf("%w: level %d size: %v", ErrWrite, i, err)
		}
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		if err := writeBlockData(bw, blocks[i]); err != nil {
			return fmt.Errorf("level %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	return nil
}

// Encode returns the file bytes of t.
func Encode(t *Texture, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, t, c); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteFile writes t to path.
func WriteFile(path string, t *Texture, c Compression) error {
	return writeFileAtomic(path, func(w io.Writer) error { return Write(w, t, c) })
}

func (t *Texture) header() (*header, error) {
	w, h, err := narrowSize[uint32](t.Width, t.Height)
	if err != nil {
		return nil, err
	}
	lw, lh, err := narrowSize[uint32](t.LogicalWidth, t.LogicalHeight)
	if err != nil {
		return nil, err
	}
	levels, err := narrow[uint32](len(t.Levels))
	if err != nil {
		return nil, err
	}

	hdr := &header{
		Version:       Version,
		ID:            t.ID[:],
		Width:         w,
		Height:        h,
		LogicalWidth:  lw,
		LogicalHeight: lh,
		Format:        uint8(t.Format),
		Storage:       uint8(t.Storage),
		Flags:         t.Flags,
		Levels:        levels,
		Digest:        Digest(t.Levels),
	}
	for _, c := range t.Palette {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		hdr.Palette = append(hdr.Palette, n.R, n.G, n.B, n.A)
	}

	return hdr, nil
}

// ReadHeader decodes only the metadata of a texture file. Levels is nil.
func ReadHeader(r io.Reader) (*Texture, error) {
	t, _, err := readHeader(r)

	return t, err
}

func readHeader(r io.Reader) (*Texture, []byte, error) {
	var pre [8]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrHeaderRead, err)
	}
	if string(pre[:4]) != Magic {
		return nil, nil, fmt.Errorf("%w: %q", ErrBadMagic, pre[:4])
	}

	n := binary.LittleEndian.Uint32(pre[4:])
	if n == 0 || n > maxHeaderSize {
		return nil, nil, fmt.Errorf("%w: header length %d", ErrHeaderRead, n)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrHeaderRead, err)
	}

	var hdr header
	if err := decMode.Unmarshal(raw, &hdr); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrHeaderDecode, err)
	}
	if hdr.Version > Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr.Version)
	}
	if hdr.Levels == 0 || hdr.Levels > 32 {
		return nil, nil, fmt.Errorf("%w: %d levels", ErrHeaderDecode, hdr.Levels)
	}

	t := &Texture{
		Format:        pixel.Format(hdr.Format),
		Storage:       Storage(hdr.Storage),
		Width:         int(hdr.Width),
		Height:        int(hdr.Height),
		LogicalWidth:  int(hdr.LogicalWidth),
		LogicalHeight: int(hdr.LogicalHeight),
		Flags:         hdr.Flags,
		Levels:        make([][]byte, hdr.Levels),
	}
	if id, err := uuid.FromBytes(hdr.ID); err == nil {
		t.ID = id
	}
	for i := 0; i+4 <= len(hdr.Palette); i += 4 {
		p := hdr.Palette[i : i+4]
		t.Palette = append(t.Palette, color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]})
	}

	return t, hdr.Digest, nil
}

// Read decodes a texture file and verifies its payload digest.
func Read(r io.Reader) (*Texture, error) {
	t, digest, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	count := len(t.Levels)
	table, err := readBlockTable(r, count)
	if err != nil {
		return nil, err
	}

	// Table order is smallest level first.
	for i, h := range table {
		level := count - 1 - i
		block, err := readBlockBody(r, h)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", level, err)
		}
		data, err := decompressBlock(block, t.expectedLevelSize(level))
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", level, err)
		}
		t.Levels[level] = data
	}

	if !bytes.Equal(Digest(t.Levels), digest) {
		return nil, ErrDigestMismatch
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Decode parses texture file bytes.
func Decode(data []byte) (*Texture, error) {
	return Read(bytes.NewReader(data))
}

// ReadFile reads and verifies the texture file at path.
func ReadFile(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	defer func() { _ = f.Close() }()

	return Read(bufio.NewReader(f))
}
