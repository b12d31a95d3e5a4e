package texfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// BlockMagicCOPY marks an uncompressed block.
	BlockMagicCOPY = "COPY"
	// BlockMagicLZ4 marks an LZ4 chunk-stream block.
	BlockMagicLZ4 = "LZ4 "
	// BlockMagicZSTD marks a zstd frame block.
	BlockMagicZSTD = "ZSTD"

	// ChunkSize is the chunk size of LZ4 streams.
	ChunkSize = 64 * 1024

	// Payloads below this size are always stored as COPY.
	minCompressSize = 1024
	// Blocks that do not shrink below this ratio are stored as COPY.
	maxCompressRatio = 0.85
	lastChunkFlag    = 0x80
	dictCap          = 64 * 1024
)

// Compression selects how level blocks are stored.
type Compression uint8

const (
	// CompressionNone stores COPY blocks.
	CompressionNone Compression = iota
	// CompressionLZ4 stores LZ4 chunk streams.
	CompressionLZ4
	// CompressionZstd stores zstd frames.
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses the textual form returned by Compression.String.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "copy", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCompression, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	if c > CompressionZstd {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, uint8(c))
	}

	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	v, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = v

	return nil
}

// Block represents one level body.
type Block struct {
	Magic string
	// Data is the body without the uncompressed size prefix.
	Data []byte
	// Size is the body length as recorded in the block table.
	Size             int32
	UncompressedSize int32
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("texfile: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("texfile: zstd decoder initialization failed: " + err.Error())
	}
}

func copyBlock(data []byte) (*Block, error) {
	size, err := narrow[int32](len(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(data))
	}

	return &Block{Magic: BlockMagicCOPY, Size: size, UncompressedSize: size, Data: data}, nil
}

// compressBlock packs data with c, falling back to COPY when it does not pay off.
func compressBlock(data []byte, c Compression) (*Block, error) {
	if len(data) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(data))
	}
	if len(data) < minCompressSize {
		return copyBlock(data)
	}

	var (
		magic   string
		payload []byte
		err     error
	)
	switch c {
	case CompressionNone:
		return copyBlock(data)
	case CompressionLZ4:
		magic = BlockMagicLZ4
		payload, err = lz4ChunkStream(data)
	case CompressionZstd:
		magic = BlockMagicZSTD
		payload = zstdEncoder.EncodeAll(data, nil)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, uint8(c))
	}
	if err != nil {
		return nil, err
	}
	if payload == nil || float64(4+len(payload)) > float64(len(data))*maxCompressRatio {
		return copyBlock(data)
	}

	size, err := narrow[int32](4 + len(payload))
	if err != nil {
		return nil, err
	}

	return &Block{Magic: magic, Size: size, UncompressedSize: int32(len(data)), Data: payload}, nil
}

// lz4ChunkStream compresses data in independent 64KiB chunks, each prefixed by
// a 3-byte length and a flag byte marking the last chunk. A nil result means a
// chunk did not compress well enough.
func lz4ChunkStream(data []byte) ([]byte, error) {
	var stream bytes.Buffer
	buf := make([]byte, lz4.CompressBlockBound(ChunkSize))

	for start := 0; start < len(data); start += ChunkSize {
		end := min(start+ChunkSize, len(data))
		chunk := data[start:end]

		n, err := lz4.CompressBlockHC(chunk, buf, 0, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLZ4Compress, err)
		}
		if n == 0 || float64(n) > float64(len(chunk))*maxCompressRatio {
			return nil, nil
		}
		if n > 0x7FFFFF {
			return nil, fmt.Errorf("%w: %d", ErrChunkTooLarge, n)
		}

		flag := byte(0)
		if end == len(data) {
			flag = lastChunkFlag
		}
		stream.Write([]byte{byte(n), byte(n >> 8), byte(n >> 16), flag})
		stream.Write(buf[:n])
	}

	return stream.Bytes(), nil
}

// writeBlockData writes the block body (no table entry).
func writeBlockData(w io.Writer, block *Block) error {
	if block.Magic != BlockMagicCOPY {
		if err := binary.Write(w, binary.LittleEndian, block.UncompressedSize); err != nil {
			return fmt.Errorf("%w: uncompressed size: %v", ErrWrite, err)
		}
	}
	if _, err := w.Write(block.Data); err != nil {
		return fmt.Errorf("%w: block payload: %v", ErrWrite, err)
	}

	return nil
}

// decompressBlock inflates a block. expected < 0 accepts any size.
func decompressBlock(block *Block, expected int) ([]byte, error) {
	switch block.Magic {
	case BlockMagicCOPY:
		if expected >= 0 && len(block.Data) != expected {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrCopySizeMismatch, expected, len(block.Data))
		}
		return block.Data, nil
	case BlockMagicLZ4, BlockMagicZSTD:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockMagic, block.Magic)
	}

	target := int(block.UncompressedSize)
	if target < 0 || (expected >= 0 && target != expected) {
		return nil, fmt.Errorf("%w: expected %d, header says %d", ErrDecodedSizeMismatch, expected, target)
	}

	if block.Magic == BlockMagicZSTD {
		out, err := zstdDecoder.DecodeAll(block.Data, make([]byte, 0, target))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrZstdDecode, err)
		}
		if len(out) != target {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrDecodedSizeMismatch, target, len(out))
		}
		return out, nil
	}

	return decodeChunkStream(block.Data, target)
}

// decodeChunkStream inflates an LZ4 chunk stream. Each chunk may reference up
// to 64KB of previously decoded output.
func decodeChunkStream(data []byte, targetSize int) ([]byte, error) {
	target := make([]byte, targetSize)
	r := bytes.NewReader(data)
	outIdx := 0

	for {
		if r.Len() < 4 {
			return nil, fmt.Errorf("%w: need 4 bytes header, have %d", ErrChunkStreamTruncated, r.Len())
		}

		var hdr [4]byte
		_, _ = io.ReadFull(r, hdr[:])
		cSize := int(hdr[0]) | int(hdr[1])<<8 | int(hdr[2])<<16
		flags := hdr[3]
		if flags&^lastChunkFlag != 0 {
			return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownLZ4Flags, flags)
		}
		if cSize <= 0 || cSize > r.Len() {
			return nil, fmt.Errorf("%w: %d (remaining %d)", ErrInvalidChunkSize, cSize, r.Len())
		}

		compressed := make([]byte, cSize)
		_, _ = io.ReadFull(r, compressed)

		remaining := targetSize - outIdx
		if remaining <= 0 {
			return nil, ErrDecodeOverrun
		}
		dst := target[outIdx : outIdx+min(ChunkSize, remaining)]
		dict := target[max(0, outIdx-dictCap):outIdx]

		n, err := lz4.UncompressBlockWithDict(compressed, dst, dict)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLZ4Decode, err)
		}
		outIdx += n

		if flags&lastChunkFlag != 0 {
			break
		}
	}

	if outIdx != targetSize {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDecodedSizeMismatch, targetSize, outIdx)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes left after decode", ErrBlockLengthMismatch, r.Len())
	}

	return target, nil
}

type blockHeader struct {
	Magic string
	Size  int32
}

func readBlockTable(r io.Reader, count int) ([]blockHeader, error) {
	hdrs := make([]blockHeader, 0, count)
	for i := 0; i < count; i++ {
		var raw [8]byte
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return nil, fmt.Errorf("%w: %d: %v", ErrBlockTableRead, i, err)
		}

		magic := string(raw[:4])
		size := int32(binary.LittleEndian.Uint32(raw[4:]))
		switch magic {
		case BlockMagicCOPY, BlockMagicLZ4, BlockMagicZSTD:
		default:
			return nil, fmt.Errorf("%w: %d: %q", ErrUnknownBlockMagic, i, magic)
		}
		if size < 0 || (magic != BlockMagicCOPY && size < 4) {
			return nil, fmt.Errorf("%w: %d: %d", ErrBlockTableInvalidSize, i, size)
		}

		hdrs = append(hdrs, blockHeader{Magic: magic, Size: size})
	}

	return hdrs, nil
}

func readBlockBody(r io.Reader, h blockHeader) (*Block, error) {
	data := make([]byte, h.Size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBlockBodyRead, h.Magic, err)
	}

	if h.Magic == BlockMagicCOPY {
		return &Block{Magic: h.Magic, Size: h.Size, UncompressedSize: h.Size, Data: data}, nil
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %s body of %d bytes", ErrBlockTruncated, h.Magic, len(data))
	}

	return &Block{
		Magic:            h.Magic,
		Size:             h.Size,
		UncompressedSize: int32(binary.LittleEndian.Uint32(data[:4])),
		Data:             data[4:],
	}, nil
}
