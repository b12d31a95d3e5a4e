package texfile

import "errors"

var (
	// ErrSizeOverflow indicates a size or dimension exceeds supported limits.
	ErrSizeOverflow = errors.New("size overflow")
	// ErrInvalidFormat indicates an unsupported pixel format.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrInvalidStorage indicates an unknown storage kind.
	ErrInvalidStorage = errors.New("invalid storage kind")
	// ErrInvalidCompression indicates an unknown block compression.
	ErrInvalidCompression = errors.New("invalid block compression")
	// ErrEmptyLevels indicates missing level data.
	ErrEmptyLevels = errors.New("empty levels")
	// ErrLevelSizeMismatch indicates a level payload size mismatch.
	ErrLevelSizeMismatch = errors.New("level size mismatch")
	// ErrInputTooLarge indicates input data is too large to encode.
	ErrInputTooLarge = errors.New("input data too large")
	// ErrChunkTooLarge indicates a compressed chunk exceeds allowed size.
	ErrChunkTooLarge = errors.New("compressed chunk too large")
	// ErrLZ4Compress indicates LZ4 compression failed.
	ErrLZ4Compress = errors.New("LZ4 compression failed")
	// ErrLZ4Decode indicates LZ4 decode failed.
	ErrLZ4Decode = errors.New("LZ4 decode failed")
	// ErrZstdDecode indicates zstd decode failed.
	ErrZstdDecode = errors.New("zstd decode failed")
	// ErrCopySizeMismatch indicates COPY block data size mismatch.
	ErrCopySizeMismatch = errors.New("COPY block size mismatch")
	// ErrUnknownBlockMagic indicates an unknown block magic.
	ErrUnknownBlockMagic = errors.New("unknown block magic")
	// ErrBlockTruncated indicates a block body shorter than its prefix.
	ErrBlockTruncated = errors.New("block truncated")
	// ErrChunkStreamTruncated indicates LZ4 chunk stream is truncated.
	ErrChunkStreamTruncated = errors.New("LZ4 chunk-stream truncated")
	// ErrUnknownLZ4Flags indicates unknown LZ4 chunk flags.
	ErrUnknownLZ4Flags = errors.New("unknown LZ4 flags")
	// ErrInvalidChunkSize indicates invalid LZ4 chunk size.
	ErrInvalidChunkSize = errors.New("invalid compressed chunk size")
	// ErrDecodeOverrun indicates decoded data overruns target buffer.
	ErrDecodeOverrun = errors.New("decoded data overruns target buffer")
	// ErrDecodedSizeMismatch indicates decoded size mismatch.
	ErrDecodedSizeMismatch = errors.New("decoded size mismatch")
	// ErrBlockLengthMismatch indicates leftover bytes after decode.
	ErrBlockLengthMismatch = errors.New("block length mismatch")
	// ErrBlockTableRead indicates block table read failed.
	ErrBlockTableRead = errors.New("reading block table failed")
	// ErrBlockTableInvalidSize indicates invalid size in block table.
	ErrBlockTableInvalidSize = errors.New("invalid block size in table")
	// ErrBlockBodyRead indicates block body read failed.
	ErrBlockBodyRead = errors.New("reading block body failed")
	// ErrBadMagic indicates the file does not start with the expected magic.
	ErrBadMagic = errors.New("bad magic")
	// ErrHeaderRead indicates header read failed.
	ErrHeaderRead = errors.New("reading header failed")
	// ErrHeaderDecode indicates the CBOR header could not be decoded.
	ErrHeaderDecode = errors.New("decoding header failed")
	// ErrHeaderEncode indicates the CBOR header could not be encoded.
	ErrHeaderEncode = errors.New("encoding header failed")
	// ErrUnsupportedVersion indicates a newer file version.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrDigestMismatch indicates stored and computed payload digests differ.
	ErrDigestMismatch = errors.New("payload digest mismatch")
	// ErrOpenFile indicates file open failed.
	ErrOpenFile = errors.New("open file failed")
	// ErrCreateFile indicates file creation failed.
	ErrCreateFile = errors.New("create file failed")
	// ErrWrite indicates a write to the output failed.
	ErrWrite = errors.New("write failed")
	// ErrDecodeImage indicates a level could not be decoded into pixels.
	ErrDecodeImage = errors.New("decode image failed")
)
