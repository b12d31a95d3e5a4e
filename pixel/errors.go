package pixel

import "errors"

var (
	// ErrInvalidDimensions indicates a zero or negative width or height.
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrInvalidFormat indicates an unknown format tag.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrCompressed indicates the operation needs an uncompressed RGB8 or RGBA8 buffer.
	ErrCompressed = errors.New("operation requires uncompressed buffer")
	// ErrCompressedTarget indicates a conversion target that only a codec can produce.
	ErrCompressedTarget = errors.New("conversion target requires a codec")
	// ErrBlitBounds indicates a blit region outside the source or destination.
	ErrBlitBounds = errors.New("blit region out of bounds")
	// ErrPayloadSize indicates a level payload of unexpected length.
	ErrPayloadSize = errors.New("level payload size mismatch")
	// ErrEmptyLevels indicates a buffer without any level.
	ErrEmptyLevels = errors.New("empty levels")
)
