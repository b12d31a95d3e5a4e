// Package codec implements the platform texture encoders and the policy that
// prepares a buffer for them.
//
// Every Codec publishes its Requirements. Compress satisfies them (power of
// two, square, mip chain) before calling Encode; Encode itself only checks
// them and fails with ErrPrecondition. Encoders never modify their input.
package codec

import (
	"fmt"

	"github.com/woozymasta/teximport/pixel"
)

// Requirements are the buffer preconditions of a codec.
type Requirements struct {
	PowerOfTwo bool
	Square     bool
	Mipmaps    bool
}

// Hints tune an encode call.
type Hints struct {
	// PreferSmaller selects the smaller output tier where a codec has one.
	PreferSmaller bool
	// AlphaBit allows 1-bit alpha cutout instead of a full alpha channel.
	AlphaBit bool
	// Quality is a 0..1 hint; zero selects the codec default.
	Quality float32
}

// Codec encodes uncompressed buffers into one format family.
type Codec interface {
	Name() string
	Requirements() Requirements
	Encode(buf *pixel.Buffer, hints Hints) (*pixel.Buffer, error)
}

// Check verifies buf against r.
func (r Requirements) Check(buf *pixel.Buffer) error {
	if !buf.Format.IsUncompressed() {
		return fmt.Errorf("%w: %s input", ErrPrecondition, buf.Format)
	}
	if (r.PowerOfTwo || r.Square) && !buf.IsPowerOfTwo() {
		return fmt.Errorf("%w: %dx%d is not a power of two", ErrPrecondition, buf.Width, buf.Height)
	}
	if r.Square && !buf.IsSquare() {
		return fmt.Errorf("%w: %dx%d is not square", ErrPrecondition, buf.Width, buf.Height)
	}
	if r.Mipmaps && !buf.HasFullMipChain() {
		return fmt.Errorf("%w: %d of %d mip levels", ErrPrecondition, buf.MipCount(), pixel.MipCount(buf.Width, buf.Height))
	}

	return nil
}

// Prepare resizes and builds mipmaps so that buf meets c's requirements.
// A buffer that already does is returned as is.
func Prepare(c Codec, buf *pixel.Buffer) (*pixel.Buffer, error) {
	req := c.Requirements()

	var err error
	if req.PowerOfTwo || req.Square {
		if buf, err = buf.ResizeToPowerOfTwo(req.Square); err != nil {
			return nil, err
		}
	}
	if req.Mipmaps && !buf.HasFullMipChain() {
		if buf.HasMipmaps() {
			buf = buf.DropMipmaps()
		}
		if buf, err = buf.GenerateMipmaps(); err != nil {
			return nil, err
		}
	}

	return buf, nil
}

// Compress prepares buf for c and encodes it.
func Compress(c Codec, buf *pixel.Buffer, hints Hints) (*pixel.Buffer, error) {
	prepared, err := Prepare(c, buf)
	if err != nil {
		return nil, err
	}

	return c.Encode(prepared, hints)
}

// Options configure the default codec set.
type Options struct {
	// BlockQuality is the bcn quality level (1..10, 0 = balanced).
	BlockQuality int
	// Workers bounds parallel block encoding (0 = GOMAXPROCS).
	Workers int
}

// Set maps compression modes to codecs.
type Set map[Mode]Codec

// DefaultSet returns one codec per known mode.
func DefaultSet(opts Options) Set {
	return Set{
		ModeNone:            None{},
		ModeIndexed:         Indexed{},
		ModeBlockCompressed: Block{QualityLevel: opts.BlockQuality, Workers: opts.Workers},
		ModeMobile4x4:       PVRTC{},
		ModeMobile4x4Square: PVRTC{},
		ModeETC1:            ETC1{},
		ModeETC2:            ETC2{},
	}
}

// Lookup returns the codec registered for m.
func (s Set) Lookup(m Mode) (Codec, error) {
	c, ok := s[m]
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, m)
	}

	return c, nil
}

// ForMode returns the default codec for m.
func ForMode(m Mode) (Codec, error) {
	return DefaultSet(Options{}).Lookup(m)
}
