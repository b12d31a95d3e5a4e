package codec

import (
	"fmt"

	"github.com/woozymasta/teximport/pixel"
)

// None passes buffers through unchanged.
type None struct{}

// Name implements Codec.
func (None) Name() string { return "none" }

// Requirements implements Codec.
func (None) Requirements() Requirements { return Requirements{} }

// Encode implements Codec.
func (None) Encode(buf *pixel.Buffer, _ Hints) (*pixel.Buffer, error) {
	return buf, nil
}

// Indexed quantizes to an 8-bit palette.
type Indexed struct{}

// Name implements Codec.
func (Indexed) Name() string { return "indexed" }

// Requirements implements Codec.
func (Indexed) Requirements() Requirements { return Requirements{} }

// Encode implements Codec.
func (Indexed) Encode(buf *pixel.Buffer, _ Hints) (*pixel.Buffer, error) {
	out, err := buf.Quantize()
	if err != nil {
		return nil, fmt.Errorf("%w: indexed: %v", ErrPrecondition, err)
	}

	return out, nil
}
