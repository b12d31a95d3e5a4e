package codec

import "errors"

var (
	// ErrPrecondition is returned when a buffer does not meet a codec's requirements.
	ErrPrecondition = errors.New("codec precondition not met")
	// ErrUnsupportedAlpha is returned by codecs that cannot represent an alpha channel.
	ErrUnsupportedAlpha = errors.New("alpha channel not supported by codec")
	// ErrUnknownMode is returned for a compression mode with no codec.
	ErrUnknownMode = errors.New("unknown compression mode")
	// ErrEncode wraps failures of the underlying encoder.
	ErrEncode = errors.New("encode failed")
)
