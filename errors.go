package teximport

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind uint8

const (
	KindSourceLoad Kind = iota + 1
	KindInvalidOptions
	KindEncode
	KindPersist
	KindCacheIO
)

var (
	// ErrSourceLoad indicates a source image could not be read or decoded.
	ErrSourceLoad = errors.New("source load failed")
	// ErrInvalidOptions indicates the import options were rejected before any I/O.
	ErrInvalidOptions = errors.New("invalid import options")
	// ErrEncode indicates a codec failed or refused its input.
	ErrEncode = errors.New("encode failed")
	// ErrPersist indicates an artifact could not be written.
	ErrPersist = errors.New("persist failed")
	// ErrCacheIO indicates the export cache could not deliver an artifact.
	ErrCacheIO = errors.New("export cache I/O failed")
	// ErrAtlasReleased indicates an atlas entry outlived its atlas.
	ErrAtlasReleased = errors.New("atlas released")
	// ErrUnknownArtifact indicates a registry lookup for an id never registered.
	ErrUnknownArtifact = errors.New("unknown artifact")
)

func (k Kind) sentinel() error {
	switch k {
	case KindSourceLoad:
		return ErrSourceLoad
	case KindInvalidOptions:
		return ErrInvalidOptions
	case KindEncode:
		return ErrEncode
	case KindPersist:
		return ErrPersist
	case KindCacheIO:
		return ErrCacheIO
	default:
		return nil
	}
}

func (k Kind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is returned by Pipeline and Exporter operations.
// errors.Is matches both the kind sentinel and the cause.
type Error struct {
	Kind Kind
	// Path is the source or target the failure relates to, when known.
	Path string
	Err  error
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}

	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap returns the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if s := e.Kind.sentinel(); s != nil && !errors.Is(e.Err, s) {
		return []error{s, e.Err}
	}

	return []error{e.Err}
}
