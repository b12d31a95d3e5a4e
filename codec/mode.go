package codec

import (
	"fmt"
	"strings"
)

// Mode is a platform compression id. The numeric values are stable and take
// part in export cache keys.
type Mode uint8

const (
	// ModeNone keeps pixels uncompressed.
	ModeNone Mode = iota
	// ModeIndexed quantizes to an 8-bit palette.
	ModeIndexed
	// ModeBlockCompressed encodes BC1/BC3.
	ModeBlockCompressed
	// ModeMobile4x4 encodes PVRTC1.
	ModeMobile4x4
	// ModeMobile4x4Square encodes PVRTC1 on square textures.
	ModeMobile4x4Square
	// ModeETC1 encodes ETC1; alpha is rejected.
	ModeETC1
	// ModeETC2 encodes ETC2 RGB or RGBA8.
	ModeETC2
)

var modeNames = [...]string{
	ModeNone:            "none",
	ModeIndexed:         "indexed",
	ModeBlockCompressed: "bc",
	ModeMobile4x4:       "pvrtc",
	ModeMobile4x4Square: "pvrtc_square",
	ModeETC1:            "etc1",
	ModeETC2:            "etc2",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}

	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Valid reports whether m names a known mode.
func (m Mode) Valid() bool {
	return int(m) < len(modeNames)
}

// ParseMode parses the textual form returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(m))
	}

	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v

	return nil
}
