package jws

import (
	"fmt"

	"github.com/cybergodev/jws/internal/core"
)

// Format selects how header (and Object payload) JSON text is written.
type Format int

const (
	// FormatCompact writes JSON with no insignificant whitespace. Use it for
	// anything that has to interoperate.
	FormatCompact Format = iota

	// FormatRFCExample separates object members and array elements with
	// ",\r\n ". It exists to reproduce the RFC 7515 Appendix A.1 example
	// byte for byte.
	FormatRFCExample
)

var formatNames = map[Format]string{
	FormatCompact:    "compact",
	FormatRFCExample: "rfc7515-example",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	name, ok := formatNames[f]
	if !ok {
		return nil, fmt.Errorf("%w: unknown format %d", ErrInvalidConfig, int(f))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	for format, name := range formatNames {
		if name == string(text) {
			*f = format
			return nil
		}
	}
	return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, text)
}

func (f Format) core() core.Format {
	if f == FormatRFCExample {
		return core.FormatRFCExample
	}
	return core.FormatCompact
}

// EncodeSegment returns the unpadded base64url encoding of data.
func EncodeSegment(data []byte) string {
	return string(core.EncodeSegment(data))
}

// DecodeSegment decodes an unpadded base64url segment. It fails with
// ErrDecode on padding, characters outside the URL-safe alphabet, or
// non-canonical encodings. The empty segment decodes to an empty slice.
func DecodeSegment(segment string) ([]byte, error) {
	data, err := core.DecodeSegment([]byte(segment))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

// EncodeJSON writes value as JSON text in the given format. Header and
// Object values keep their member order; maps are written with sorted keys.
func EncodeJSON(value any, format Format) ([]byte, error) {
	if h, ok := value.(Header); ok {
		return h.Encode(format)
	}
	return core.Marshal(value, format.core())
}

// SigningInput returns the bytes a signature covers:
// encodedHeader || '.' || encodedPayload.
func SigningInput(encodedHeader, encodedPayload string) []byte {
	return core.SigningInput([]byte(encodedHeader), []byte(encodedPayload))
}
