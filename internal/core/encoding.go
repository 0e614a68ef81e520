package core

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidSegment is returned when a segment is not canonical unpadded base64url.
var ErrInvalidSegment = errors.New("invalid base64url segment")

// segmentEncoding rejects padding and non-zero trailing bits so that every
// byte sequence has exactly one accepted textual form.
var segmentEncoding = base64.RawURLEncoding.Strict()

// EncodeSegment encodes data as base64url without padding.
func EncodeSegment(data []byte) []byte {
	buf := make([]byte, segmentEncoding.EncodedLen(len(data)))
	segmentEncoding.Encode(buf, data)
	return buf
}

// DecodeSegment decodes an unpadded base64url segment. The empty segment
// decodes to an empty byte slice.
func DecodeSegment(segment []byte) ([]byte, error) {
	if len(segment) == 0 {
		return []byte{}, nil
	}

	if i := invalidBase64URLIndex(segment); i >= 0 {
		return nil, fmt.Errorf("%w: illegal character %q at offset %d", ErrInvalidSegment, segment[i], i)
	}

	if len(segment)%4 == 1 {
		return nil, fmt.Errorf("%w: impossible length %d", ErrInvalidSegment, len(segment))
	}

	buf := make([]byte, segmentEncoding.DecodedLen(len(segment)))
	n, err := segmentEncoding.Decode(buf, segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSegment, err)
	}
	return buf[:n], nil
}

// invalidBase64URLIndex returns the offset of the first byte outside the
// URL-safe alphabet, or -1.
func invalidBase64URLIndex(s []byte) int {
	for i, char := range s {
		if !((char >= 'A' && char <= 'Z') ||
			(char >= 'a' && char <= 'z') ||
			(char >= '0' && char <= '9') ||
			char == '-' || char == '_') {
			return i
		}
	}
	return -1
}
