package jws

import (
	"context"
	"errors"
	"fmt"

	"github.com/cybergodev/jws/internal/core"
)

// Token is a verified compact JWS.
type Token struct {
	Header    Header
	Payload   []byte
	Signature []byte
	Raw       string
}

// Validate verifies token and returns its payload. See Verify.
func Validate(token string, validate JOSEValidator, opts ...Option) ([]byte, error) {
	return ValidateWithContext(context.Background(), token, validate, opts...)
}

// ValidateWithContext verifies token and returns its payload. See Verify.
func ValidateWithContext(ctx context.Context, token string, validate JOSEValidator, opts ...Option) ([]byte, error) {
	t, err := Verify(ctx, token, validate, opts...)
	if err != nil {
		return nil, err
	}
	return t.Payload, nil
}

// Verify checks a compact token:
//
//  1. exactly three segments (ErrMalformedToken);
//  2. the header segment decodes (ErrDecode) to a JSON object
//     (ErrInvalidHeaderJSON);
//  3. validate accepts the header; its error is returned unchanged;
//  4. the signature segment decodes and the Algorithm verifies it against
//     the signing input built from the received segments
//     (ErrSignatureMismatch, or ErrAlgorithm for any other failure);
//  5. the payload segment decodes (ErrDecode).
func Verify(ctx context.Context, token string, validate JOSEValidator, opts ...Option) (*Token, error) {
	if validate == nil {
		return nil, fmt.Errorf("%w: nil JOSE validator", ErrInvalidConfig)
	}
	o := collectOptions(opts)

	encHeader, encPayload, encSignature, err := split(token, o.maxTokenLength)
	if err != nil {
		return nil, err
	}

	header, err := decodeHeader(encHeader)
	if err != nil {
		return nil, err
	}

	alg, err := validate(header)
	if err != nil {
		return nil, err
	}

	signature, err := DecodeSegment(encSignature)
	if err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}

	signingInput := core.SigningInput([]byte(encHeader), []byte(encPayload))
	if err := alg.Verify(ctx, signingInput, signature); err != nil {
		if errors.Is(err, ErrSignatureMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrAlgorithm, err)
	}

	payload, err := DecodeSegment(encPayload)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}

	return &Token{
		Header:    header,
		Payload:   payload,
		Signature: signature,
		Raw:       token,
	}, nil
}

// ParseUnverified decodes token without checking its signature or header
// policy. Use it only to inspect parameters such as "kid" before choosing
// a resolver; nothing it returns is authenticated.
func ParseUnverified(token string) (Header, []byte, error) {
	encHeader, encPayload, _, err := split(token, 0)
	if err != nil {
		return Header{}, nil, err
	}

	header, err := decodeHeader(encHeader)
	if err != nil {
		return Header{}, nil, err
	}

	payload, err := DecodeSegment(encPayload)
	if err != nil {
		return Header{}, nil, fmt.Errorf("payload: %w", err)
	}
	return header, payload, nil
}

func split(token string, maxLength int) (string, string, string, error) {
	if maxLength > 0 && len(token) > maxLength {
		return "", "", "", fmt.Errorf("%w: token length %d exceeds limit %d", ErrMalformedToken, len(token), maxLength)
	}
	h, p, s, ok := core.Split3(token)
	if !ok {
		return "", "", "", ErrMalformedToken
	}
	return h, p, s, nil
}

func decodeHeader(segment string) (Header, error) {
	headerJSON, err := DecodeSegment(segment)
	if err != nil {
		return Header{}, fmt.Errorf("header: %w", err)
	}
	return ParseHeader(headerJSON)
}
