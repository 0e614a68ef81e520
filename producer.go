package jws

import (
	"context"
	"fmt"

	"github.com/cybergodev/jws/internal/core"
)

// Option tunes a single Produce or Validate call.
type Option func(*options)

type options struct {
	format         Format
	maxTokenLength int
}

// WithFormat selects the header JSON format used by Produce. The default
// is FormatCompact.
func WithFormat(format Format) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithMaxTokenLength makes Validate reject tokens longer than n bytes with
// ErrMalformedToken before any decoding. Zero or less means no limit.
func WithMaxTokenLength(n int) Option {
	return func(o *options) {
		o.maxTokenLength = n
	}
}

func collectOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Produce signs payload under header and returns the compact serialization.
// See ProduceWithContext.
func Produce(payload []byte, header Header, validate JOSEValidator, opts ...Option) (string, error) {
	return ProduceWithContext(context.Background(), payload, header, validate, opts...)
}

// ProduceWithContext validates header with validate, encodes header and
// payload, signs the signing input with the Algorithm the validator
// returned, and joins the three segments. Signing failures match
// ErrAlgorithm together with their cause.
func ProduceWithContext(ctx context.Context, payload []byte, header Header, validate JOSEValidator, opts ...Option) (string, error) {
	if validate == nil {
		return "", fmt.Errorf("%w: nil JOSE validator", ErrInvalidConfig)
	}
	o := collectOptions(opts)

	alg, err := validate(header)
	if err != nil {
		return "", err
	}

	headerJSON, err := header.Encode(o.format)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHeaderJSON, err)
	}

	signingInput := core.SigningInput(core.EncodeSegment(headerJSON), core.EncodeSegment(payload))

	signature, err := alg.Sign(ctx, signingInput)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAlgorithm, err)
	}

	return string(core.Join(signingInput, core.EncodeSegment(signature))), nil
}
