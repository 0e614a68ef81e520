package jws

import (
	"errors"
	"fmt"
)

// AlgorithmResolver chooses the Algorithm for a header, normally from its
// "alg" parameter.
type AlgorithmResolver func(Header) (Algorithm, error)

// CriticalHandler decides whether every parameter listed in "crit" is
// understood and acceptable. It receives the full header.
type CriticalHandler func(Header) error

// HeaderHandler applies an application policy to a header.
type HeaderHandler func(Header) error

// JOSEValidator checks a header and returns the Algorithm that signs or
// verifies under it.
type JOSEValidator func(Header) (Algorithm, error)

// ValidateHeader applies the JOSE header rules in order:
//
//  1. "alg" must be present (ErrMissingAlgorithm).
//  2. When "crit" is present, crit is called once with the full header. A
//     nil crit rejects the header. Failures match both
//     ErrCriticalParameterRejected and the handler's own error.
//  3. Each custom handler runs in order; its error is returned unchanged.
//  4. resolve picks the Algorithm; its error is returned unchanged.
func ValidateHeader(h Header, resolve AlgorithmResolver, crit CriticalHandler, custom ...HeaderHandler) (Algorithm, error) {
	if !h.Has(HeaderAlgorithm) {
		return nil, ErrMissingAlgorithm
	}

	if h.Has(HeaderCritical) {
		if crit == nil {
			return nil, fmt.Errorf("%w: no handler for critical parameters", ErrCriticalParameterRejected)
		}
		if err := crit(h); err != nil {
			if errors.Is(err, ErrCriticalParameterRejected) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrCriticalParameterRejected, err)
		}
	}

	for _, handler := range custom {
		if handler == nil {
			continue
		}
		if err := handler(h); err != nil {
			return nil, err
		}
	}

	if resolve == nil {
		return nil, fmt.Errorf("%w: nil algorithm resolver", ErrInvalidConfig)
	}
	alg, err := resolve(h)
	if err != nil {
		return nil, err
	}
	if alg == nil {
		name, _ := h.Algorithm()
		return nil, fmt.Errorf("%w: no binding for %q", ErrUnsupportedAlgorithm, name)
	}
	return alg, nil
}

// NewJOSEValidator binds the resolver and handlers into a JOSEValidator.
// Both resolve and crit are required; use RequireUnderstood() to reject
// every critical parameter.
func NewJOSEValidator(resolve AlgorithmResolver, crit CriticalHandler, custom ...HeaderHandler) (JOSEValidator, error) {
	if resolve == nil {
		return nil, fmt.Errorf("%w: algorithm resolver is required", ErrInvalidConfig)
	}
	if crit == nil {
		return nil, fmt.Errorf("%w: critical parameter handler is required", ErrInvalidConfig)
	}

	handlers := append([]HeaderHandler(nil), custom...)
	return func(h Header) (Algorithm, error) {
		return ValidateHeader(h, resolve, crit, handlers...)
	}, nil
}

// RequireUnderstood returns a CriticalHandler implementing RFC 7515
// §4.1.11: "crit" must be a non-empty array of unique strings naming
// parameters that are present in the header, are not defined by RFC 7515,
// and are all in understood. With no names it rejects every "crit".
func RequireUnderstood(understood ...string) CriticalHandler {
	known := make(map[string]struct{}, len(understood))
	for _, name := range understood {
		known[name] = struct{}{}
	}

	return func(h Header) error {
		names, err := h.Critical()
		if err != nil {
			return err
		}
		for _, name := range names {
			if _, ok := registeredHeaders[name]; ok {
				return &ValidationError{Field: HeaderCritical, Message: fmt.Sprintf("%q is defined by RFC 7515 and cannot be critical", name)}
			}
			if !h.Has(name) {
				return &ValidationError{Field: HeaderCritical, Message: fmt.Sprintf("%q is listed but not present", name)}
			}
			if _, ok := known[name]; !ok {
				return &ValidationError{Field: HeaderCritical, Message: fmt.Sprintf("%q is not understood", name)}
			}
		}
		return nil
	}
}

// AllowAlgorithms returns a HeaderHandler that accepts only the named
// algorithms. Rejections match ErrAlgorithmNotAllowed.
func AllowAlgorithms(names ...string) HeaderHandler {
	allowed := make(map[string]struct{}, len(names))
	for _, name := range names {
		allowed[name] = struct{}{}
	}

	return func(h Header) error {
		name, _ := h.Algorithm()
		if _, ok := allowed[name]; !ok {
			return fmt.Errorf("%w: %q", ErrAlgorithmNotAllowed, name)
		}
		return nil
	}
}

// ChainHandlers runs handlers in order and stops at the first error.
func ChainHandlers(handlers ...HeaderHandler) HeaderHandler {
	chain := append([]HeaderHandler(nil), handlers...)
	return func(h Header) error {
		for _, handler := range chain {
			if handler == nil {
				continue
			}
			if err := handler(h); err != nil {
				return err
			}
		}
		return nil
	}
}
