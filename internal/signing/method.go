// Package signing adapts concrete signature primitives to a single
// sign/verify method shape keyed by JWS algorithm name.
package signing

import (
	"errors"
	"fmt"
)

var (
	// ErrVerification means the signature does not match the input.
	ErrVerification = errors.New("signature verification failed")
	// ErrCannotSign is returned by methods built from public key material.
	ErrCannotSign = errors.New("method holds no signing key")
	// ErrInvalidKey is returned for key material unsuitable for the algorithm.
	ErrInvalidKey = errors.New("invalid key for algorithm")
	// ErrUnknownAlgorithm is returned for algorithm names with no primitive.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// Method signs and verifies signing inputs for one algorithm and key.
type Method interface {
	Alg() string
	Sign(signingInput []byte) ([]byte, error)
	Verify(signingInput, signature []byte) error
}

// noneMethod implements the unsecured "none" algorithm: an empty signature.
type noneMethod struct{}

// None returns the unsecured method. Callers must opt into it explicitly.
func None() Method {
	return noneMethod{}
}

func (noneMethod) Alg() string { return "none" }

func (noneMethod) Sign([]byte) ([]byte, error) {
	return []byte{}, nil
}

func (noneMethod) Verify(_, signature []byte) error {
	if len(signature) != 0 {
		return fmt.Errorf("%w: unsecured token carries a signature", ErrVerification)
	}
	return nil
}
