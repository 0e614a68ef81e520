package jws

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/cybergodev/jws/internal/security"
	"github.com/cybergodev/jws/internal/signing"
	"github.com/nats-io/nkeys"
)

// Algorithm names from RFC 7518 §3.1 and RFC 8037 §3.1.
const (
	HS256 = "HS256"
	HS384 = "HS384"
	HS512 = "HS512"
	RS256 = "RS256"
	RS384 = "RS384"
	RS512 = "RS512"
	PS256 = "PS256"
	PS384 = "PS384"
	PS512 = "PS512"
	ES256 = "ES256"
	ES384 = "ES384"
	ES512 = "ES512"
	EdDSA = "EdDSA"
	None  = "none"
)

// Algorithm is a signature (or MAC) algorithm bound to its key material.
//
// Verify must return an error matching ErrSignatureMismatch when the
// signature does not match; any other error is reported as ErrAlgorithm.
type Algorithm interface {
	Sign(ctx context.Context, signingInput []byte) ([]byte, error)
	Verify(ctx context.Context, signingInput, signature []byte) error
}

// Named is implemented by algorithms that know their "alg" name.
// The bindings returned by this package all implement it.
type Named interface {
	Name() string
}

// AlgorithmName returns the "alg" name of a, or "" when a does not implement Named.
func AlgorithmName(a Algorithm) string {
	if n, ok := a.(Named); ok {
		return n.Name()
	}
	return ""
}

// SignFunc adapts a deterministic sign function, such as a MAC held in an
// HSM, to Algorithm. Verify recomputes the signature and compares it in
// constant time.
type SignFunc func(ctx context.Context, signingInput []byte) ([]byte, error)

// Sign calls f.
func (f SignFunc) Sign(ctx context.Context, signingInput []byte) ([]byte, error) {
	return f(ctx, signingInput)
}

// Verify recomputes the signature over signingInput and compares it with signature.
func (f SignFunc) Verify(ctx context.Context, signingInput, signature []byte) error {
	expected, err := f(ctx, signingInput)
	if err != nil {
		return err
	}
	defer security.ZeroBytes(expected)

	if !security.SecureCompare(expected, signature) {
		return ErrSignatureMismatch
	}
	return nil
}

// methodAlgorithm binds an internal signing method to the context-aware
// Algorithm interface.
type methodAlgorithm struct {
	method signing.Method
}

func (a *methodAlgorithm) Name() string {
	return a.method.Alg()
}

func (a *methodAlgorithm) Sign(ctx context.Context, signingInput []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, err := a.method.Sign(signingInput)
	if err != nil {
		return nil, translateSigningError(err)
	}
	return sig, nil
}

func (a *methodAlgorithm) Verify(ctx context.Context, signingInput, signature []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.method.Verify(signingInput, signature); err != nil {
		return translateSigningError(err)
	}
	return nil
}

func translateSigningError(err error) error {
	switch {
	case errors.Is(err, signing.ErrVerification):
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	case errors.Is(err, signing.ErrCannotSign):
		return ErrVerifyOnly
	case errors.Is(err, signing.ErrInvalidKey):
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	case errors.Is(err, signing.ErrUnknownAlgorithm):
		return fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, err)
	default:
		return err
	}
}

func bind(m signing.Method, err error) (Algorithm, error) {
	if err != nil {
		return nil, translateSigningError(err)
	}
	return &methodAlgorithm{method: m}, nil
}

// HMAC returns an HS256, HS384 or HS512 binding. The key must be at least as
// long as the hash output and must not be trivially guessable. The key is copied.
func HMAC(alg string, key []byte) (Algorithm, error) {
	return bind(signing.NewHMAC(alg, key))
}

// RSA returns an RS* or PS* binding that signs with key. Keys shorter than
// 2048 bits are rejected.
func RSA(alg string, key *rsa.PrivateKey) (Algorithm, error) {
	return bind(signing.NewRSA(alg, key))
}

// RSAPublic returns a verify-only RS* or PS* binding.
func RSAPublic(alg string, key *rsa.PublicKey) (Algorithm, error) {
	return bind(signing.NewRSAPublic(alg, key))
}

// ECDSA returns an ES256, ES384 or ES512 binding. The key curve must match alg.
func ECDSA(alg string, key *ecdsa.PrivateKey) (Algorithm, error) {
	return bind(signing.NewECDSA(alg, key))
}

// ECDSAPublic returns a verify-only ES* binding.
func ECDSAPublic(alg string, key *ecdsa.PublicKey) (Algorithm, error) {
	return bind(signing.NewECDSAPublic(alg, key))
}

// Ed25519 returns an EdDSA binding.
func Ed25519(key ed25519.PrivateKey) (Algorithm, error) {
	return bind(signing.NewEd25519(key))
}

// Ed25519Public returns a verify-only EdDSA binding.
func Ed25519Public(key ed25519.PublicKey) (Algorithm, error) {
	return bind(signing.NewEd25519Public(key))
}

// NKey returns an EdDSA binding backed by an nkeys key pair. A key pair
// created from a public key only can verify but not sign.
func NKey(kp nkeys.KeyPair) (Algorithm, error) {
	return bind(signing.NewNKey(kp))
}

// Unsecured returns the "none" binding: an empty signature that verifies
// only against an empty signature. A Registry refuses it unless created
// with AllowUnsecured.
func Unsecured() Algorithm {
	return &methodAlgorithm{method: signing.None()}
}
