package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cybergodev/jws/internal/security"
)

const minRSABits = 2048

// jwtMethod delegates the primitive to a golang-jwt signing method.
// signKey is nil for verify-only methods.
type jwtMethod struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
}

func (m *jwtMethod) Alg() string {
	return m.method.Alg()
}

func (m *jwtMethod) Sign(signingInput []byte) ([]byte, error) {
	if m.signKey == nil {
		return nil, fmt.Errorf("%s: %w", m.method.Alg(), ErrCannotSign)
	}
	sig, err := m.method.Sign(string(signingInput), m.signKey)
	if err != nil {
		return nil, fmt.Errorf("%s sign: %w", m.method.Alg(), err)
	}
	return sig, nil
}

func (m *jwtMethod) Verify(signingInput, signature []byte) error {
	err := m.method.Verify(string(signingInput), signature, m.verifyKey)
	if err == nil {
		return nil
	}
	if isVerificationFailure(err) {
		return fmt.Errorf("%s: %w", m.method.Alg(), ErrVerification)
	}
	return fmt.Errorf("%s verify: %w", m.method.Alg(), err)
}

func isVerificationFailure(err error) bool {
	return errors.Is(err, jwt.ErrSignatureInvalid) ||
		errors.Is(err, rsa.ErrVerification) ||
		errors.Is(err, jwt.ErrECDSAVerification) ||
		errors.Is(err, jwt.ErrEd25519Verification)
}

var hmacMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// NewHMAC returns an HMAC-SHA2 method. The key must be at least as long as
// the hash output and must not look like a password.
func NewHMAC(alg string, key []byte) (Method, error) {
	method, ok := hmacMethods[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an HMAC algorithm", ErrUnknownAlgorithm, alg)
	}
	if err := checkHashAvailable(method.Hash); err != nil {
		return nil, err
	}
	if len(key) < method.Hash.Size() {
		return nil, fmt.Errorf("%w: %s requires at least %d key bytes, got %d",
			ErrInvalidKey, alg, method.Hash.Size(), len(key))
	}
	if security.IsWeakKey(key) {
		return nil, fmt.Errorf("%w: %s key has insufficient entropy", ErrInvalidKey, alg)
	}

	owned := append([]byte(nil), key...)
	return &jwtMethod{method: method, signKey: owned, verifyKey: owned}, nil
}

var rsaMethods = map[string]jwt.SigningMethod{
	"RS256": jwt.SigningMethodRS256,
	"RS384": jwt.SigningMethodRS384,
	"RS512": jwt.SigningMethodRS512,
	"PS256": jwt.SigningMethodPS256,
	"PS384": jwt.SigningMethodPS384,
	"PS512": jwt.SigningMethodPS512,
}

// NewRSA returns an RSASSA-PKCS1-v1_5 (RS*) or RSASSA-PSS (PS*) method.
func NewRSA(alg string, key *rsa.PrivateKey) (Method, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil RSA private key", ErrInvalidKey)
	}
	m, err := NewRSAPublic(alg, &key.PublicKey)
	if err != nil {
		return nil, err
	}
	m.(*jwtMethod).signKey = key
	return m, nil
}

// NewRSAPublic returns a verify-only RSA method.
func NewRSAPublic(alg string, key *rsa.PublicKey) (Method, error) {
	method, ok := rsaMethods[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an RSA algorithm", ErrUnknownAlgorithm, alg)
	}
	if key == nil || key.N == nil {
		return nil, fmt.Errorf("%w: nil RSA public key", ErrInvalidKey)
	}
	if key.N.BitLen() < minRSABits {
		return nil, fmt.Errorf("%w: %s requires a modulus of at least %d bits, got %d",
			ErrInvalidKey, alg, minRSABits, key.N.BitLen())
	}
	return &jwtMethod{method: method, verifyKey: key}, nil
}

var ecdsaMethods = map[string]struct {
	method *jwt.SigningMethodECDSA
	curve  elliptic.Curve
}{
	"ES256": {jwt.SigningMethodES256, elliptic.P256()},
	"ES384": {jwt.SigningMethodES384, elliptic.P384()},
	"ES512": {jwt.SigningMethodES512, elliptic.P521()},
}

// NewECDSA returns an ECDSA method; the key curve must match the algorithm.
func NewECDSA(alg string, key *ecdsa.PrivateKey) (Method, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil ECDSA private key", ErrInvalidKey)
	}
	m, err := NewECDSAPublic(alg, &key.PublicKey)
	if err != nil {
		return nil, err
	}
	m.(*jwtMethod).signKey = key
	return m, nil
}

// NewECDSAPublic returns a verify-only ECDSA method.
func NewECDSAPublic(alg string, key *ecdsa.PublicKey) (Method, error) {
	entry, ok := ecdsaMethods[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an ECDSA algorithm", ErrUnknownAlgorithm, alg)
	}
	if key == nil || key.Curve == nil {
		return nil, fmt.Errorf("%w: nil ECDSA public key", ErrInvalidKey)
	}
	if key.Curve.Params().Name != entry.curve.Params().Name {
		return nil, fmt.Errorf("%w: %s requires curve %s, got %s",
			ErrInvalidKey, alg, entry.curve.Params().Name, key.Curve.Params().Name)
	}
	return &jwtMethod{method: entry.method, verifyKey: key}, nil
}

// NewEd25519 returns an EdDSA method over Ed25519.
func NewEd25519(key ed25519.PrivateKey) (Method, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: Ed25519 private key must be %d bytes, got %d",
			ErrInvalidKey, ed25519.PrivateKeySize, len(key))
	}
	pub, _ := key.Public().(ed25519.PublicKey)
	return &jwtMethod{method: jwt.SigningMethodEdDSA, signKey: key, verifyKey: pub}, nil
}

// NewEd25519Public returns a verify-only EdDSA method.
func NewEd25519Public(key ed25519.PublicKey) (Method, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: Ed25519 public key must be %d bytes, got %d",
			ErrInvalidKey, ed25519.PublicKeySize, len(key))
	}
	return &jwtMethod{method: jwt.SigningMethodEdDSA, verifyKey: key}, nil
}

func checkHashAvailable(h crypto.Hash) error {
	if !h.Available() {
		return fmt.Errorf("hash function %v not available", h)
	}
	return nil
}
