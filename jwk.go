package jws

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// AlgorithmFromJWK builds a binding from a JSON Web Key (RFC 7517).
// Private keys yield bindings that sign and verify; public keys yield
// verify-only bindings. Symmetric ("oct") keys must carry "alg"; for other
// key types a missing "alg" defaults to RS256, the curve's ES* algorithm,
// or EdDSA.
func AlgorithmFromJWK(data []byte) (Algorithm, error) {
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return algorithmFromKey(jwk)
}

// ResolverFromJWKSet returns an AlgorithmResolver that selects a key from a
// JWK Set by the header's "kid" and requires the header's "alg" to match
// the key's algorithm.
func ResolverFromJWKSet(data []byte) (AlgorithmResolver, error) {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	byKeyID := make(map[string]Algorithm, len(set.Keys))
	for i, jwk := range set.Keys {
		if jwk.KeyID == "" {
			return nil, fmt.Errorf("%w: key %d has no kid", ErrInvalidKey, i)
		}
		if _, dup := byKeyID[jwk.KeyID]; dup {
			return nil, fmt.Errorf("%w: duplicate kid %q", ErrInvalidKey, jwk.KeyID)
		}
		alg, err := algorithmFromKey(jwk)
		if err != nil {
			return nil, fmt.Errorf("kid %q: %w", jwk.KeyID, err)
		}
		byKeyID[jwk.KeyID] = alg
	}

	return func(h Header) (Algorithm, error) {
		name, ok := h.Algorithm()
		if !ok {
			return nil, ErrMissingAlgorithm
		}
		kid, ok := h.KeyID()
		if !ok {
			return nil, &ValidationError{Field: HeaderKeyID, Message: "required to select a key"}
		}
		alg, ok := byKeyID[kid]
		if !ok {
			return nil, fmt.Errorf("%w: no key with kid %q", ErrUnsupportedAlgorithm, kid)
		}
		if AlgorithmName(alg) != name {
			return nil, fmt.Errorf("%w: key %q is for %s, header says %q", ErrUnsupportedAlgorithm, kid, AlgorithmName(alg), name)
		}
		return alg, nil
	}, nil
}

// algorithmFromKey reports every failure as ErrInvalidKey, keeping the cause.
func algorithmFromKey(jwk jose.JSONWebKey) (Algorithm, error) {
	alg, err := bindKey(jwk)
	if err != nil && !errors.Is(err, ErrInvalidKey) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return alg, err
}

func bindKey(jwk jose.JSONWebKey) (Algorithm, error) {
	if jwk.Use == "enc" {
		return nil, fmt.Errorf("%w: key is marked for encryption", ErrInvalidKey)
	}

	alg := jwk.Algorithm
	switch key := jwk.Key.(type) {
	case []byte:
		if alg == "" {
			return nil, fmt.Errorf(`%w: symmetric key needs "alg"`, ErrInvalidKey)
		}
		return HMAC(alg, key)
	case *rsa.PrivateKey:
		return RSA(defaultName(alg, RS256), key)
	case *rsa.PublicKey:
		return RSAPublic(defaultName(alg, RS256), key)
	case *ecdsa.PrivateKey:
		return ECDSA(defaultName(alg, curveAlgorithm(&key.PublicKey)), key)
	case *ecdsa.PublicKey:
		return ECDSAPublic(defaultName(alg, curveAlgorithm(key)), key)
	case ed25519.PrivateKey:
		if err := expectName(alg, EdDSA); err != nil {
			return nil, err
		}
		return Ed25519(key)
	case ed25519.PublicKey:
		if err := expectName(alg, EdDSA); err != nil {
			return nil, err
		}
		return Ed25519Public(key)
	default:
		return nil, fmt.Errorf("%w: unsupported key type %T", ErrInvalidKey, jwk.Key)
	}
}

func defaultName(alg, fallback string) string {
	if alg == "" {
		return fallback
	}
	return alg
}

func expectName(alg, want string) error {
	if alg != "" && alg != want {
		return fmt.Errorf("%w: %q key used with %q", ErrInvalidKey, want, alg)
	}
	return nil
}

func curveAlgorithm(key *ecdsa.PublicKey) string {
	if key == nil || key.Curve == nil {
		return ""
	}
	switch key.Curve.Params().BitSize {
	case 256:
		return ES256
	case 384:
		return ES384
	case 521:
		return ES512
	default:
		return ""
	}
}
