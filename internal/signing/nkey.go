package signing

import (
	"errors"
	"fmt"

	"github.com/nats-io/nkeys"
)

// nkeyMethod signs with an nkeys key pair. nkeys signatures are plain
// Ed25519 signatures, so tokens interoperate with any EdDSA verifier.
type nkeyMethod struct {
	kp nkeys.KeyPair
}

// NewNKey returns an EdDSA method backed by kp. A key pair created from a
// public key verifies only.
func NewNKey(kp nkeys.KeyPair) (Method, error) {
	if kp == nil {
		return nil, fmt.Errorf("%w: nil key pair", ErrInvalidKey)
	}
	if _, err := kp.PublicKey(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &nkeyMethod{kp: kp}, nil
}

func (m *nkeyMethod) Alg() string { return "EdDSA" }

func (m *nkeyMethod) Sign(signingInput []byte) ([]byte, error) {
	sig, err := m.kp.Sign(signingInput)
	if errors.Is(err, nkeys.ErrCannotSign) {
		return nil, fmt.Errorf("EdDSA: %w", ErrCannotSign)
	}
	if err != nil {
		return nil, fmt.Errorf("EdDSA sign: %w", err)
	}
	return sig, nil
}

func (m *nkeyMethod) Verify(signingInput, signature []byte) error {
	err := m.kp.Verify(signingInput, signature)
	if errors.Is(err, nkeys.ErrInvalidSignature) {
		return fmt.Errorf("EdDSA: %w", ErrVerification)
	}
	if err != nil {
		return fmt.Errorf("EdDSA verify: %w", err)
	}
	return nil
}
