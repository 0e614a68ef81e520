package jws

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cybergodev/jws/internal/replay"
)

// NewNonce returns a fresh random value for the "nonce" header parameter.
func NewNonce() string {
	return uuid.NewString()
}

// NonceGuard rejects tokens whose "nonce" header parameter was seen before
// within the replay window.
//
// Check is a HeaderHandler that only reads the window, so forged tokens
// cannot burn a nonce. Consume records the nonce and must be called after
// the signature has been verified; of two concurrent uses of one nonce,
// exactly one Consume succeeds.
type NonceGuard struct {
	store replay.Store
	ttl   time.Duration
}

// NewNonceGuard returns a guard that remembers nonces for ttl.
func NewNonceGuard(ttl time.Duration) (*NonceGuard, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: nonce TTL must be positive", ErrInvalidConfig)
	}

	config := replay.DefaultConfig()
	config.TTL = ttl
	if config.CleanupInterval > ttl {
		config.CleanupInterval = ttl
	}
	return &NonceGuard{store: replay.NewCacheStore(config), ttl: ttl}, nil
}

// Check implements HeaderHandler.
func (g *NonceGuard) Check(h Header) error {
	nonce, err := nonceOf(h)
	if err != nil {
		return err
	}

	seen, err := g.store.Contains(nonce)
	if err != nil {
		return fmt.Errorf("nonce store: %w", err)
	}
	if seen {
		return ErrNonceReplayed
	}
	return nil
}

// Consume records the header's nonce, failing with ErrNonceReplayed when
// it is already recorded.
func (g *NonceGuard) Consume(h Header) error {
	nonce, err := nonceOf(h)
	if err != nil {
		return err
	}

	claimed, err := g.store.Claim(nonce, g.ttl)
	if err != nil {
		return fmt.Errorf("nonce store: %w", err)
	}
	if !claimed {
		return ErrNonceReplayed
	}
	return nil
}

// Size returns the number of nonces currently remembered.
func (g *NonceGuard) Size() int {
	n, err := g.store.Size()
	if err != nil {
		return 0
	}
	return n
}

// Close releases the remembered nonces.
func (g *NonceGuard) Close() error {
	return g.store.Close()
}

func nonceOf(h Header) (string, error) {
	v, ok := h.Get(HeaderNonce)
	if !ok {
		return "", ErrMissingNonce
	}
	nonce, ok := v.(string)
	if !ok || nonce == "" {
		return "", &ValidationError{Field: HeaderNonce, Message: "must be a non-empty string", Err: ErrMissingNonce}
	}
	return nonce, nil
}
