// Package replay remembers single-use values, such as JWS nonces, until
// they expire.
package replay

import (
	"errors"
	"time"
)

var (
	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("replay store is closed")
	// ErrStoreFull is returned by Claim when MaxSize live values are held.
	ErrStoreFull = errors.New("replay store is full")
)

// Store defines the interface for replay storage implementations
type Store interface {
	// Claim records value for ttl. It reports false when value is already
	// recorded and unexpired. Claim is atomic per value.
	Claim(value string, ttl time.Duration) (bool, error)

	// Contains checks whether value is recorded and unexpired
	Contains(value string) (bool, error)

	// Remove forgets value
	Remove(value string) error

	// Cleanup removes expired values and returns how many were removed
	Cleanup() (int, error)

	// Size returns the number of values held, expired ones included until cleanup
	Size() (int, error)

	// Close releases the stored values
	Close() error
}

// Config represents replay store configuration
type Config struct {
	// TTL is how long a claimed value stays recorded
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// CleanupInterval defines how often expired values are purged; zero disables the janitor
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`

	// MaxSize caps the number of live values; zero means unbounded
	MaxSize int `yaml:"max_size" json:"max_size"`
}

// DefaultConfig returns the replay store defaults
func DefaultConfig() Config {
	return Config{
		TTL:             10 * time.Minute,
		CleanupInterval: time.Minute,
		MaxSize:         100000,
	}
}
