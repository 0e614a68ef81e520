package replay

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// cacheStore implements Store on top of go-cache
type cacheStore struct {
	mu      sync.RWMutex
	cache   *cache.Cache
	maxSize int
	closed  bool
}

// NewCacheStore creates an in-memory store with config.TTL as the default
// expiration and a janitor running every config.CleanupInterval.
func NewCacheStore(config Config) Store {
	return &cacheStore{
		cache:   cache.New(config.TTL, config.CleanupInterval),
		maxSize: config.MaxSize,
	}
}

// Claim holds the write lock so the size check and Add cannot interleave
// with other claims.
func (s *cacheStore) Claim(value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	if s.maxSize > 0 && s.cache.ItemCount() >= s.maxSize {
		s.cache.DeleteExpired()
		if s.cache.ItemCount() >= s.maxSize {
			return false, ErrStoreFull
		}
	}

	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	// Add fails when an unexpired item exists, which makes the claim atomic.
	if err := s.cache.Add(value, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *cacheStore) Contains(value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	_, found := s.cache.Get(value)
	return found, nil
}

func (s *cacheStore) Remove(value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.cache.Delete(value)
	return nil
}

func (s *cacheStore) Cleanup() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	before := s.cache.ItemCount()
	s.cache.DeleteExpired()
	return before - s.cache.ItemCount(), nil
}

func (s *cacheStore) Size() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	return s.cache.ItemCount(), nil
}

func (s *cacheStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.cache.Flush()
	return nil
}
