package jws

import (
	"fmt"
	"sort"
	"sync"
)

// Registry resolves a header's "alg" to a registered Algorithm.
// It is safe for concurrent use.
type Registry struct {
	mu             sync.RWMutex
	algorithms     map[string]Algorithm
	allowUnsecured bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// AllowUnsecured lets the registry hold and resolve the "none" algorithm.
func AllowUnsecured() RegistryOption {
	return func(r *Registry) {
		r.allowUnsecured = true
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{algorithms: make(map[string]Algorithm)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds name to alg, replacing any previous binding. When alg
// implements Named its name must equal name.
func (r *Registry) Register(name string, alg Algorithm) error {
	if name == "" {
		return fmt.Errorf("%w: algorithm name cannot be empty", ErrInvalidConfig)
	}
	if alg == nil {
		return fmt.Errorf("%w: nil algorithm for %q", ErrInvalidConfig, name)
	}
	if own := AlgorithmName(alg); own != "" && own != name {
		return fmt.Errorf("%w: %s binding registered as %q", ErrInvalidConfig, own, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if name == None && !r.allowUnsecured {
		return fmt.Errorf("%w: unsecured algorithm requires AllowUnsecured", ErrInvalidConfig)
	}
	r.algorithms[name] = alg
	return nil
}

// Add registers each algorithm under its own name.
func (r *Registry) Add(algs ...Algorithm) error {
	for _, alg := range algs {
		name := AlgorithmName(alg)
		if name == "" {
			return fmt.Errorf("%w: algorithm %T has no name; use Register", ErrInvalidConfig, alg)
		}
		if err := r.Register(name, alg); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes the binding for name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.algorithms, name)
}

// Names returns the registered algorithm names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.algorithms))
	for name := range r.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the binding registered for name.
func (r *Registry) Lookup(name string) (Algorithm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alg, ok := r.algorithms[name]
	return alg, ok
}

// Resolve implements AlgorithmResolver.
func (r *Registry) Resolve(h Header) (Algorithm, error) {
	name, ok := h.Algorithm()
	if !ok {
		if h.Has(HeaderAlgorithm) {
			return nil, fmt.Errorf(`%w: "alg" is not a string`, ErrUnsupportedAlgorithm)
		}
		return nil, ErrMissingAlgorithm
	}

	alg, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
	return alg, nil
}
