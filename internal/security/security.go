// Package security holds small helpers for handling key and signature bytes.
package security

import (
	"bytes"
	"crypto/subtle"
	"runtime"
)

// SecureCompare reports whether a and b are equal in time that depends only
// on their lengths.
func SecureCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ZeroBytes overwrites data with zeros.
func ZeroBytes(data []byte) {
	if len(data) == 0 {
		return
	}
	clear(data)
	runtime.KeepAlive(data)
}

const minDistinctBytes = 8

var weakSubstrings = [][]byte{
	[]byte("password"), []byte("secret"), []byte("changeme"), []byte("letmein"),
	[]byte("qwerty"), []byte("asdfgh"), []byte("123456"), []byte("654321"), []byte("admin"),
}

// IsWeakKey reports whether a symmetric key shows an obvious lack of entropy:
// a single repeated short pattern, a counting sequence, fewer than
// minDistinctBytes distinct bytes, or a well-known password fragment.
// Hex and base64 text keys pass as long as they are random.
func IsWeakKey(key []byte) bool {
	if len(key) == 0 {
		return true
	}

	for period := 1; period <= 8 && period < len(key); period++ {
		if repeatsWithPeriod(key, period) {
			return true
		}
	}

	if len(key) >= 8 && isCountingRun(key[:8]) {
		return true
	}

	distinct := make(map[byte]struct{}, len(key))
	for _, b := range key {
		distinct[b] = struct{}{}
	}
	if len(key) >= minDistinctBytes && len(distinct) < minDistinctBytes {
		return true
	}

	lower := bytes.ToLower(key)
	for _, s := range weakSubstrings {
		if bytes.Contains(lower, s) {
			return true
		}
	}

	return false
}

func repeatsWithPeriod(key []byte, period int) bool {
	for i := period; i < len(key); i++ {
		if key[i] != key[i-period] {
			return false
		}
	}
	return true
}

func isCountingRun(run []byte) bool {
	up, down := true, true
	for i := 1; i < len(run); i++ {
		if run[i] != run[i-1]+1 {
			up = false
		}
		if run[i] != run[i-1]-1 {
			down = false
		}
	}
	return up || down
}
