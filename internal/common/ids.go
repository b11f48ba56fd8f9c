// Package common provides identifier helpers shared by the mock server.
package common

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// OwnerIDLen is the length of the numeric owner ids the mock API prefixes collection
// uids with.
const OwnerIDLen = 8

const DIGITS = "0123456789"

// secureRandomInt generates a cryptographically secure random number between 0 and max.
// Returns an error if random number generation fails.
func secureRandomInt(max int) (int, error) {
	if max <= 0 {
		return 0, fmt.Errorf("max must be positive, got %d", max)
	}
	if max > math.MaxInt32 {
		return 0, fmt.Errorf("max too large: %d", max)
	}

	// Find the largest multiple of max within uint64 to avoid modulo bias
	limit := (math.MaxUint64 / uint64(max)) * uint64(max)

	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("failed to generate random bytes: %w", err)
		}
		n := binary.BigEndian.Uint64(buf[:])
		if n < limit {
			return int(n % uint64(max)), nil
		}
	}
}

// NumericID generates a random decimal id of the given length. The first digit is never
// zero, so the id keeps its length when parsed as a number.
func NumericID(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}

	result := make([]byte, length)
	first, err := secureRandomInt(len(DIGITS) - 1)
	if err != nil {
		return "", fmt.Errorf("failed to generate first digit: %w", err)
	}
	result[0] = DIGITS[first+1]

	for i := 1; i < length; i++ {
		idx, err := secureRandomInt(len(DIGITS))
		if err != nil {
			return "", fmt.Errorf("failed to generate digit at position %d: %w", i, err)
		}
		result[i] = DIGITS[idx]
	}
	return string(result), nil
}

// NewOwnerID returns a numeric owner id of OwnerIDLen digits.
func NewOwnerID() (string, error) {
	return NumericID(OwnerIDLen)
}
