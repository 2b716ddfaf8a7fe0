package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Short returns the first n hex characters.
func (h Hash) Short(n int) string {
	if n >= len(h) {
		return string(h)
	}
	return string(h[:n])
}

// Domain-specific hash types
type (
	ConfigHash Hash
	PolicyHash Hash
	StateHash  Hash
)

func (h ConfigHash) String() string { return Hash(h).String() }
func (h PolicyHash) String() string { return Hash(h).String() }
func (h StateHash) String() string  { return Hash(h).String() }

// CanonicalJSON marshals v with map keys sorted. encoding/json already sorts
// map keys, and struct fields keep declaration order, so the output is stable.
func CanonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize: %w", err)
	}
	return data, nil
}

// HashJSON hashes the canonical JSON form of v.
func HashJSON(v any) (Hash, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return NewHash(data), nil
}
