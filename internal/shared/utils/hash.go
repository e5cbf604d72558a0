package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256  HashAlgorithm = "sha256"
	BLAKE2b HashAlgorithm = "blake2b"
)

// ParseHashAlgorithm accepts an algorithm name, empty meaning sha256
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch HashAlgorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE2b, "blake2b-256":
		return BLAKE2b, nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm %q", name)
	}
}

// Hasher computes hex digests
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// Algorithm returns the configured algorithm
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

func (h *Hasher) newHash() hash.Hash {
	if h.algorithm == BLAKE2b {
		// New256 only fails for oversized keys
		b, _ := blake2b.New256(nil)
		return b
	}
	return sha256.New()
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	hs := h.newHash()
	hs.Write(data)
	return hex.EncodeToString(hs.Sum(nil))
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashReader streams r through the hash
func (h *Hasher) HashReader(r io.Reader) (string, error) {
	hs := h.newHash()
	if _, err := io.Copy(hs, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hs.Sum(nil)), nil
}
