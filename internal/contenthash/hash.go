// Package contenthash produces the canonical content digests used in cache keys.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the lowercase hex SHA-256 digest of content.
// The same content always produces the same digest, so it is safe to
// use as the identity of a prompt across processes.
func Sum(content string) string {
	hasher := sha256.New()
	hasher.Write([]byte(content))
	return hex.EncodeToString(hasher.Sum(nil))
}

// SumBytes is Sum for callers that already hold a byte slice.
func SumBytes(content []byte) string {
	hasher := sha256.New()
	hasher.Write(content)
	return hex.EncodeToString(hasher.Sum(nil))
}
