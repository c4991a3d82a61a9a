// Package digest provides the one-way hashing used for room passwords and
// username reservation keys. Digests are deterministic so that equal
// normalized inputs can be compared by digest alone.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash returns the hex-encoded SHA-256 digest of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Normalize trims surrounding whitespace and folds case, so that equivalent
// human inputs digest identically. Callers hash Normalize(input), never the
// raw string.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
