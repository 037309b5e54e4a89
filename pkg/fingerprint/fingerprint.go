// Package fingerprint computes the content hash used as the transcript
// deduplication key.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Length is the number of hex characters in a fingerprint.
const Length = 32

// Compute returns the first 32 hex characters of the SHA-256 digest of content.
// The value is a dedup key, not a credential.
func Compute(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:Length]
}
